package openai

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/voicerag/internal/domain"
)

const (
	DefaultChatModel     = openai.GPT4oMini
	DefaultChatMaxTokens = 512
)

// ChatAPI is the slice of the SDK the generator needs.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatGenerator answers grounded prompts with the chat completions API.
type ChatGenerator struct {
	api         ChatAPI
	model       string
	temperature float32
}

// NewChatGenerator creates a ChatGenerator. An empty model selects gpt-4o-mini.
func NewChatGenerator(api ChatAPI, model string, temperature float32) *ChatGenerator {
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatGenerator{api: api, model: model, temperature: temperature}
}

// Generate sends the prompt and returns the first choice's text.
func (g *ChatGenerator) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultChatMaxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", domain.NewProviderError("chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewProviderError("chat completion failed", errors.New("no choices returned"))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", domain.NewProviderError("chat completion failed", errors.New("empty completion"))
	}
	return text, nil
}
