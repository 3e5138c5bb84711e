// Package claude adapts the Anthropic Messages API to the grounded
// generation interface.
package claude

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cloo-solutions/voicerag/internal/domain"
)

const (
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultMaxTokens = 512
)

// MessagesAPI is satisfied by *anthropic.MessageService.
type MessagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Generator answers grounded prompts with Claude.
type Generator struct {
	messages MessagesAPI
	model    string
}

// NewGenerator builds a Generator backed by the real API.
func NewGenerator(apiKey, model string) *Generator {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return NewGeneratorWithAPI(&client.Messages, model)
}

// NewGeneratorWithAPI builds a Generator over any MessagesAPI.
func NewGeneratorWithAPI(messages MessagesAPI, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{messages: messages, model: model}
}

// Generate sends a single user turn and concatenates the text blocks of
// the reply.
func (g *Generator) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	maxTokens := int64(prompt.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: prompt.System},
		}
	}

	resp, err := g.messages.New(ctx, params)
	if err != nil {
		return "", domain.NewProviderError("claude message failed", err)
	}
	if resp == nil {
		return "", domain.NewProviderError("claude message failed", errors.New("nil response"))
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", domain.NewProviderError("claude message failed", errors.New("no text content"))
	}
	return text, nil
}
