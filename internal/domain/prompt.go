package domain

// Prompt is a single-turn generation request: a system instruction and the
// user message that carries the question and its retrieved context.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}
