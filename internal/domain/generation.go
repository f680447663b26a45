package domain

import "context"

// Generator is the text generation contract: one prompt in, one complete response out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (GenerationResult, error)
}

// GenerationResult carries the generated text and token usage through the decorator chain.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
