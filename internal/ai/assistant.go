package ai

import "context"

// GenerationConfig tunes a single generation call.
type GenerationConfig struct {
	Temperature     float32
	TopK            float32
	TopP            float32
	MaxOutputTokens int32
	// JSON asks the provider for an application/json response.
	JSON bool
	// SystemInstruction is sent separately from the prompt when set.
	SystemInstruction string
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
}
