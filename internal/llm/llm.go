// Package llm abstracts the text-generation providers used for creative
// answers.
package llm

import "context"

// Generator produces a completion for a prompt under a system
// instruction. Implementations wrap a single provider SDK.
type Generator interface {
	// Name returns the provider's model name, for logging.
	Name() string

	// Generate returns the model's text reply. system may be empty.
	Generate(ctx context.Context, system, prompt string) (string, error)
}
