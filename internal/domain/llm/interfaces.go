package llm

import "context"

// Generator turns a product description into a landing page HTML fragment.
// Implementations return an error when the provider fails or yields nothing usable.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
