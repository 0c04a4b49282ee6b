package provider

import "context"

// Request is one completion request to the language-model provider.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// ImageURL optionally attaches an image (https URL or data URL) for
	// screenshot-based generation.
	ImageURL string
}

// Completer is the narrow capability the pipeline needs from a provider.
// Implementations return their raw errors; the pipeline abstracts them.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	ModelID() string
}
