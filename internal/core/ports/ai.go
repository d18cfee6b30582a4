package ports

import "context"

// AnalysisRequest carries one traffic snapshot to a language model.
type AnalysisRequest struct {
	// System is the instruction framing the model as a network analyst.
	System string
	// Prompt is the serialized traffic snapshot plus the output schema.
	Prompt string
	// MaxTokens caps the response length. Zero uses the provider default.
	MaxTokens int
	// Temperature controls sampling. Zero uses the provider default.
	Temperature float64
}

// AnalysisProvider is one language model backend in the fallback chain.
type AnalysisProvider interface {
	// Analyze sends the request and returns the raw model text.
	Analyze(ctx context.Context, req AnalysisRequest) (string, error)
	// Name identifies the provider in logs and stored results.
	Name() string
	// Model returns the model identifier recorded with each analysis.
	Model() string
	// Available reports whether the provider is configured with a key.
	Available() bool
}
