package ai

import (
	"context"
	"net/http"

	"github.com/jarvis-lab/netguard/internal/config"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

const (
	groqURL   = "https://api.groq.com/openai/v1/chat/completions"
	groqModel = "llama-3.3-70b-versatile"
)

// Groq is the second provider in the chain. Unlike Gemini it can enforce
// JSON output server-side through response_format.
type Groq struct {
	key    func() string
	url    string
	client *http.Client
}

// NewGroq builds the Groq provider.
func NewGroq(key func() string) *Groq {
	return &Groq{key: key, url: groqURL, client: newHTTPClient()}
}

func (g *Groq) Name() string  { return "groq" }
func (g *Groq) Model() string { return groqModel }

// Available reports whether a plausible key is configured.
func (g *Groq) Available() bool { return config.KeyUsable(g.key()) }

// Analyze sends the snapshot through Groq's chat completions endpoint.
func (g *Groq) Analyze(ctx context.Context, req ports.AnalysisRequest) (string, error) {
	return postChat(ctx, g.client, g.url, g.key(), chatRequest{
		Model:          groqModel,
		Messages:       chatMessages(req),
		MaxTokens:      maxTokensOrDefault(req.MaxTokens),
		Temperature:    temperatureOrDefault(req.Temperature),
		ResponseFormat: &formatSpec{Type: "json_object"},
	})
}
