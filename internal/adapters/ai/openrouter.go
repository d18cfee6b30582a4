package ai

import (
	"context"
	"net/http"

	"github.com/jarvis-lab/netguard/internal/config"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

const (
	openRouterURL   = "https://openrouter.ai/api/v1/chat/completions"
	openRouterModel = "deepseek/deepseek-r1"
)

// OpenRouter is the last provider in the chain. DeepSeek R1 rejects
// response_format, so JSON discipline rides on the prompt alone and the
// parser has to tolerate reasoning text around the payload.
type OpenRouter struct {
	key    func() string
	url    string
	client *http.Client
}

// NewOpenRouter builds the OpenRouter provider.
func NewOpenRouter(key func() string) *OpenRouter {
	return &OpenRouter{key: key, url: openRouterURL, client: newHTTPClient()}
}

func (o *OpenRouter) Name() string  { return "openrouter" }
func (o *OpenRouter) Model() string { return openRouterModel }

// Available reports whether a plausible key is configured.
func (o *OpenRouter) Available() bool { return config.KeyUsable(o.key()) }

// Analyze sends the snapshot through OpenRouter's chat completions endpoint.
func (o *OpenRouter) Analyze(ctx context.Context, req ports.AnalysisRequest) (string, error) {
	return postChat(ctx, o.client, o.url, o.key(), chatRequest{
		Model:       openRouterModel,
		Messages:    chatMessages(req),
		MaxTokens:   maxTokensOrDefault(req.MaxTokens),
		Temperature: temperatureOrDefault(req.Temperature),
	})
}
