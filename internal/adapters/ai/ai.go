// Package ai implements the language model providers behind the analysis
// aggregator. Three backends are supported, tried in priority order: Gemini,
// Groq, OpenRouter. Each provider reads its API key through a closure so
// that edits to ai_config.json take effect without a restart.
package ai

import (
	"net/http"
	"time"

	"github.com/jarvis-lab/netguard/internal/config"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

const (
	// requestTimeout bounds one provider call. The aggregator holds a
	// separate deadline across the whole chain, so a slow provider cannot
	// starve the ones behind it.
	requestTimeout = 30 * time.Second

	defaultMaxTokens   = 4096
	defaultTemperature = 0.3
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

func maxTokensOrDefault(n int) int {
	if n > 0 {
		return n
	}
	return defaultMaxTokens
}

func temperatureOrDefault(t float64) float64 {
	if t > 0 {
		return t
	}
	return defaultTemperature
}

// Chain builds the provider fallback chain in priority order: Gemini 2.0
// Flash, then Groq Llama 3.3, then OpenRouter DeepSeek R1. Keys are read
// from the manager on every call, so rotated keys apply to the next cycle.
func Chain(mgr *config.AIConfigManager) []ports.AnalysisProvider {
	return []ports.AnalysisProvider{
		NewGemini(func() string { return mgr.Get().GeminiKey }),
		NewGroq(func() string { return mgr.Get().GroqKey }),
		NewOpenRouter(func() string { return mgr.Get().OpenRouterKey }),
	}
}
