package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis-lab/netguard/internal/config"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

func staticKey(k string) func() string { return func() string { return k } }

func TestGeminiAnalyzeRequestShape(t *testing.T) {
	var got geminiRequest
	var path, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": `{"threat_level":"LOW"}`}}}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	g := NewGemini(staticKey("AIzaSyTest1234567890"))
	g.base = srv.URL
	g.client = srv.Client()

	text, err := g.Analyze(context.Background(), ports.AnalysisRequest{
		System: "analyst persona",
		Prompt: "snapshot here",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"threat_level":"LOW"}`, text)

	assert.Equal(t, "/models/gemini-2.0-flash-exp:generateContent", path)
	assert.Equal(t, "AIzaSyTest1234567890", key)
	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.Equal(t, "snapshot here", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "analyst persona", got.SystemInstruction.Parts[0].Text)
	require.NotNil(t, got.GenerationConfig)
	assert.InDelta(t, 0.3, got.GenerationConfig.Temperature, 0.001)
	assert.Equal(t, 40, got.GenerationConfig.TopK)
	assert.InDelta(t, 0.95, got.GenerationConfig.TopP, 0.001)
	assert.Equal(t, 4096, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiAnalyzeConcatenatesParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{
					{"text": `{"threat_level":`},
					{"text": `"MEDIUM"}`},
				}}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	g := NewGemini(staticKey("AIzaSyTest1234567890"))
	g.base = srv.URL
	g.client = srv.Client()

	text, err := g.Analyze(context.Background(), ports.AnalysisRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"threat_level":"MEDIUM"}`, text)
}

func TestGeminiAnalyzeSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	g := NewGemini(staticKey("AIzaSyTest1234567890"))
	g.base = srv.URL
	g.client = srv.Client()

	_, err := g.Analyze(context.Background(), ports.AnalysisRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGeminiAnalyzeNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g := NewGemini(staticKey("AIzaSyTest1234567890"))
	g.base = srv.URL
	g.client = srv.Client()

	_, err := g.Analyze(context.Background(), ports.AnalysisRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestGroqAnalyzeUsesJSONMode(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"ok":true}`}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	g := NewGroq(staticKey("gsk_live_1234567890"))
	g.url = srv.URL
	g.client = srv.Client()

	text, err := g.Analyze(context.Background(), ports.AnalysisRequest{Prompt: "traffic data"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)

	assert.Equal(t, "Bearer gsk_live_1234567890", auth)
	assert.Equal(t, "llama-3.3-70b-versatile", got["model"])

	rf, ok := got["response_format"].(map[string]any)
	require.True(t, ok, "groq requests must carry response_format")
	assert.Equal(t, "json_object", rf["type"])

	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Contains(t, first["content"], "valid JSON")
	second := msgs[1].(map[string]any)
	assert.Equal(t, "user", second["role"])
	assert.Equal(t, "traffic data", second["content"])
}

func TestOpenRouterOmitsResponseFormat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "deep analysis"}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	o := NewOpenRouter(staticKey("sk-or-v1-abcdef123456"))
	o.url = srv.URL
	o.client = srv.Client()

	text, err := o.Analyze(context.Background(), ports.AnalysisRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "deep analysis", text)

	assert.Equal(t, "deepseek/deepseek-r1", got["model"])
	_, present := got["response_format"]
	assert.False(t, present, "deepseek-r1 rejects response_format")
}

func TestChatSurfacesAPIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	g := NewGroq(staticKey("gsk_live_1234567890"))
	g.url = srv.URL
	g.client = srv.Client()

	_, err := g.Analyze(context.Background(), ports.AnalysisRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestChatEmptyChoicesFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	o := NewOpenRouter(staticKey("sk-or-v1-abcdef123456"))
	o.url = srv.URL
	o.client = srv.Client()

	_, err := o.Analyze(context.Background(), ports.AnalysisRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completion choices")
}

func TestAvailableRejectsPlaceholderKeys(t *testing.T) {
	assert.False(t, NewGemini(staticKey("")).Available())
	assert.False(t, NewGemini(staticKey("short")).Available())
	assert.False(t, NewGemini(staticKey("YOUR_GEMINI_API_KEY_HERE")).Available())
	assert.True(t, NewGemini(staticKey("AIzaSyTest1234567890")).Available())
}

func TestAvailableTracksKeyRotation(t *testing.T) {
	key := "YOUR_GROQ_API_KEY_HERE"
	g := NewGroq(func() string { return key })
	assert.False(t, g.Available())

	key = "gsk_live_1234567890"
	assert.True(t, g.Available())
}

func TestChainPriorityOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai_config.json")
	cfg := `{
		"enabled": true,
		"analysis_interval_seconds": 60,
		"gemini_api_key": "YOUR_GEMINI_API_KEY_HERE",
		"groq_api_key": "gsk_live_1234567890",
		"openrouter_api_key": "sk-or-v1-abcdef123456"
	}`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	mgr, err := config.NewAIConfigManager(path)
	require.NoError(t, err)

	chain := Chain(mgr)
	require.Len(t, chain, 3)
	assert.Equal(t, "gemini", chain[0].Name())
	assert.Equal(t, "groq", chain[1].Name())
	assert.Equal(t, "openrouter", chain[2].Name())

	// Only the providers whose keys were filled in report available.
	assert.False(t, chain[0].Available())
	assert.True(t, chain[1].Available())
	assert.True(t, chain[2].Available())
}
