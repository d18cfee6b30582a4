package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// AIConfig controls the AI analysis pipeline. It lives in its own JSON
// file so operators can rotate API keys or retune the interval without
// restarting the monitor.
type AIConfig struct {
	Enabled       bool   `json:"enabled"`
	IntervalSecs  int    `json:"analysis_interval_seconds"`
	GeminiKey     string `json:"gemini_api_key"`
	GroqKey       string `json:"groq_api_key"`
	OpenRouterKey string `json:"openrouter_api_key"`
}

// Interval returns the analysis cycle interval as a duration.
func (c AIConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSecs) * time.Second
}

// DefaultAIConfig is what gets written when no config file exists yet.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Enabled:       true,
		IntervalSecs:  300,
		GeminiKey:     "YOUR_GEMINI_API_KEY_HERE",
		GroqKey:       "YOUR_GROQ_API_KEY_HERE",
		OpenRouterKey: "YOUR_OPENROUTER_API_KEY_HERE",
	}
}

// KeyUsable reports whether an API key looks real rather than empty or
// a placeholder left from the generated template.
func KeyUsable(key string) bool {
	if key == "" || len(key) < 10 {
		return false
	}
	upper := strings.ToUpper(key)
	if strings.Contains(upper, "YOUR_") || strings.HasSuffix(upper, "_HERE") {
		return false
	}
	return true
}

// AIConfigManager loads the AI configuration and hot-reloads it when
// the file changes on disk.
type AIConfigManager struct {
	filePath string
	mu       sync.RWMutex
	cfg      AIConfig
	watcher  *fsnotify.Watcher
	onChange func(AIConfig)
}

// NewAIConfigManager reads the config file, writing a template with
// placeholder keys if it does not exist yet.
func NewAIConfigManager(filePath string) (*AIConfigManager, error) {
	m := &AIConfigManager{filePath: filePath, cfg: DefaultAIConfig()}
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads the configuration from disk.
func (m *AIConfigManager) Load() error {
	data, err := os.ReadFile(m.filePath)
	if os.IsNotExist(err) {
		return m.writeTemplate()
	}
	if err != nil {
		return fmt.Errorf("read ai config: %w", err)
	}

	cfg := DefaultAIConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse ai config: %w", err)
	}
	if cfg.IntervalSecs <= 0 {
		cfg.IntervalSecs = 300
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// Get returns the current configuration snapshot.
func (m *AIConfigManager) Get() AIConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Watch starts watching the config file for changes. onChange runs on
// every successful reload.
func (m *AIConfigManager) Watch(onChange func(AIConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}

	m.watcher = watcher
	m.onChange = onChange

	if err := watcher.Add(m.filePath); err != nil {
		watcher.Close()
		return fmt.Errorf("watch ai config: %w", err)
	}

	go m.watchLoop()
	return nil
}

func (m *AIConfigManager) watchLoop() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				slog.Info("AI config changed, reloading", "file", event.Name)
				if err := m.Load(); err != nil {
					slog.Error("Failed to reload AI config", "error", err)
				} else if m.onChange != nil {
					m.onChange(m.Get())
				}
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("AI config watcher error", "error", err)
		}
	}
}

// Stop stops watching the config file.
func (m *AIConfigManager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
}

func (m *AIConfigManager) writeTemplate() error {
	data, err := json.MarshalIndent(m.Get(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.filePath, data, 0600); err != nil {
		return fmt.Errorf("write ai config template: %w", err)
	}
	slog.Info("Wrote AI config template, edit it to enable analysis", "file", m.filePath)
	return nil
}
