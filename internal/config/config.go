package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Interface      string
	Addr           string
	DBPath         string
	LogDir         string
	OUIPath        string
	GeoDBPath      string
	AIConfigPath   string
	SuricataEve    string
	MockMode       bool
	Debug          bool
	Tools          []string
	RegistrySecs   int
	ScanSecs       int
	AlertSecs      int
	IftopSecs      int
	Remediate      bool
	AllowedOrigins []string
	AdminPassword  string
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables. A .env file, when
// present, seeds the environment before anything is read.
func Load() *Config {
	if err := godotenv.Load(getEnv("NETGUARD_ENV_FILE", ".env")); err == nil {
		log.Printf("Loaded environment overrides from .env file")
	}

	cfg := &Config{}

	// Defaults and Environment Variables
	toolStr := getEnv("NETGUARD_TOOLS", strings.Join(domain.AllTools, ","))
	originStr := getEnv("NETGUARD_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")
	cfg.Interface = getEnv("NETGUARD_INTERFACE", "eth0")
	cfg.Addr = getEnv("NETGUARD_ADDR", ":8080")
	cfg.DBPath = getEnv("NETGUARD_DB", getDefaultDBPath())
	cfg.LogDir = getEnv("NETGUARD_LOG_DIR", "/var/log/netguard")
	cfg.OUIPath = getEnv("NETGUARD_OUI_DB", defaultDataPath("oui.db"))
	cfg.GeoDBPath = getEnv("NETGUARD_GEOIP_DB", "")
	cfg.AIConfigPath = getEnv("NETGUARD_AI_CONFIG", "ai_config.json")
	cfg.SuricataEve = getEnv("NETGUARD_SURICATA_EVE", "/var/log/suricata/eve.json")
	cfg.MockMode = getEnvBool("NETGUARD_MOCK", false)
	cfg.RegistrySecs = getEnvInt("NETGUARD_REGISTRY_INTERVAL", 30)
	cfg.ScanSecs = getEnvInt("NETGUARD_SCAN_INTERVAL", 300)
	cfg.AlertSecs = getEnvInt("NETGUARD_ALERT_INTERVAL", 300)
	cfg.IftopSecs = getEnvInt("NETGUARD_IFTOP_INTERVAL", 310)
	cfg.Remediate = getEnvBool("NETGUARD_REMEDIATE", true)
	cfg.AdminPassword = getEnv("NETGUARD_ADMIN_PASSWORD", "netguard")

	// Command Line Flags (Override Env)
	flag.StringVar(&cfg.Interface, "i", cfg.Interface, "Network interface to monitor")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	flag.StringVar(&cfg.LogDir, "logs", cfg.LogDir, "Directory holding capture tool output")
	flag.StringVar(&cfg.OUIPath, "oui", cfg.OUIPath, "Path to OUI vendor database")
	flag.StringVar(&cfg.GeoDBPath, "geodb", cfg.GeoDBPath, "Path to MaxMind GeoIP database (empty to disable)")
	flag.StringVar(&cfg.AIConfigPath, "ai-config", cfg.AIConfigPath, "Path to AI analyzer configuration")
	flag.StringVar(&cfg.SuricataEve, "suricata-eve", cfg.SuricataEve, "Path to suricata's eve.json log")
	flag.StringVar(&toolStr, "tools", toolStr, "Capture tools to run (comma separated)")
	flag.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run in mock mode (synthetic traffic)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	flag.IntVar(&cfg.ScanSecs, "scan-interval", cfg.ScanSecs, "IoT scan interval in seconds")
	flag.IntVar(&cfg.AlertSecs, "alert-interval", cfg.AlertSecs, "Alert engine interval in seconds")
	flag.BoolVar(&cfg.Remediate, "remediate", cfg.Remediate, "Allow rules to run remediation commands")

	flag.Parse()

	cfg.Tools = parseList(toolStr)
	cfg.AllowedOrigins = parseList(originStr)

	return cfg
}

// ToolEnabled reports whether a capture tool is in the configured set.
func (c *Config) ToolEnabled(tool string) bool {
	for _, t := range c.Tools {
		if t == tool {
			return true
		}
	}
	return false
}

// ToolLogPath returns the file a capture tool writes its output to.
func (c *Config) ToolLogPath(tool string) string {
	return filepath.Join(c.LogDir, tool+".log")
}

func parseList(s string) []string {
	var items []string
	if s == "" {
		return items
	}
	parts := strings.Split(s, ",")
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	return defaultDataPath("netguard.db")
}

func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return name
	}

	// Use ~/.netguard directory
	dataDir := filepath.Join(home, ".netguard")

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Printf("Warning: Could not create .netguard directory, using current dir: %v", err)
		return name
	}

	return filepath.Join(dataDir, name)
}
