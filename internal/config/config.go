// Package config loads configuration from the environment and sets up logging.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration values.
type Config struct {
	// Catalog source: an http(s) URL or a local file path.
	CatalogSource string

	// Chat completions endpoint (the forwarding server). The CLI never
	// holds an API credential; only the forwarder does.
	CompletionsURL string

	// Search forwarding endpoint. Empty disables web search.
	SearchURL string

	// Model and output limits
	Model            string
	ChatMaxTokens    int
	RoutineMaxTokens int

	// Local persistence directory (selected products, preferences)
	DataDir string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		CatalogSource:  getEnv("ROUTINA_CATALOG", "products.json"),
		CompletionsURL: getEnv("ROUTINA_COMPLETIONS_URL", "http://localhost:8787/v1/chat/completions"),
		SearchURL:      getEnv("ROUTINA_SEARCH_URL", ""),

		Model:            getEnv("ROUTINA_MODEL", "gpt-4o"),
		ChatMaxTokens:    getEnvInt("ROUTINA_CHAT_MAX_TOKENS", 500),
		RoutineMaxTokens: getEnvInt("ROUTINA_ROUTINE_MAX_TOKENS", 700),

		DataDir: getEnv("ROUTINA_DATA_DIR", defaultDataDir()),

		LogFile:  getEnv("ROUTINA_LOG_FILE", "/tmp/routina.log"),
		LogLevel: parseLogLevel(getEnv("ROUTINA_LOG_LEVEL", "INFO")),
	}
}

// defaultDataDir returns ~/.routina, falling back to a relative directory
// when the home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".routina"
	}
	return filepath.Join(home, ".routina")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
