// Package config provides configuration management for the soil agent.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Model providers understood by agent.NewModel.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// DefaultLocation is the place analysed when none is given on the command line.
const DefaultLocation = "Mancherial"

// Config holds all application configuration.
type Config struct {
	OpenWeatherAPIKey string
	OpenWeatherURL    string

	ModelProvider   string
	GoogleAPIKey    string
	GeminiModel     string
	OllamaURL       string
	OllamaModel     string
	ModelMaxRetries int

	Location      string
	TelegramToken string
	MetricsAddr   string
	LogLevel      slog.Level
}

// Load reads configuration from environment variables with sensible defaults.
// Invalid numeric or level values fall back to their defaults.
func Load() *Config {
	level, err := ParseLogLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		level = slog.LevelInfo
	}

	return &Config{
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherURL:    getEnvOrDefault("OPENWEATHER_URL", "http://api.openweathermap.org/data/2.5/weather"),
		ModelProvider:     strings.ToLower(getEnvOrDefault("MODEL_PROVIDER", ProviderGemini)),
		GoogleAPIKey:      os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaURL:         getEnvOrDefault("OLLAMA_URL", "http://localhost:11434/api/chat"),
		OllamaModel:       getEnvOrDefault("OLLAMA_MODEL", "qwen3-coder:30b"),
		ModelMaxRetries:   getEnvInt("MODEL_MAX_RETRIES", 3),
		Location:          getEnvOrDefault("SOIL_LOCATION", DefaultLocation),
		TelegramToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
		LogLevel:          level,
	}
}

// ParseLogLevel maps debug, info, warn(ing) and error to slog levels.
func ParseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}
