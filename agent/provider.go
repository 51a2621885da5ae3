package agent

import (
	"context"
	"fmt"
	"log/slog"

	"soil-health-agent/config"
	"soil-health-agent/metrics"
)

// NewModel builds the model backend selected by cfg.ModelProvider, wrapped
// with retries and a circuit breaker.
func NewModel(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (ChatModel, error) {
	var base ChatModel

	switch cfg.ModelProvider {
	case config.ProviderOllama:
		base = NewOllamaModel(cfg.OllamaModel, cfg.OllamaURL, logger)

	case config.ProviderGemini, "":
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY is required when MODEL_PROVIDER is %s", config.ProviderGemini)
		}
		gemini, err := NewGeminiModel(ctx, cfg.GoogleAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, err
		}
		base = gemini

	default:
		return nil, fmt.Errorf("unknown MODEL_PROVIDER %q (want %s or %s)", cfg.ModelProvider, config.ProviderGemini, config.ProviderOllama)
	}

	return WithResilience(base, DefaultResilience(cfg.ModelMaxRetries), logger, m), nil
}
