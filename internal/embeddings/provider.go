package embeddings

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "gemini" or "http"
	Provider string
	// Model is the embedding model name
	Model string
	// Dimension is the embedding dimension
	Dimension int
	// APIKey is the Gemini API key (gemini provider only)
	APIKey string
	// BaseURL is the embedding endpoint URL (http provider only)
	BaseURL string
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(ctx context.Context, cfg ProviderConfig, logger *zap.Logger) (Embedder, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiEmbedder(ctx, GeminiConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		}, logger)
	case "http":
		return NewService(Config{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
