package embeddings

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiConfig holds configuration for the Gemini embedding provider.
type GeminiConfig struct {
	// APIKey is the Gemini API key
	APIKey string
	// Model is the embedding model (e.g. "gemini-embedding-001")
	Model string
	// Dimension is the requested output dimensionality
	Dimension int
}

// Validate validates the configuration.
func (c GeminiConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// GeminiEmbedder generates embeddings via the Gemini API.
type GeminiEmbedder struct {
	client  *genai.Client
	config  GeminiConfig
	metrics *Metrics
}

// NewGeminiEmbedder creates a Gemini-backed embedder. Instrument creation
// failures are logged through the provided logger.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiEmbedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiEmbedder{
		client:  client,
		config:  cfg,
		metrics: NewMetrics(logger),
	}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (g *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		g.metrics.RecordGeneration(ctx, g.config.Model, "embed_documents", time.Since(start), len(texts), genErr)
	}()

	if len(texts) == 0 {
		genErr = fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := g.embed(ctx, text)
		if err != nil {
			genErr = err
			return nil, genErr
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (g *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		g.metrics.RecordGeneration(ctx, g.config.Model, "embed_query", time.Since(start), 1, genErr)
	}()

	vec, err := g.embed(ctx, text)
	if err != nil {
		genErr = err
		return nil, genErr
	}
	return vec, nil
}

func (g *GeminiEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	dim := int32(g.config.Dimension)
	resp, err := g.client.Models.EmbedContent(ctx, g.config.Model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("%w: no predictions in response", ErrEmbeddingFailed)
	}

	values := resp.Embeddings[0].Values
	if len(values) != g.config.Dimension {
		return nil, fmt.Errorf("%w: got dimension %d, want %d", ErrEmbeddingFailed, len(values), g.config.Dimension)
	}
	return values, nil
}

// Dimension returns the configured embedding dimension.
func (g *GeminiEmbedder) Dimension() int {
	return g.config.Dimension
}

// Close is a no-op; the genai client holds no persistent connection.
func (g *GeminiEmbedder) Close() error { return nil }
