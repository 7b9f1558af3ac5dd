package generation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Config holds configuration for the Gemini generator.
type Config struct {
	// APIKey is the Gemini API key
	APIKey string
	// Model is the generation model (e.g. "gemini-1.5-flash-002")
	Model string
	// MaxOutputTokens bounds the completion length
	MaxOutputTokens int32
	// Temperature controls sampling randomness
	Temperature float32
	// TopP is the nucleus sampling threshold
	TopP float32
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// GeminiGenerator generates text via the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	config Config
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiGenerator{client: client, config: cfg}, nil
}

// Generate sends the prompt to the model and returns the raw response text.
// A response without any text yields an empty string, not an error.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: g.config.MaxOutputTokens,
		Temperature:     genai.Ptr(g.config.Temperature),
		TopP:            genai.Ptr(g.config.TopP),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}

// Close is a no-op; the genai client holds no persistent connection.
func (g *GeminiGenerator) Close() error { return nil }
