// Package config provides configuration loading for recalld.
//
// Configuration is loaded from a YAML file, then overridden by environment
// variables, with hardcoded defaults for anything left unset.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/telemetry"
)

// Config holds the complete recalld configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    logging.Config   `koanf:"logging"`
	Telemetry  telemetry.Config `koanf:"telemetry"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Generation GenerationConfig `koanf:"generation"`
	Blob       BlobConfig       `koanf:"blob"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// EmbeddingsConfig holds embedding provider configuration.
type EmbeddingsConfig struct {
	Provider  string `koanf:"provider"` // "gemini" or "http"
	APIKey    Secret `koanf:"api_key"`
	Model     string `koanf:"model"`
	BaseURL   string `koanf:"base_url"` // http provider only
	Dimension int    `koanf:"dimension"`
}

// GenerationConfig holds text generation configuration.
type GenerationConfig struct {
	APIKey          Secret  `koanf:"api_key"`
	Model           string  `koanf:"model"`
	MaxOutputTokens int32   `koanf:"max_output_tokens"`
	Temperature     float32 `koanf:"temperature"`
	TopP            float32 `koanf:"top_p"`
}

// BlobConfig holds snapshot blob store configuration.
type BlobConfig struct {
	Provider string `koanf:"provider"` // "fs" or "nats"
	Path     string `koanf:"path"`     // fs root directory
	URL      string `koanf:"url"`      // nats server URL
	Bucket   string `koanf:"bucket"`   // nats object store bucket
}

// RetrievalConfig holds retrieval defaults.
type RetrievalConfig struct {
	TopK int `koanf:"top_k"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	switch c.Embeddings.Provider {
	case "gemini":
		if !c.Embeddings.APIKey.IsSet() {
			return errors.New("embeddings api_key required for gemini provider")
		}
	case "http":
		if c.Embeddings.BaseURL == "" {
			return errors.New("embeddings base_url required for http provider")
		}
	default:
		return fmt.Errorf("unknown embeddings provider: %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", c.Embeddings.Dimension)
	}
	if c.Embeddings.Model == "" {
		return errors.New("embeddings model required")
	}

	if !c.Generation.APIKey.IsSet() {
		return errors.New("generation api_key required")
	}
	if c.Generation.Model == "" {
		return errors.New("generation model required")
	}
	if c.Generation.MaxOutputTokens <= 0 {
		return errors.New("generation max_output_tokens must be positive")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation temperature out of range: %v", c.Generation.Temperature)
	}
	if c.Generation.TopP < 0 || c.Generation.TopP > 1 {
		return fmt.Errorf("generation top_p out of range: %v", c.Generation.TopP)
	}

	switch c.Blob.Provider {
	case "fs":
		if c.Blob.Path == "" {
			return errors.New("blob path required for fs provider")
		}
	case "nats":
		if c.Blob.URL == "" {
			return errors.New("blob url required for nats provider")
		}
		if c.Blob.Bucket == "" {
			return errors.New("blob bucket required for nats provider")
		}
	default:
		return fmt.Errorf("unknown blob provider: %q", c.Blob.Provider)
	}

	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval top_k must be positive: %d", c.Retrieval.TopK)
	}

	return nil
}
