// Package blob provides durable blob storage for tenant snapshots.
package blob

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key does not exist in the store.
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidKey indicates a malformed or unsafe key.
	ErrInvalidKey = errors.New("invalid blob key")

	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Store is a durable key/value blob store. Writes replace any existing value
// for the key. Keys are namespaced by the caller (tenant id and artifact
// kind); the store itself is tenant-agnostic.
type Store interface {
	// Put writes data under key, overwriting any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the data stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Close releases resources held by the store.
	Close() error
}

// Config holds configuration for creating a blob store.
type Config struct {
	// Provider is the store type: "fs" or "nats"
	Provider string
	// Path is the root directory (fs provider only)
	Path string
	// URL is the NATS server URL (nats provider only)
	URL string
	// Bucket is the object store bucket name (nats provider only)
	Bucket string
}

// NewStore creates a blob store based on the configuration.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Provider {
	case "fs", "":
		return NewFSStore(cfg.Path)
	case "nats":
		return NewNATSStore(cfg.URL, cfg.Bucket)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
