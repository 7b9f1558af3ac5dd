package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSStore stores blobs in a JetStream Object Store bucket.
type NATSStore struct {
	nc  *nats.Conn
	obj nats.ObjectStore
}

// NewNATSStore connects to the NATS server at url and binds the object store
// bucket, creating it if it does not exist.
func NewNATSStore(url, bucket string) (*NATSStore, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: nats url required", ErrInvalidConfig)
	}
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket name required", ErrInvalidConfig)
	}

	nc, err := nats.Connect(url,
		nats.Name("recalld"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	obj, err := js.ObjectStore(bucket)
	if errors.Is(err, nats.ErrStreamNotFound) {
		obj, err = js.CreateObjectStore(&nats.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "recalld tenant snapshots",
		})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("binding object store bucket %q: %w", bucket, err)
	}

	return &NATSStore{nc: nc, obj: obj}, nil
}

// Put writes data under key, overwriting any previous object.
func (s *NATSStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if _, err := s.obj.PutBytes(key, data); err != nil {
		return fmt.Errorf("putting object %q: %w", key, err)
	}
	return nil
}

// Get returns the object stored under key, or ErrNotFound.
func (s *NATSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	data, err := s.obj.GetBytes(key)
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("getting object %q: %w", key, err)
	}
	return data, nil
}

// Close drains the NATS connection.
func (s *NATSStore) Close() error {
	s.nc.Close()
	return nil
}
