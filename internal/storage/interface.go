package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the interface for the opaque key-value blob backend.
// The queue document is small, so objects are moved as whole byte slices
// rather than streams.
type ObjectStore interface {
	// Get retrieves an object's full contents. Returns ErrNotFound if the
	// key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes an object's full contents, replacing any previous version.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Delete removes an object from storage.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)

	// EnsureBucket prepares the backing container for first use.
	EnsureBucket(ctx context.Context) error
}
