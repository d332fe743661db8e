package driven

import "context"

// ObjectStorage keeps the raw bytes of uploaded files.
type ObjectStorage interface {
	// Put stores data at path.
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// Get returns the bytes stored at path.
	// Returns domain.ErrNotFound if nothing is stored there.
	Get(ctx context.Context, path string) ([]byte, error)

	// Delete removes the object at path. Missing objects are not an error.
	Delete(ctx context.Context, path string) error
}
