package storage

import (
	"context"
	"io"
	"time"
)

// Storage defines the interface for bucket-scoped object storage operations
type Storage interface {
	// Upload uploads data to the given object path, creating or overwriting it
	Upload(ctx context.Context, path string, r io.Reader) error

	// Download opens the object at the given path for reading
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// List lists all object names with the given prefix in provider order
	List(ctx context.Context, prefix string) ([]string, error)

	// ListWithMetadata lists objects with extended metadata (name, size, updated)
	ListWithMetadata(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Exists checks if an object exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// Close releases any resources held by the storage client
	Close() error
}

// BucketChecker is implemented by backends that can verify bucket access
type BucketChecker interface {
	BucketExists(ctx context.Context) (bool, error)
}

// ObjectInfo represents a storage object with extended metadata
type ObjectInfo struct {
	// Name is the full path to the object in storage
	Name string `json:"name"`
	// Size is the size of the object in bytes
	Size int64 `json:"size"`
	// Updated is the last modification time
	Updated time.Time `json:"updated"`
	// ContentType is the stored MIME type, when the backend reports one
	ContentType string `json:"content_type,omitempty"`
}
