package ports

import (
	"context"
	"io"
)

// BlobStore is the opaque file-persistence collaborator. Uploads must
// complete (or fail) before any metadata referencing the key is committed.
type BlobStore interface {
	Put(ctx context.Context, key string, content io.Reader, contentType string) (size int64, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
