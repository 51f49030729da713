package storage

import (
	"context"
	"io"
)

// Uploader persists and serves uploaded document files. Upload must be
// durable before it returns; Delete tolerates a missing object.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
	Open(ctx context.Context, storedPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, storedPath string) error
}
