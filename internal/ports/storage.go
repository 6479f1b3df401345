package ports

import (
	"context"
	"io"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// ObjectKey is what later calls address the object by. Usually the input
	// key; for gdrive it is the Drive file id.
	ObjectKey string
	Size      int64
}

// StorageProvider is a blob store that renders publish into (localfs, gdrive,
// gcs, minio).
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error

	// PublicURL returns a URL a client can fetch the object from.
	PublicURL(ctx context.Context, objectKey string) (string, error)

	// Check verifies the backend is reachable and configured.
	Check(ctx context.Context) error
}
