package storage

import (
	"context"
	"io"
	"time"
)

type UploadResult struct {
	Key  string
	ETag string
}

// FileUploader is the object store behind scoreboard images. Keys are storage
// paths; objects are private and only reachable through presigned URLs.
type FileUploader interface {
	// Upload stores exactly size bytes read from reader under key.
	Upload(ctx context.Context, key string, contentType string, size int64, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
