// Package storage writes evidence objects to a public-read bucket.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when removing or reading a missing object
var ErrObjectNotFound = errors.New("object not found")

// BucketConfig describes the bucket to provision
type BucketConfig struct {
	Name             string
	Public           bool
	AllowedMIMETypes []string
	FileSizeLimit    int64
}

// Bucket is an object store scoped to one bucket
type Bucket interface {
	// EnsureBucket creates the bucket if it does not exist yet
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, path, contentType string, body io.Reader) error
	PublicURL(path string) string
	Remove(ctx context.Context, path string) error
}
