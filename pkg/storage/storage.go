// Package storage wraps the S3 object API with the narrow surface the
// invocation engine needs: paged listing, download to a local path,
// and upload from a local path.
package storage

import (
	"context"
	"time"
)

// Object describes one listed S3 object, structurally compatible with
// the S3 Object API. This is the shape the execution filter sees.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ObjectStore is the object-store surface consumed by the engine.
//
// Implementations must be safe for concurrent use; the engine issues
// downloads and uploads from bounded worker pools.
type ObjectStore interface {
	// List returns every object under prefix in the bucket, in
	// listing order (lexicographic on key).
	List(ctx context.Context, bucket, prefix string) ([]Object, error)

	// Download fetches the object body into the local file at path,
	// creating parent directories as needed.
	Download(ctx context.Context, bucket, key, path string) error

	// Upload stores the local file at path as the object at key.
	Upload(ctx context.Context, bucket, key, path string) error
}
