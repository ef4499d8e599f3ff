package remote

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by ObjectStore implementations for missing
// objects. Implementations should return an error satisfying errors.Is.
var ErrObjectNotFound = errors.New("object not found")

// ContentTypeJSON is the content type of uploaded dataset documents.
const ContentTypeJSON = "application/json"

// ObjectInfo carries the version tag and size of a stored object.
type ObjectInfo struct {
	// ETag is the version tag as returned by the store. Surrounding quotes
	// are optional; callers compare via TrimETag.
	ETag          string
	ContentLength *int64
}

// ObjectStore is the subset of an S3-compatible API the syncer consumes.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// Get downloads a whole object.
	Get(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error)
	// Put uploads data with the given content type and returns the new
	// version tag.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (ObjectInfo, error)
	// Head fetches the version tag without the body.
	Head(ctx context.Context, bucket, key string) (ObjectInfo, error)
}
