package artifacts

import (
	"context"
	"io"
)

// PutRequest describes a single object write.
type PutRequest struct {
	Bucket      string
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
}

// Store port (interface untuk penyimpanan artefak)
//
// PublicURL must be deterministic given (bucket, region, key) and require no
// round trip to the store.
type Store interface {
	Put(ctx context.Context, req PutRequest) error
	PutFile(ctx context.Context, bucket, key, localPath, contentType string) error
	PublicURL(bucket, region, key string) string
}
