package core

import "context"

// FileStorage stores blobs and returns their public URL.
type FileStorage interface {
	Put(ctx context.Context, path string, data []byte, contentType string, metadata map[string]string) (string, error)
}
