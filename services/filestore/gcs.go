package filestore

import (
	"context"
	"fmt"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/24vibes/vibes/core"
)

// GCS stores files in a Google Cloud Storage (or Firebase Storage) bucket.
// Returned URLs are Firebase download URLs, authorised by a per-object download token.
type GCS struct {
	client *storage.Client
	bucket string
}

var _ core.FileStorage = (*GCS)(nil)

func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("storage bucket is not configured")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (s *GCS) Close() error {
	return s.client.Close()
}

func (s *GCS) Put(ctx context.Context, path string, data []byte, contentType string, metadata map[string]string) (string, error) {
	token := uuid.New().String()
	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["firebaseStorageDownloadTokens"] = token

	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = meta
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return downloadURL(s.bucket, path, token), nil
}

func downloadURL(bucket, path, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(path), token)
}
