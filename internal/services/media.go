package services

import (
	"context"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
)

// MinioMediaStore keeps captured photos as MinIO objects. The returned
// reference URI is opaque to the rest of the system; deleting a route never
// reclaims the media behind it.
type MinioMediaStore struct {
	client *minio.Client
	bucket string
}

func NewMinioMediaStore(client *minio.Client, bucket string) *MinioMediaStore {
	return &MinioMediaStore{client: client, bucket: bucket}
}

// Store uploads one captured photo and returns its reference URI.
func (s *MinioMediaStore) Store(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	key := uuid.New().String() + filepath.Ext(filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", errors.Wrap(err, "upload capture media")
	}
	return "minio://" + s.bucket + "/" + key, nil
}
