package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func NewClient(endpoint, key, secret string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(key, secret, ""),
		Secure: useSSL,
	})
}

// Storage uploads objects and hands back a browser-reachable URL. When
// publicBaseURL is set it is used instead of the endpoint, so a CDN or reverse
// proxy can front the bucket.
type Storage struct {
	client        *minio.Client
	publicBaseURL string
	useSSL        bool
}

func NewStorage(client *minio.Client, publicBaseURL string, useSSL bool) *Storage {
	return &Storage{
		client:        client,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		useSSL:        useSSL,
	}
}

func (s *Storage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return "", fmt.Errorf("minio: check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("minio: create bucket: %w", err)
		}
	}

	if _, err := s.client.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("minio: put object: %w", err)
	}

	return s.objectURL(bucket, objectName), nil
}

func (s *Storage) objectURL(bucket, objectName string) string {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, bucket, objectName)
	}
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, bucket, objectName)
}
