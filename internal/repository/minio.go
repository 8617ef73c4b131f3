package repository

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient serves the platform's blob objects: course questions,
// solution (answer-key) files, icons and raw repository archives.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

func NewMinIOClient(endpoint, accessKey, secretKey, bucket string) (*MinIOClient, error) {
	secure := !isInsecureEndpoint(endpoint)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client for %s: %w", endpoint, err)
	}
	return &MinIOClient{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket check %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("minio make bucket %s: %w", m.bucket, err)
	}
	return nil
}

// GetObject opens one object for reading. Errors may surface lazily on
// the first Read.
func (m *MinIOClient) GetObject(ctx context.Context, object string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get %s: %w", object, err)
	}
	return obj, nil
}

// PresignedGet returns a time-limited download URL for one object.
func (m *MinIOClient) PresignedGet(ctx context.Context, object string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, object, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("minio presign %s: %w", object, err)
	}
	return u.String(), nil
}

func isInsecureEndpoint(endpoint string) bool {
	for _, prefix := range []string{"localhost", "127.0.0.1", "minio:", "host.docker.internal"} {
		if strings.HasPrefix(endpoint, prefix) {
			return true
		}
	}
	return false
}
