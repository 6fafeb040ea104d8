package source

import (
	"context"
	"fmt"
	"io"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config addresses an S3-compatible object store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool
}

// S3Fetcher downloads snapshots from an S3-compatible store with minio-go.
type S3Fetcher struct {
	client *minio.Client
}

// NewS3Fetcher creates a fetcher for cfg.
func NewS3Fetcher(cfg S3Config) (*S3Fetcher, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required: %w", ffmm.ErrInvalidConfig)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &S3Fetcher{client: client}, nil
}

// Fetch downloads bucket/key in full. Missing buckets or keys wrap ffmm.ErrSourceNotFound.
func (s *S3Fetcher) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	uri := fmt.Sprintf("s3://%s/%s", bucket, key)

	if _, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		if isMissingObject(err) {
			return nil, fmt.Errorf("%s: %w", uri, ffmm.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", uri, err)
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", uri, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", uri, err)
	}
	return data, nil
}

func isMissingObject(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound", "AccessDenied":
		return true
	}
	return false
}
