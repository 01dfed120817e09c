package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/watermarkremover/internal/config"
)

// s3Source reads s3://bucket/key objects through a MinIO client.
type s3Source struct {
	getObject func(ctx context.Context, bucket, key string) (objectReader, error)
}

func newS3Source(cfg *config.StorageConfig) (*s3Source, error) {
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}

	creds := credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, "")
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 client: %w", err)
	}

	zlog.Logger.Info().
		Str("endpoint", cfg.S3Endpoint).
		Bool("ssl", cfg.S3UseSSL).
		Msg("s3 image source initialized")

	return &s3Source{
		getObject: func(ctx context.Context, bucket, key string) (objectReader, error) {
			obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
			if err != nil {
				return nil, err
			}
			return obj, nil
		},
	}, nil
}

func parseS3URL(u *url.URL) (bucket, key string, err error) {
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url must look like s3://bucket/key, got %q", u.String())
	}
	return bucket, key, nil
}

func (s *s3Source) open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	bucket, key, err := parseS3URL(u)
	if err != nil {
		return nil, err
	}

	obj, err := s.getObject(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}

	// GetObject is lazy; Stat surfaces missing objects and auth errors
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code != "" {
			return nil, fmt.Errorf("stat object %s/%s: %s: %w", bucket, key, resp.Code, err)
		}
		return nil, fmt.Errorf("stat object %s/%s: %w", bucket, key, err)
	}
	return obj, nil
}
