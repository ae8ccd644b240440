package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"vodforge/internal/logging"
)

// S3Options configures an S3-compatible store.
type S3Options struct {
	// Endpoint is host[:port] without a scheme.
	Endpoint      string
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string
}

// S3 stores objects in a bucket on an S3-compatible service such as MinIO.
// Buckets are addressed path-style.
type S3 struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// NewS3 constructs an S3 store. It does not contact the service.
func NewS3(opts S3Options, logger *slog.Logger) (*S3, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	bucket := strings.TrimSpace(opts.Bucket)
	if endpoint == "" || bucket == "" {
		return nil, errors.New("s3 store requires an endpoint and a bucket")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       opts.UseSSL,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	base := strings.TrimSpace(opts.PublicBaseURL)
	if base == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + endpoint + "/" + bucket
	}
	return &S3{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(base, "/"),
		logger:  logging.NewComponentLogger(logger, "s3"),
	}, nil
}

// Put uploads body as a single object, replacing any existing one.
func (s *S3) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}
	info, err := s.client.PutObject(ctx, s.bucket, cleaned, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, cleaned, err)
	}
	s.logger.Debug("object uploaded",
		logging.String("key", cleaned),
		logging.Int64("size", info.Size),
		logging.String("etag", info.ETag),
	)
	return nil
}

// URL returns the public address of key.
func (s *S3) URL(key string) string {
	return joinURL(s.baseURL, key)
}

// Check verifies the bucket exists and the credentials can see it.
func (s *S3) Check(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}
