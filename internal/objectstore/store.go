// Package objectstore uploads published files to an S3-compatible bucket or,
// for offline use, to a local directory tree with the same key layout.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"vodforge/internal/config"
)

// Store writes objects under slash-separated keys. Put overwrites any object
// already stored under the key.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	URL(key string) string
}

// Checker is implemented by stores that can verify their target is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// New builds the store selected by storage.backend.
func New(cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendS3:
		return NewS3(S3Options{
			Endpoint:      cfg.Storage.Endpoint,
			Bucket:        cfg.Storage.Bucket,
			Region:        cfg.Storage.Region,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			UseSSL:        cfg.Storage.UseSSL,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		}, logger)
	case config.StorageBackendFilesystem:
		return NewFilesystem(cfg.Storage.FilesystemRoot, cfg.Storage.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// CleanKey normalizes a key and rejects ones that would escape the bucket or
// root directory.
func CleanKey(key string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", fmt.Errorf("object key is empty")
	}
	for _, part := range strings.Split(trimmed, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("object key %q has an invalid path segment", key)
		}
	}
	return trimmed, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
