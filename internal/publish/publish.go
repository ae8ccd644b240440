// Package publish mirrors a finished job output tree into the object store.
//
// Every regular file under the local root is uploaded under the remote prefix
// with its relative path preserved. Uploads overwrite, so publishing the same
// tree twice leaves the remote object set unchanged.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"vodforge/internal/logging"
	"vodforge/internal/manifest"
	"vodforge/internal/objectstore"
	"vodforge/internal/services"
)

// ErrPublishFailed marks errors raised while mirroring output to storage.
var ErrPublishFailed = errors.New("publish failed")

const defaultConcurrency = 4

// Publisher uploads job output trees.
type Publisher struct {
	store       objectstore.Store
	concurrency int
	logger      *slog.Logger
}

// New returns a Publisher that runs at most concurrency uploads at once.
func New(store objectstore.Store, concurrency int, logger *slog.Logger) *Publisher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Publisher{
		store:       store,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(logger, "publisher"),
	}
}

type upload struct {
	local string
	key   string
}

// Publish uploads every file under localRoot to remotePrefix and returns the
// locator of the master playlist. The first failed upload cancels the rest.
func (p *Publisher) Publish(ctx context.Context, localRoot, remotePrefix string) (string, error) {
	prefix := strings.Trim(remotePrefix, "/")
	if prefix == "" {
		return "", failure("validate", "remote prefix is empty", nil)
	}

	uploads, err := collect(localRoot, prefix)
	if err != nil {
		return "", failure("walk", "scan output directory", err)
	}
	if len(uploads) == 0 {
		return "", failure("walk", fmt.Sprintf("no files under %s", localRoot), nil)
	}

	var uploaded atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.concurrency)
	for _, item := range uploads {
		group.Go(func() error {
			if err := p.put(groupCtx, item); err != nil {
				return err
			}
			uploaded.Add(1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return "", failure("upload", "upload output", err)
	}

	locator := p.store.URL(prefix + "/" + manifest.FileName)
	p.logger.Info("output published",
		logging.String(logging.FieldEventType, "publish_completed"),
		logging.Int64("objects", uploaded.Load()),
		logging.String("prefix", prefix),
		logging.String("locator", locator),
	)
	return locator, nil
}

func (p *Publisher) put(ctx context.Context, item upload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := os.Open(item.local)
	if err != nil {
		return fmt.Errorf("open %s: %w", item.local, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", item.local, err)
	}
	if err := p.store.Put(ctx, item.key, file, info.Size(), ContentType(item.key)); err != nil {
		return fmt.Errorf("put %s: %w", item.key, err)
	}
	p.logger.Debug("object uploaded", logging.String("key", item.key), logging.Int64("size", info.Size()))
	return nil
}

func collect(localRoot, prefix string) ([]upload, error) {
	var uploads []upload
	err := filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(localRoot, p)
		if err != nil {
			return err
		}
		uploads = append(uploads, upload{
			local: p,
			key:   path.Join(prefix, filepath.ToSlash(rel)),
		})
		return nil
	})
	return uploads, err
}

// ContentType returns the MIME type used when uploading key.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func failure(operation, message string, err error) error {
	return fmt.Errorf("%w: %w", ErrPublishFailed, services.Wrap(services.ErrStorage, "publishing", operation, message, err))
}
