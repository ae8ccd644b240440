package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Filesystem mirrors objects into a directory tree rooted at Root.
type Filesystem struct {
	Root    string
	baseURL string
}

// NewFilesystem constructs a filesystem store. Without a public base URL,
// locators are file:// URLs.
func NewFilesystem(root, publicBaseURL string) (*Filesystem, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("filesystem store requires a root directory")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve filesystem store root: %w", err)
	}
	base := strings.TrimSpace(publicBaseURL)
	if base == "" {
		base = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	return &Filesystem{Root: abs, baseURL: strings.TrimRight(base, "/")}, nil
}

// Put writes body to Root/key through a temporary file, replacing any
// existing file.
func (f *Filesystem) Put(ctx context.Context, key string, body io.Reader, size int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}
	target := filepath.Join(f.Root, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write object %s: %w", cleaned, err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("write object %s: short write (%d of %d bytes)", cleaned, written, size)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod object %s: %w", cleaned, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("commit object %s: %w", cleaned, err)
	}
	return nil
}

// URL returns the locator of key.
func (f *Filesystem) URL(key string) string {
	return joinURL(f.baseURL, key)
}

// Check verifies Root is a writable directory.
func (f *Filesystem) Check(context.Context) error {
	if err := os.MkdirAll(f.Root, 0o755); err != nil {
		return fmt.Errorf("create filesystem store root: %w", err)
	}
	if err := unix.Access(f.Root, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("filesystem store root %s is not writable: %w", f.Root, err)
	}
	return nil
}
