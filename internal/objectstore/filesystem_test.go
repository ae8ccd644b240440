package objectstore_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vodforge/internal/objectstore"
)

func TestFilesystemPutOverwrites(t *testing.T) {
	root := t.TempDir()
	store, err := objectstore.NewFilesystem(root, "")
	if err != nil {
		t.Fatalf("NewFilesystem failed: %v", err)
	}
	ctx := context.Background()

	for _, body := range []string{"first", "second"} {
		if err := store.Put(ctx, "videos/v1/master.m3u8", strings.NewReader(body), int64(len(body)), "application/vnd.apple.mpegurl"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	data, err := os.ReadFile(filepath.Join(root, "videos", "v1", "master.m3u8"))
	if err != nil || string(data) != "second" {
		t.Fatalf("expected overwritten object, got %q %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "videos", "v1"))
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left behind, got %d entries", len(entries))
	}
	if got := store.URL("videos/v1/master.m3u8"); got != "file://"+filepath.ToSlash(root)+"/videos/v1/master.m3u8" {
		t.Fatalf("unexpected url %q", got)
	}
	if err := store.Check(ctx); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
}

func TestFilesystemRejectsEscapingKeys(t *testing.T) {
	store, err := objectstore.NewFilesystem(t.TempDir(), "https://cdn.example.com/media/")
	if err != nil {
		t.Fatalf("NewFilesystem failed: %v", err)
	}
	for _, key := range []string{"", "../etc/passwd", "videos//x", "videos/./x"} {
		if err := store.Put(context.Background(), key, strings.NewReader("x"), 1, ""); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
	if got := store.URL("videos/v1/master.m3u8"); got != "https://cdn.example.com/media/videos/v1/master.m3u8" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestFilesystemShortWrite(t *testing.T) {
	store, _ := objectstore.NewFilesystem(t.TempDir(), "")
	if err := store.Put(context.Background(), "a/b", strings.NewReader("abc"), 10, ""); err == nil {
		t.Fatal("expected short write error")
	}
}
