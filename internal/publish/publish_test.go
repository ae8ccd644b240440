package publish_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"vodforge/internal/logging"
	"vodforge/internal/objectstore"
	"vodforge/internal/publish"
	"vodforge/internal/services"
	"vodforge/internal/testsupport"
)

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "master.m3u8"), []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatalf("write master: %v", err)
	}
	for _, variant := range []string{"360p", "720p"} {
		testsupport.WriteVariant(t, root, variant, 2)
	}
	return root
}

func TestPublishUploadsTreeWithContentTypes(t *testing.T) {
	root := writeTree(t)
	store := testsupport.NewMemoryStore()
	publisher := publish.New(store, 2, logging.NewNop())

	locator, err := publisher.Publish(context.Background(), root, "videos/v1")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if locator != "http://localhost:9000/stream-bucket/videos/v1/master.m3u8" {
		t.Fatalf("unexpected locator %q", locator)
	}

	want := []string{
		"videos/v1/360p/index.m3u8",
		"videos/v1/360p/segment000.ts",
		"videos/v1/360p/segment001.ts",
		"videos/v1/720p/index.m3u8",
		"videos/v1/720p/segment000.ts",
		"videos/v1/720p/segment001.ts",
		"videos/v1/master.m3u8",
	}
	if got := store.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected keys:\n got %v\nwant %v", got, want)
	}
	obj, _ := store.Object("videos/v1/720p/segment001.ts")
	if obj.ContentType != "video/mp2t" || string(obj.Body) != "720p/segment001.ts" {
		t.Fatalf("unexpected segment object %+v", obj)
	}
	obj, _ = store.Object("videos/v1/360p/index.m3u8")
	if obj.ContentType != "application/vnd.apple.mpegurl" {
		t.Fatalf("unexpected playlist content type %q", obj.ContentType)
	}
}

func TestPublishTwiceIsIdempotent(t *testing.T) {
	root := writeTree(t)
	remote := t.TempDir()
	store, err := objectstore.NewFilesystem(remote, "")
	if err != nil {
		t.Fatalf("NewFilesystem failed: %v", err)
	}
	publisher := publish.New(store, 3, logging.NewNop())

	if _, err := publisher.Publish(context.Background(), root, "videos/v1"); err != nil {
		t.Fatalf("first Publish failed: %v", err)
	}
	first := snapshot(t, remote)
	if _, err := publisher.Publish(context.Background(), root, "videos/v1"); err != nil {
		t.Fatalf("second Publish failed: %v", err)
	}
	if second := snapshot(t, remote); !reflect.DeepEqual(first, second) {
		t.Fatalf("object set changed after re-publish:\n first %v\nsecond %v", first, second)
	}
	if len(first) != 7 {
		t.Fatalf("expected 7 objects, got %d", len(first))
	}
}

func TestPublishFailureIsWrapped(t *testing.T) {
	root := writeTree(t)
	store := testsupport.NewMemoryStore()
	store.FailKeys = []string{"720p/segment001.ts"}
	publisher := publish.New(store, 1, logging.NewNop())

	_, err := publisher.Publish(context.Background(), root, "videos/v1")
	if err == nil {
		t.Fatal("expected publish failure")
	}
	if !errors.Is(err, publish.ErrPublishFailed) || !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected publish/storage markers, got %v", err)
	}
}

func TestPublishRejectsEmptyTree(t *testing.T) {
	publisher := publish.New(testsupport.NewMemoryStore(), 1, logging.NewNop())
	if _, err := publisher.Publish(context.Background(), t.TempDir(), "videos/v1"); !errors.Is(err, publish.ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}
	if _, err := publisher.Publish(context.Background(), t.TempDir(), "/"); !errors.Is(err, publish.ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed for empty prefix, got %v", err)
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"a/index.m3u8":  "application/vnd.apple.mpegurl",
		"a/seg000.TS":   "video/mp2t",
		"a/blob.noext9": "application/octet-stream",
	}
	for key, want := range cases {
		if got := publish.ContentType(key); got != want {
			t.Fatalf("ContentType(%q) = %q, want %q", key, got, want)
		}
	}
}

func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk remote: %v", err)
	}
	return out
}
