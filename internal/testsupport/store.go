package testsupport

import (
	"context"
	"testing"

	"vodforge/internal/config"
	"vodforge/internal/queue"
	"vodforge/internal/rendition"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnqueue submits a job with the default rendition ladder.
func MustEnqueue(t testing.TB, store *queue.Store, id, input string) queue.EnqueueResult {
	t.Helper()

	res, err := store.Enqueue(context.Background(), queue.NewJob{ID: id, InputLocation: input, Variants: rendition.Defaults()})
	if err != nil {
		t.Fatalf("store.Enqueue(%s): %v", id, err)
	}
	return res
}
