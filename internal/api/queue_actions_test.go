package api_test

import (
	"context"
	"testing"
	"time"

	"vodforge/internal/api"
	"vodforge/internal/queue"
	"vodforge/internal/testsupport"
)

func TestRetryAndRemoveByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"failed-job", "active-job", "queued-job"} {
		testsupport.MustEnqueue(t, store, id, "/videos/"+id+".mp4")
	}
	if _, err := store.Claim(ctx, "w", time.Minute); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := store.Fail(ctx, "failed-job", "w", "boom"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	if _, err := store.Claim(ctx, "w", time.Minute); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	retry, err := api.RetryFailedJobsByID(ctx, store, []string{"failed-job", "queued-job", "nope"})
	if err != nil {
		t.Fatalf("RetryFailedJobsByID failed: %v", err)
	}
	if retry.UpdatedCount != 1 {
		t.Fatalf("expected one retried job, got %+v", retry)
	}
	want := []api.ActionOutcome{api.ActionUpdated, api.ActionNotFailed, api.ActionNotFound}
	for i, outcome := range want {
		if retry.Jobs[i].Outcome != outcome {
			t.Fatalf("job %d: expected %s, got %+v", i, outcome, retry.Jobs[i])
		}
	}
	if info, _ := store.State(ctx, "failed-job"); info.State != queue.StateQueued {
		t.Fatalf("expected failed job requeued, got %+v", info)
	}

	removed, err := api.RemoveJobsByID(ctx, store, []string{"active-job", "queued-job"})
	if err != nil {
		t.Fatalf("RemoveJobsByID failed: %v", err)
	}
	if removed.UpdatedCount != 1 || removed.Jobs[0].Outcome != api.ActionActive || removed.Jobs[1].Outcome != api.ActionUpdated {
		t.Fatalf("unexpected remove result %+v", removed)
	}
	if ids := removed.UpdatedIDs(); len(ids) != 1 || ids[0] != "queued-job" {
		t.Fatalf("UpdatedIDs() = %v", ids)
	}
}
