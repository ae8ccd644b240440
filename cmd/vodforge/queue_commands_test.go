package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"vodforge/internal/api"
	"vodforge/internal/queue"
	"vodforge/internal/testsupport"
	"vodforge/internal/testsupport/redisstub"
)

func failJob(t *testing.T, store *queue.Store, id string) {
	t.Helper()
	ctx := context.Background()
	testsupport.MustEnqueue(t, store, id, "/media/in/"+id+".mp4")
	job, err := store.Claim(ctx, "test-worker", time.Minute)
	if err != nil || job == nil || job.ID != id {
		t.Fatalf("claim %s: job=%v err=%v", id, job, err)
	}
	if err := store.Fail(ctx, id, "test-worker", "job "+id+": transcoding: boom"); err != nil {
		t.Fatalf("fail %s: %v", id, err)
	}
}

func TestQueueRetryAndRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	failJob(t, store, "v1")
	testsupport.MustEnqueue(t, store, "v2", "/media/in/v2.mp4")

	out := env.mustRun(t, "queue", "retry", "v1", "v2", "missing")
	requireContains(t, out, "Re-queued job v1")
	requireContains(t, out, "Job v2 is queued, not failed")
	requireContains(t, out, "Job missing not found")

	info, err := store.State(context.Background(), "v1")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if info.State != queue.StateQueued || info.Error != "" {
		t.Fatalf("retried job = %+v", info)
	}

	out = env.mustRun(t, "--json", "queue", "remove", "v1", "missing")
	var result api.ActionsResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode remove: %v (%s)", err, out)
	}
	if result.UpdatedCount != 1 || len(result.Jobs) != 2 || result.Jobs[1].Outcome != api.ActionNotFound {
		t.Fatalf("unexpected remove result %+v", result)
	}
}

func TestQueueRetryAllFailed(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	failJob(t, store, "v1")
	failJob(t, store, "v2")

	out := env.mustRun(t, "queue", "retry")
	requireContains(t, out, "Re-queued 2 failed job(s)")
}

func TestQueueClear(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	failJob(t, store, "v1")
	testsupport.MustEnqueue(t, store, "v2", "/media/in/v2.mp4")

	if _, _, err := env.run(t, "queue", "clear", "--completed", "--failed"); err == nil {
		t.Fatal("expected conflicting flags to fail")
	}

	out := env.mustRun(t, "queue", "clear", "--failed")
	requireContains(t, out, "Removed 1 failed job(s)")

	out = env.mustRun(t, "queue", "clear")
	requireContains(t, out, "Removed 1 non-running job(s)")

	jobs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected empty queue, got %d jobs", len(jobs))
	}
}

func TestQueueStatusHealthAndReclaim(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	testsupport.MustEnqueue(t, store, "v1", "/media/in/v1.mp4")
	if _, err := store.Claim(context.Background(), "gone-worker", -time.Second); err != nil {
		t.Fatalf("claim: %v", err)
	}

	out := env.mustRun(t, "queue", "status")
	requireContains(t, out, "Active")

	out = env.mustRun(t, "queue", "reclaim")
	requireContains(t, out, "Reclaimed 1 job(s)")

	out = env.mustRun(t, "--json", "queue", "status")
	var stats map[string]int
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["queued"] != 1 || stats["active"] != 0 || stats["failed"] != 0 {
		t.Fatalf("stats = %v", stats)
	}

	out = env.mustRun(t, "queue", "health")
	requireContains(t, out, "Integrity check: yes")
	requireContains(t, out, "Missing columns: none")
	if !strings.Contains(out, "Total jobs: 1") {
		t.Fatalf("unexpected health output %q", out)
	}
}

func TestQueueCommandsSyncMirror(t *testing.T) {
	server, err := redisstub.Start(redisstub.Options{})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	t.Cleanup(func() { _ = server.Close() })

	env := setupCLITestEnv(t)
	env.cfg.Tracker.Enabled = true
	env.cfg.Tracker.RedisAddr = server.Addr()
	writeTestConfig(t, env.configPath, env.cfg)
	store := testsupport.MustOpenStore(t, env.cfg)
	mirrored := func(id string) map[string]string { return server.Hash("vodforge:job:" + id) }

	env.mustRun(t, "submit", "--id", "v1", "/media/in/v1.mp4")
	if mirrored("v1")["state"] != "queued" {
		t.Fatalf("submit not mirrored: %v", mirrored("v1"))
	}
	env.mustRun(t, "queue", "remove", "v1")
	if hash := mirrored("v1"); len(hash) != 0 {
		t.Fatalf("removed job still mirrored: %v", hash)
	}
	if _, _, err := env.run(t, "status", "--mirror", "v1"); err == nil {
		t.Fatal("expected removed job to be gone from the mirror")
	}

	failJob(t, store, "v2")
	env.mustRun(t, "queue", "retry", "v2")
	if hash := mirrored("v2"); hash["state"] != "queued" || hash["error"] != "" || hash["attempts"] != "1" {
		t.Fatalf("retried job mirror = %v", hash)
	}

	testsupport.MustEnqueue(t, store, "v3", "/media/in/v3.mp4")
	if _, err := store.Claim(context.Background(), "v2-runner", time.Minute); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.Fail(context.Background(), "v2", "v2-runner", "boom again"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if _, err := store.Claim(context.Background(), "gone-worker", -time.Second); err != nil {
		t.Fatalf("claim: %v", err)
	}
	env.mustRun(t, "queue", "reclaim")
	if hash := mirrored("v3"); hash["state"] != "queued" {
		t.Fatalf("reclaimed job mirror = %v", hash)
	}

	env.mustRun(t, "queue", "retry")
	if hash := mirrored("v2"); hash["state"] != "queued" || hash["attempts"] != "2" {
		t.Fatalf("retry-all mirror = %v", hash)
	}

	env.mustRun(t, "queue", "clear")
	for _, id := range []string{"v2", "v3"} {
		if hash := mirrored(id); len(hash) != 0 {
			t.Fatalf("cleared job %s still mirrored: %v", id, hash)
		}
	}
}
