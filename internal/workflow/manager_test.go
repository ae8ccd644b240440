package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"vodforge/internal/manifest"
	"vodforge/internal/queue"
	"vodforge/internal/services"
	"vodforge/internal/testsupport"
)

func TestRunOnceCompletesJobWithFFmpeg(t *testing.T) {
	h := newHarness(t, nil, testsupport.WithFFmpegScript(testsupport.FakeFFmpegScript("")), testsupport.WithMaxParallel(2))
	testsupport.MustEnqueue(t, h.store, "v1", "/videos/input.mp4")

	processed, err := h.manager.RunOnce(context.Background())
	if err != nil || !processed {
		t.Fatalf("RunOnce: processed=%v err=%v", processed, err)
	}

	info := h.state(t, "v1")
	if info.State != queue.StateCompleted || info.Stage != queue.StageCompleted {
		t.Fatalf("expected completed job, got %+v", info)
	}
	if info.Locator != "http://localhost:9000/stream-bucket/videos/v1/master.m3u8" {
		t.Fatalf("unexpected locator %q", info.Locator)
	}

	keys := h.objects.Keys()
	for _, want := range []string{"videos/v1/360p/index.m3u8", "videos/v1/720p/index.m3u8", "videos/v1/master.m3u8"} {
		found := false
		for _, key := range keys {
			if key == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected remote object %s in %v", want, keys)
		}
	}
	master, _ := h.objects.Object("videos/v1/master.m3u8")
	want := "#EXTM3U\n#EXT-X-VERSION:3\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=960000,RESOLUTION=640x360\n360p/index.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=3000000,RESOLUTION=1280x720\n720p/index.m3u8\n"
	if string(master.Body) != want {
		t.Fatalf("unexpected master playlist:\n%s", master.Body)
	}

	wantStages := []queue.Stage{
		queue.StageClaimed,
		queue.StageTranscoding,
		queue.StageManifesting,
		queue.StagePublishing,
		queue.StageCompleted,
	}
	if got := h.sink.stages("v1"); !reflect.DeepEqual(got, wantStages) {
		t.Fatalf("unexpected stage reports %v", got)
	}
}

func TestRunOnceFailedRenditionFailsJob(t *testing.T) {
	h := newHarness(t, nil, testsupport.WithFFmpegScript(testsupport.FakeFFmpegScript("640x360")), testsupport.WithMaxParallel(2))
	testsupport.MustEnqueue(t, h.store, "v1", "/videos/input.mp4")

	processed, err := h.manager.RunOnce(context.Background())
	if !processed || err == nil {
		t.Fatalf("expected processed failure, processed=%v err=%v", processed, err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}

	info := h.state(t, "v1")
	if info.State != queue.StateFailed {
		t.Fatalf("expected failed job, got %+v", info)
	}
	if !strings.Contains(info.Error, "360p") || !strings.Contains(info.Error, "job v1: transcoding") {
		t.Fatalf("expected error naming job, stage and rendition, got %q", info.Error)
	}
	if keys := h.objects.Keys(); len(keys) != 0 {
		t.Fatalf("expected no remote objects, got %v", keys)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.JobOutputRoot("v1"), manifest.FileName)); !os.IsNotExist(err) {
		t.Fatalf("expected no master playlist, stat err=%v", err)
	}
	stages := h.sink.stages("v1")
	if stages[len(stages)-1] != queue.StageFailed {
		t.Fatalf("expected final failed report, got %v", stages)
	}
}

func TestRunOncePublishFailureFailsJob(t *testing.T) {
	h := newHarness(t, &fakeEncoder{})
	h.objects.FailKeys = []string{"master.m3u8"}
	testsupport.MustEnqueue(t, h.store, "v2", "/videos/input.mp4")

	if _, err := h.manager.RunOnce(context.Background()); err == nil {
		t.Fatal("expected publish failure")
	}
	info := h.state(t, "v2")
	if info.State != queue.StateFailed || !strings.Contains(info.Error, "job v2: publishing") {
		t.Fatalf("unexpected state %+v", info)
	}
	if info.Locator != "" {
		t.Fatalf("failed job must not carry a locator, got %q", info.Locator)
	}
}

func TestRunOnceEmptyQueue(t *testing.T) {
	h := newHarness(t, &fakeEncoder{})
	processed, err := h.manager.RunOnce(context.Background())
	if processed || err != nil {
		t.Fatalf("expected idle RunOnce, processed=%v err=%v", processed, err)
	}
}

func TestRunOnceClearsStaleOutput(t *testing.T) {
	h := newHarness(t, &fakeEncoder{})
	stale := testsupport.WriteVariant(t, h.cfg.JobOutputRoot("v3"), "1080p", 1)
	testsupport.MustEnqueue(t, h.store, "v3", "/videos/input.mp4")

	if _, err := h.manager.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale output removed, stat err=%v", err)
	}
	for _, key := range h.objects.Keys() {
		if strings.Contains(key, "1080p") {
			t.Fatalf("stale rendition was published: %s", key)
		}
	}
}

func TestRunOnceReclaimsExpiredLease(t *testing.T) {
	h := newHarness(t, &fakeEncoder{})
	testsupport.MustEnqueue(t, h.store, "v4", "/videos/input.mp4")

	ctx := context.Background()
	if _, err := h.store.Claim(ctx, "crashed-worker", time.Millisecond); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	processed, err := h.manager.RunOnce(ctx)
	if err != nil || !processed {
		t.Fatalf("RunOnce: processed=%v err=%v", processed, err)
	}
	info := h.state(t, "v4")
	if info.State != queue.StateCompleted || info.Attempts != 2 {
		t.Fatalf("expected completed second attempt, got %+v", info)
	}
	states := h.sink.states("v4")
	if len(states) == 0 || states[0] != queue.StateQueued {
		t.Fatalf("expected reclaimed job to be reported queued first, got %v", states)
	}
}

func TestOwnerReflectsOption(t *testing.T) {
	h := newHarness(t, &fakeEncoder{})
	if got := h.manager.Owner(); got != "worker-test" {
		t.Fatalf("Owner() = %q", got)
	}
}

func TestDrainProcessesEverything(t *testing.T) {
	h := newHarness(t, &fakeEncoder{})
	for _, id := range []string{"a", "b", "c"} {
		testsupport.MustEnqueue(t, h.store, id, "/videos/"+id+".mp4")
	}
	count, err := h.manager.Drain(context.Background())
	if err != nil || count != 3 {
		t.Fatalf("Drain: count=%d err=%v", count, err)
	}
	summary := h.manager.Status(context.Background())
	if summary.Processed != 3 || summary.QueueStats[queue.StateCompleted] != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestStartProcessesQueueConcurrently(t *testing.T) {
	h := newHarness(t, &fakeEncoder{}, testsupport.WithWorkerConcurrency(2))
	ids := []string{"j1", "j2", "j3", "j4"}
	for _, id := range ids {
		testsupport.MustEnqueue(t, h.store, id, "/videos/"+id+".mp4")
	}

	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := h.manager.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	waitFor(t, 10*time.Second, func() bool {
		for _, id := range ids {
			info, err := h.store.State(context.Background(), id)
			if err != nil || info.State != queue.StateCompleted {
				return false
			}
		}
		return true
	})
	h.manager.Stop()

	summary := h.manager.Status(context.Background())
	if summary.Running || summary.Processed != 4 || summary.Owner != "worker-test" {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestStopWaitsForInFlightJob(t *testing.T) {
	encoder := &fakeEncoder{started: make(chan string, 4), release: make(chan struct{})}
	h := newHarness(t, encoder)
	testsupport.MustEnqueue(t, h.store, "long", "/videos/long.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := h.manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case <-encoder.started:
	case <-time.After(5 * time.Second):
		t.Fatal("encode never started")
	}

	active := h.manager.Status(context.Background()).Active
	if len(active) != 1 || active[0].ID != "long" || active[0].Stage != queue.StageTranscoding {
		t.Fatalf("unexpected active jobs %+v", active)
	}

	cancel()
	stopped := make(chan struct{})
	go func() {
		h.manager.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was still encoding")
	case <-time.After(100 * time.Millisecond):
	}

	close(encoder.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the job finished")
	}
	if info := h.state(t, "long"); info.State != queue.StateCompleted {
		t.Fatalf("expected in-flight job to complete, got %+v", info)
	}
}
