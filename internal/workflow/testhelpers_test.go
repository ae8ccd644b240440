package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vodforge/internal/config"
	"vodforge/internal/encoding"
	"vodforge/internal/logging"
	"vodforge/internal/publish"
	"vodforge/internal/queue"
	"vodforge/internal/rendition"
	"vodforge/internal/testsupport"
	"vodforge/internal/workflow"
)

// fakeEncoder writes a playlist for every rendition without running ffmpeg.
type fakeEncoder struct {
	started chan string
	release chan struct{}
}

func (f *fakeEncoder) Encode(ctx context.Context, _ string, spec rendition.Spec, variantDir string) (rendition.Result, error) {
	if f.started != nil {
		f.started <- spec.Name
	}
	if f.release != nil {
		<-f.release
	}
	if err := os.MkdirAll(variantDir, 0o755); err != nil {
		return rendition.Result{}, err
	}
	if err := os.WriteFile(filepath.Join(variantDir, rendition.PlaylistName), []byte("#EXTM3U\n"), 0o644); err != nil {
		return rendition.Result{}, err
	}
	if err := os.WriteFile(filepath.Join(variantDir, "segment000.ts"), []byte(spec.Name), 0o644); err != nil {
		return rendition.Result{}, err
	}
	return rendition.Result{Name: spec.Name, PlaylistPath: spec.PlaylistPath(), Bandwidth: spec.Bandwidth()}, nil
}

type recordingSink struct {
	mu      sync.Mutex
	reports []queue.StateInfo
}

func (r *recordingSink) Report(_ context.Context, info queue.StateInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, info)
	return nil
}

func (r *recordingSink) stages(id string) []queue.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []queue.Stage
	for _, info := range r.reports {
		if info.ID == id {
			out = append(out, info.Stage)
		}
	}
	return out
}

func (r *recordingSink) states(id string) []queue.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []queue.State
	for _, info := range r.reports {
		if info.ID == id {
			out = append(out, info.State)
		}
	}
	return out
}

type harness struct {
	cfg     *config.Config
	store   *queue.Store
	objects *testsupport.MemoryStore
	sink    *recordingSink
	manager *workflow.Manager
}

func newHarness(t *testing.T, encoder encoding.Encoder, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if encoder == nil {
		encoder = encoding.NewFFmpeg(cfg.Encoding.FFmpegBinary, logging.NewNop())
	}
	h := &harness{
		cfg:     cfg,
		store:   testsupport.MustOpenStore(t, cfg),
		objects: testsupport.NewMemoryStore(),
		sink:    &recordingSink{},
	}
	h.manager = workflow.NewManager(cfg, h.store, workflow.Dependencies{
		Encoder:   encoder,
		Publisher: publish.New(h.objects, cfg.Storage.UploadConcurrency, logging.NewNop()),
		Status:    h.sink,
	}, logging.NewNop(), workflow.WithOwner("worker-test"))
	return h
}

func (h *harness) state(t *testing.T, id string) queue.StateInfo {
	t.Helper()
	info, err := h.store.State(context.Background(), id)
	if err != nil {
		t.Fatalf("State(%s): %v", id, err)
	}
	return info
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
