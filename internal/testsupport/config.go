package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vodforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Storage defaults to the filesystem backend and the tracker is disabled so
// tests never reach for network services unless they opt in.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Queue.DBPath = filepath.Join(base, "work", "queue.db")
	cfgVal.Queue.PollInterval = 1
	cfgVal.Storage.Backend = config.StorageBackendFilesystem
	cfgVal.Storage.Endpoint = "localhost:9000"
	cfgVal.Storage.Bucket = "stream-bucket"
	cfgVal.Storage.Region = "us-east-1"
	cfgVal.Storage.FilesystemRoot = filepath.Join(base, "published")
	cfgVal.Tracker.RedisAddr = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithWorkerConcurrency sets the number of job slots per worker.
func WithWorkerConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.Concurrency = n
	}
}

// WithMaxParallel sets the number of concurrent rendition encodes per job.
func WithMaxParallel(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.MaxParallel = n
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		for _, name := range names {
			writeBinary(b, name, "#!/bin/sh\nexit 0\n")
		}
	}
}

// WithFFmpegScript installs a shell script as the configured ffmpeg binary.
// The script receives the real ffmpeg argument list.
func WithFFmpegScript(script string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.FFmpegBinary = writeBinary(b, "ffmpeg", script)
	}
}

// FakeFFmpegScript emulates ffmpeg's HLS muxer: it writes index.m3u8 and one
// segment to the output directory. Any argument list mentioning failFrame
// (e.g. "640x360") exits non-zero instead. `-version` prints a version banner.
func FakeFFmpegScript(failFrame string) string {
	fail := ""
	if failFrame != "" {
		fail = `case "$*" in *"scale=` + failFrame + `"*) echo "Conversion failed!" >&2; exit 1;; esac
`
	}
	return "#!/bin/sh\n" + `if [ "$1" = "-version" ]; then echo "ffmpeg version 6.1.1-fake"; exit 0; fi
` + fail + `for last; do :; done
dir=$(dirname "$last")
mkdir -p "$dir"
printf 'segment' > "$dir/segment000.ts"
printf '#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXTINF:10.0,\nsegment000.ts\n#EXT-X-ENDLIST\n' > "$last"
`
}

func writeBinary(b *configBuilder, name, script string) string {
	b.t.Helper()
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", name, err)
	}
	if !strings.HasPrefix(os.Getenv("PATH"), binDir+string(os.PathListSeparator)) {
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
