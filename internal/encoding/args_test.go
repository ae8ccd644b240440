package encoding_test

import (
	"path/filepath"
	"reflect"
	"testing"

	"vodforge/internal/encoding"
	"vodforge/internal/rendition"
)

func TestBuildArgs(t *testing.T) {
	dir := filepath.Join("/out", "v1", "360p")
	got := encoding.BuildArgs("/in/raw.mp4", rendition.Defaults()[0], dir)
	want := []string{
		"-y",
		"-i", "/in/raw.mp4",
		"-vf", "scale=640x360",
		"-b:v", "800k",
		"-codec:v", "libx264",
		"-codec:a", "aac",
		"-hls_time", "10",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", "/out/v1/360p/segment%03d.ts",
		"-start_number", "0",
		"/out/v1/360p/index.m3u8",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected args\n got: %q\nwant: %q", got, want)
	}
	if again := encoding.BuildArgs("/in/raw.mp4", rendition.Defaults()[0], dir); !reflect.DeepEqual(got, again) {
		t.Fatal("expected deterministic argument list")
	}
}
