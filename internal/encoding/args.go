package encoding

import (
	"path/filepath"

	"vodforge/internal/rendition"
)

const (
	segmentSeconds  = "10"
	segmentTemplate = "segment%03d.ts"
)

// BuildArgs returns the ffmpeg argument list that encodes input into an HLS
// VOD rendition inside variantDir. The result depends only on its inputs.
func BuildArgs(input string, spec rendition.Spec, variantDir string) []string {
	return []string{
		"-y",
		"-i", input,
		"-vf", "scale=" + spec.FrameSize(),
		"-b:v", spec.Bitrate(),
		"-codec:v", "libx264",
		"-codec:a", "aac",
		"-hls_time", segmentSeconds,
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(variantDir, segmentTemplate),
		"-start_number", "0",
		filepath.Join(variantDir, rendition.PlaylistName),
	}
}
