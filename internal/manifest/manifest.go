// Package manifest synthesizes the HLS master playlist that ties a job's
// renditions together.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"vodforge/internal/rendition"
	"vodforge/internal/services"
)

// FileName is the master playlist name inside a job's output root.
const FileName = "master.m3u8"

// ErrWriteFailed marks a master playlist that could not be written.
var ErrWriteFailed = errors.New("manifest write failed")

// Entry is one variant stream line pair.
type Entry struct {
	Bandwidth int
	Width     int
	Height    int
	URI       string
}

// Manifest is an ordered master playlist.
type Manifest struct {
	Entries []Entry
}

// Build pairs each spec with its result, in spec order. Every spec must have
// exactly one matching result.
func Build(specs []rendition.Spec, results []rendition.Result) (Manifest, error) {
	byName := make(map[string]rendition.Result, len(results))
	for _, result := range results {
		byName[result.Name] = result
	}

	m := Manifest{Entries: make([]Entry, 0, len(specs))}
	for _, spec := range specs {
		result, ok := byName[spec.Name]
		if !ok {
			return Manifest{}, fmt.Errorf("no encode result for rendition %s", spec.Name)
		}
		uri := result.PlaylistPath
		if uri == "" {
			uri = spec.PlaylistPath()
		}
		m.Entries = append(m.Entries, Entry{
			Bandwidth: spec.Bandwidth(),
			Width:     spec.Width,
			Height:    spec.Height,
			URI:       uri,
		})
	}
	return m, nil
}

// Bytes renders the playlist. Output is byte-identical for identical input.
func (m Manifest) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")
	buf.WriteString("#EXT-X-VERSION:3\n")
	for _, e := range m.Entries {
		buf.WriteString("#EXT-X-STREAM-INF:BANDWIDTH=")
		buf.WriteString(strconv.Itoa(e.Bandwidth))
		buf.WriteString(",RESOLUTION=")
		buf.WriteString(strconv.Itoa(e.Width))
		buf.WriteByte('x')
		buf.WriteString(strconv.Itoa(e.Height))
		buf.WriteByte('\n')
		buf.WriteString(e.URI)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Write stores the playlist as outputRoot/master.m3u8 and returns its path.
// The file is written to a temporary name and renamed, so readers never see
// a partial playlist.
func Write(outputRoot string, m Manifest) (string, error) {
	target := filepath.Join(outputRoot, FileName)
	tmp, err := os.CreateTemp(outputRoot, ".master-*.m3u8")
	if err != nil {
		return "", writeFailed(target, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(m.Bytes()); err != nil {
		_ = tmp.Close()
		return "", writeFailed(target, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return "", writeFailed(target, err)
	}
	if err := tmp.Close(); err != nil {
		return "", writeFailed(target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", writeFailed(target, err)
	}
	return target, nil
}

func writeFailed(path string, err error) error {
	return fmt.Errorf("%w: %w", ErrWriteFailed, services.Wrap(services.ErrTransient, "manifesting", "write", path, err))
}
