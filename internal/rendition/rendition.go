// Package rendition describes the output variants a job is encoded into and
// the results an encode produces for each one.
package rendition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PlaylistName is the per-variant media playlist file name.
const PlaylistName = "index.m3u8"

// Spec is one target output variant.
type Spec struct {
	Name        string `json:"name"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	BitrateKbps int    `json:"bitrate_kbps"`
}

// Result is what a successful encode of a Spec yields.
type Result struct {
	Name         string
	PlaylistPath string
	Bandwidth    int
}

// Defaults returns the standard 360p/720p ladder.
func Defaults() []Spec {
	return []Spec{
		{Name: "360p", Width: 640, Height: 360, BitrateKbps: 800},
		{Name: "720p", Width: 1280, Height: 720, BitrateKbps: 2500},
	}
}

// FrameSize renders the WxH form used by scale filters and manifests.
func (s Spec) FrameSize() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Bitrate renders the encoder bitrate argument, e.g. "800k".
func (s Spec) Bitrate() string {
	return strconv.Itoa(s.BitrateKbps) + "k"
}

// Bandwidth is the advertised peak bandwidth in bits per second. The 20%
// headroom over the video bitrate approximates audio and container overhead.
func (s Spec) Bandwidth() int {
	return s.BitrateKbps * 1200
}

// PlaylistPath is the variant playlist path relative to the job output root.
func (s Spec) PlaylistPath() string {
	return s.Name + "/" + PlaylistName
}

// String renders the spec in the name:WxH:bitrate form accepted by Parse.
func (s Spec) String() string {
	return s.Name + ":" + s.FrameSize() + ":" + s.Bitrate()
}

// Validate reports whether the spec can be encoded.
func (s Spec) Validate() error {
	if !validName(s.Name) {
		return fmt.Errorf("rendition name %q must be a non-empty path segment of letters, digits, '-', '_' or '.'", s.Name)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("rendition %s: frame size must be positive, got %dx%d", s.Name, s.Width, s.Height)
	}
	if s.BitrateKbps <= 0 {
		return fmt.Errorf("rendition %s: bitrate must be positive", s.Name)
	}
	return nil
}

// Parse reads a spec from "name:WxH:bitrate" where bitrate is kbps with an
// optional trailing k.
func Parse(value string) (Spec, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return Spec{}, fmt.Errorf("rendition %q: expected name:WxH:bitrate", value)
	}
	name := strings.TrimSpace(parts[0])
	dims := strings.SplitN(strings.ToLower(strings.TrimSpace(parts[1])), "x", 2)
	if len(dims) != 2 {
		return Spec{}, fmt.Errorf("rendition %q: frame size must be WxH", value)
	}
	width, err := strconv.Atoi(dims[0])
	if err != nil {
		return Spec{}, fmt.Errorf("rendition %q: width: %w", value, err)
	}
	height, err := strconv.Atoi(dims[1])
	if err != nil {
		return Spec{}, fmt.Errorf("rendition %q: height: %w", value, err)
	}
	rate := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(parts[2])), "k")
	kbps, err := strconv.Atoi(rate)
	if err != nil {
		return Spec{}, fmt.Errorf("rendition %q: bitrate: %w", value, err)
	}
	spec := Spec{Name: name, Width: width, Height: height, BitrateKbps: kbps}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// ParseList parses every entry and rejects duplicate names.
func ParseList(values []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(values))
	for _, value := range values {
		spec, err := Parse(value)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if err := ValidateSet(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// ValidateSet checks a job's variant list: at least one entry, each valid,
// names unique.
func ValidateSet(specs []Spec) error {
	if len(specs) == 0 {
		return errors.New("at least one rendition is required")
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return err
		}
		if _, dup := seen[spec.Name]; dup {
			return fmt.Errorf("duplicate rendition name %q", spec.Name)
		}
		seen[spec.Name] = struct{}{}
	}
	return nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." || len(name) > 64 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
