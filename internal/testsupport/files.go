package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteVariant lays out an encoded rendition under root/name: an index.m3u8
// listing n segments plus the segment files themselves. Each segment holds
// its own relative path so tests can tell uploads apart. It returns the
// rendition directory.
func WriteVariant(t testing.TB, root, name string, n int) string {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	var playlist strings.Builder
	playlist.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXT-X-PLAYLIST-TYPE:VOD\n")
	for i := range n {
		segment := fmt.Sprintf("segment%03d.ts", i)
		if err := os.WriteFile(filepath.Join(dir, segment), []byte(name+"/"+segment), 0o644); err != nil {
			t.Fatalf("write %s: %v", segment, err)
		}
		fmt.Fprintf(&playlist, "#EXTINF:10.000000,\n%s\n", segment)
	}
	playlist.WriteString("#EXT-X-ENDLIST\n")
	if err := os.WriteFile(filepath.Join(dir, "index.m3u8"), []byte(playlist.String()), 0o644); err != nil {
		t.Fatalf("write %s playlist: %v", name, err)
	}
	return dir
}
