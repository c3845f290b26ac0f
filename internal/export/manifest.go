package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteConcatManifest writes an ffmpeg concat-demuxer manifest listing the
// given part files in order. Paths are normalized to forward slashes and
// single quotes are escaped the way the demuxer expects.
func WriteConcatManifest(path string, parts []string) error {
	var b strings.Builder
	for _, p := range parts {
		escaped := strings.ReplaceAll(filepath.ToSlash(p), "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}
