// Package encoder wraps the external ffmpeg/ffprobe binaries behind small
// interfaces so the export pipeline and media library can be tested without
// spawning processes.
package encoder

import (
	"context"
	"errors"
	"fmt"
)

// Metadata is what ffprobe reports about a media file at import time.
type Metadata struct {
	DurationSec float64
	Width       int
	Height      int
	Codec       string
}

// Prober reads media metadata. A probe failure means the file cannot be
// placed on the timeline.
type Prober interface {
	Probe(ctx context.Context, path string) (Metadata, error)
}

// Encoder issues trim and concat requests to the external encoder.
// onProgress receives fractions in [0, 1]; callers must tolerate out-of-order
// and repeated values. A nil onProgress is allowed.
type Encoder interface {
	// TrimEncode extracts [startSec, startSec+durationSec) from sourcePath
	// into destPath, re-encoding video and audio to the normalized output
	// codec so later concatenation can stream-copy.
	TrimEncode(ctx context.Context, sourcePath string, startSec, durationSec float64, destPath string, onProgress func(float64)) error

	// Concat stream-copies the files listed in the manifest, in order, into
	// destPath. totalSec is the expected output duration, used only to scale
	// progress.
	Concat(ctx context.Context, manifestPath, destPath string, totalSec float64, onProgress func(float64)) error
}

// ErrProbe wraps any failure to read source metadata.
var ErrProbe = errors.New("probe failed")

// ProcessError is the failure of one external encoder invocation.
type ProcessError struct {
	Op         string // "trim" or "concat"
	ExitCode   int
	StderrTail string
}

func (e *ProcessError) Error() string {
	if e.StderrTail == "" {
		return fmt.Sprintf("%s exited %d", e.Op, e.ExitCode)
	}
	return fmt.Sprintf("%s exited %d: %s", e.Op, e.ExitCode, e.StderrTail)
}
