// Package export renders a committed composition snapshot to a single file
// by trimming every clip from its source and concatenating the parts using
// the external encoder. It also generates EDL interchange documents for NLEs.
package export

import "errors"

// Clip is one snapshot entry with its source already resolved to a path.
// TrimStart/TrimEnd are in source time, in seconds. Snapshot order is
// composition order; the pipeline preserves it through concatenation.
type Clip struct {
	Name       string
	SourcePath string
	TrimStart  float64
	TrimEnd    float64
}

func (c Clip) Duration() float64 {
	return c.TrimEnd - c.TrimStart
}

// ErrNothingToExport means the snapshot held no clips on the playback track.
var ErrNothingToExport = errors.New("nothing to export")
