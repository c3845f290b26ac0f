// Package library is the media registry: imported source files with probed
// metadata, persisted in SQLite. The timeline core reads media through it and
// never mutates a media row after import.
package library

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Media is an imported source file. It is immutable after import; re-importing
// the same path returns the existing row.
type Media struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Filename    string    `json:"filename"`
	SizeBytes   int64     `json:"size_bytes"`
	DurationSec float64   `json:"duration_sec"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	CreatedAt   time.Time `json:"created_at"`
}

// WatchFolder is a directory whose new video files are imported automatically.
type WatchFolder struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ExportStatusPending   = "pending"
	ExportStatusRunning   = "running"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// ExportJob tracks one queued or finished render of the composition.
type ExportJob struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"` // percent
	OutputPath string    `json:"output_path"`
	ClipCount  int       `json:"clip_count"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var videoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".mkv": true,
}

// IsVideoFile reports whether the filename has a supported video extension.
func IsVideoFile(filename string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(filename))]
}

// NewID returns a fresh identifier for media, clips and export jobs.
func NewID() string {
	return uuid.NewString()
}
