package api

import (
	"time"

	"github.com/cutroom/cutroom-agent/internal/library"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State           string          `json:"state"`
	LastError       string          `json:"last_error,omitempty"`
	MediaCount      int             `json:"media_count"`
	ClipCount       int             `json:"clip_count"`
	TimelineSeconds float64         `json:"timeline_seconds"`
	ExportsRunning  int             `json:"exports_running"`
	ActiveExport    *ExportResponse `json:"active_export,omitempty"`
}

type ImportRequest struct {
	Path string `json:"path"`
}

type AddWatchFolderRequest struct {
	Path string `json:"path"`
}

type WatchFolderResponse struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	CreatedAt string `json:"created_at"`
}

type WatchFoldersResponse struct {
	Folders []WatchFolderResponse `json:"folders"`
}

type MediaResponse struct {
	ID          string  `json:"id"`
	Path        string  `json:"path"`
	Filename    string  `json:"filename"`
	SizeBytes   int64   `json:"size_bytes"`
	DurationSec float64 `json:"duration_sec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	CreatedAt   string  `json:"created_at"`
}

type MediaListResponse struct {
	Media []MediaResponse `json:"media"`
}

type PlaceClipRequest struct {
	SourceID string  `json:"source_id"`
	Track    int     `json:"track"`
	Start    float64 `json:"start"`
}

type MoveClipRequest struct {
	Start float64 `json:"start"`
}

type MoveClipResponse struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
}

type TrimClipRequest struct {
	Side     string  `json:"side"` // "start" or "end"
	Boundary float64 `json:"boundary"`
}

type SplitClipRequest struct {
	At float64 `json:"at"`
}

type SplitClipResponse struct {
	First  ClipResponse `json:"first"`
	Second ClipResponse `json:"second"`
}

type ClipResponse struct {
	ID        string  `json:"id"`
	SourceID  string  `json:"source_id"`
	Track     int     `json:"track"`
	StartTime float64 `json:"start_time"`
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
	Duration  float64 `json:"duration"`
}

type ClipsResponse struct {
	Clips    []ClipResponse `json:"clips"`
	Duration float64        `json:"duration"`
}

type TimelineDurationResponse struct {
	Duration float64 `json:"duration"`
}

type SubmitExportRequest struct {
	Name      string `json:"name"`
	OutputDir string `json:"output_dir,omitempty"`
}

type ExportResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type ExportsResponse struct {
	Exports []ExportResponse `json:"exports"`
}

type ExportEDLRequest struct {
	ProjectName string  `json:"project_name"`
	FrameRate   float64 `json:"frame_rate"`
	OutputDir   string  `json:"output_dir"`
}

type ExportEDLResponse struct {
	Status     string `json:"status"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
}

type SeekRequest struct {
	Time float64 `json:"time"`
}

type SelectSourceRequest struct {
	SourceID string `json:"source_id"`
}

type SelectClipRequest struct {
	ClipID string `json:"clip_id"`
}

type AdvanceRequest struct {
	DeltaSec float64 `json:"delta_sec"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func MediaToResponse(m *library.Media) MediaResponse {
	return MediaResponse{
		ID:          m.ID,
		Path:        m.Path,
		Filename:    m.Filename,
		SizeBytes:   m.SizeBytes,
		DurationSec: m.DurationSec,
		Width:       m.Width,
		Height:      m.Height,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}

func ClipToResponse(c timeline.Clip) ClipResponse {
	return ClipResponse{
		ID:        c.ID,
		SourceID:  c.SourceID,
		Track:     c.Track,
		StartTime: c.StartTime,
		TrimStart: c.TrimStart,
		TrimEnd:   c.TrimEnd,
		Duration:  c.Duration(),
	}
}

func ExportToResponse(j *library.ExportJob) ExportResponse {
	return ExportResponse{
		ID:         j.ID,
		Status:     j.Status,
		Progress:   j.Progress,
		OutputPath: j.OutputPath,
		ClipCount:  j.ClipCount,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  j.UpdatedAt.Format(time.RFC3339),
	}
}

func WatchFolderToResponse(w *library.WatchFolder) WatchFolderResponse {
	return WatchFolderResponse{
		ID:        w.ID,
		Path:      w.Path,
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
	}
}
