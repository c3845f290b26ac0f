package export

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cutroom/cutroom-agent/internal/library"
	"github.com/cutroom/cutroom-agent/internal/logging"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

// JobQueue is the slice of the persistence layer the runner drives jobs
// through. *library.SQLiteRepository satisfies it.
type JobQueue interface {
	ListPendingExports(ctx context.Context) ([]*library.ExportJob, error)
	UpdateExportStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateExportProgress(ctx context.Context, id string, progress int) error
}

// MediaResolver maps a clip's source id to its media row.
type MediaResolver interface {
	GetMedia(ctx context.Context, id string) (*library.Media, error)
}

// Snapshotter hands out an immutable copy of the playback-track composition.
type Snapshotter interface {
	Snapshot() []timeline.Clip
}

// Runner polls for pending export jobs and renders them one at a time. The
// composition is snapshotted when the job starts running, so later timeline
// edits do not affect an in-flight render.
type Runner struct {
	jobs         JobQueue
	media        MediaResolver
	comp         Snapshotter
	pipeline     *Pipeline
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(jobs JobQueue, media MediaResolver, comp Snapshotter, pipeline *Pipeline, logger *slog.Logger) *Runner {
	return &Runner{
		jobs:         jobs,
		media:        media,
		comp:         comp,
		pipeline:     pipeline,
		logger:       logger,
		pollInterval: 2 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("export runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("export runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextExport(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("export runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("export runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) processNextExport(ctx context.Context) {
	pending, err := r.jobs.ListPendingExports(ctx)
	if err != nil {
		r.logger.Error("failed to list pending exports", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	job := pending[0]
	log := logging.WithExportID(r.logger, job.ID)
	log.Info("processing export", "output", job.OutputPath)

	if err := r.jobs.UpdateExportStatus(ctx, job.ID, library.ExportStatusRunning, ""); err != nil {
		log.Error("failed to mark export running", "error", err)
		return
	}

	clips, err := r.resolveSnapshot(ctx)
	if err != nil {
		r.fail(ctx, job.ID, err.Error())
		return
	}
	if len(clips) == 0 {
		r.fail(ctx, job.ID, ErrNothingToExport.Error())
		return
	}

	lastPct := -1
	onProgress := func(frac float64) {
		pct := int(frac * 100)
		if pct == lastPct {
			return
		}
		lastPct = pct
		if err := r.jobs.UpdateExportProgress(ctx, job.ID, pct); err != nil {
			log.Warn("failed to update export progress", "error", err)
		}
	}

	if err := r.pipeline.Run(ctx, clips, job.OutputPath, onProgress); err != nil {
		log.Error("export failed", "error", err)
		r.fail(ctx, job.ID, err.Error())
		return
	}

	if err := r.jobs.UpdateExportProgress(ctx, job.ID, 100); err != nil {
		log.Warn("failed to update export progress", "error", err)
	}
	if err := r.jobs.UpdateExportStatus(ctx, job.ID, library.ExportStatusCompleted, ""); err != nil {
		log.Error("failed to mark export completed", "error", err)
		return
	}
	log.Info("export completed", "output", job.OutputPath, "clips", len(clips))
}

// resolveSnapshot turns the current composition into pipeline clips with
// media paths attached. Any clip whose source is missing from the library
// aborts the job; rendering a partial composition would silently drop content.
func (r *Runner) resolveSnapshot(ctx context.Context) ([]Clip, error) {
	snapshot := r.comp.Snapshot()
	clips := make([]Clip, 0, len(snapshot))
	for _, c := range snapshot {
		m, err := r.media.GetMedia(ctx, c.SourceID)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, &missingSourceError{sourceID: c.SourceID}
		}
		clips = append(clips, Clip{
			Name:       m.Filename,
			SourcePath: m.Path,
			TrimStart:  c.TrimStart,
			TrimEnd:    c.TrimEnd,
		})
	}
	return clips, nil
}

func (r *Runner) fail(ctx context.Context, id, msg string) {
	if err := r.jobs.UpdateExportStatus(ctx, id, library.ExportStatusFailed, msg); err != nil {
		r.logger.Error("failed to mark export failed", "export_id", id, "error", err)
	}
}

type missingSourceError struct {
	sourceID string
}

func (e *missingSourceError) Error() string {
	return "source not in library: " + e.sourceID
}
