package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cutroom/cutroom-agent/internal/encoder"
)

// Pipeline turns a resolved clip snapshot into one rendered file. A single
// clip is re-encoded straight to the destination; multiple clips are encoded
// concurrently into a per-run working directory, then stream-copied together
// via a concat manifest. The working directory is removed when the run ends,
// whether it succeeded or not.
type Pipeline struct {
	enc           encoder.Encoder
	workDir       string
	encodeTimeout time.Duration
	logger        *slog.Logger
}

func NewPipeline(enc encoder.Encoder, workDir string, encodeTimeout time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		enc:           enc,
		workDir:       workDir,
		encodeTimeout: encodeTimeout,
		logger:        logger,
	}
}

// Run renders clips, in order, to outPath. onProgress receives values in
// [0,1] and is guaranteed never to go backwards even though the per-clip
// encodes report concurrently. A nil onProgress is fine.
func (p *Pipeline) Run(ctx context.Context, clips []Clip, outPath string, onProgress func(float64)) error {
	if len(clips) == 0 {
		return ErrNothingToExport
	}

	progress := newMonotonicProgress(onProgress)

	if len(clips) == 1 {
		c := clips[0]
		ectx, cancel := p.encodeCtx(ctx)
		defer cancel()
		if err := p.enc.TrimEncode(ectx, c.SourcePath, c.TrimStart, c.Duration(), outPath, progress.Report); err != nil {
			return fmt.Errorf("encode %s: %w", filepath.Base(c.SourcePath), err)
		}
		return nil
	}

	runDir := filepath.Join(p.workDir, "export-"+uuid.NewString())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create working dir: %w", err)
	}
	defer p.cleanup(runDir)

	parts := make([]string, len(clips))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, c := range clips {
		parts[i] = filepath.Join(runDir, fmt.Sprintf("part_%03d.mp4", i))
		wg.Add(1)
		go func(i int, c Clip) {
			defer wg.Done()
			ectx, cancel := p.encodeCtx(ctx)
			defer cancel()
			err := p.enc.TrimEncode(ectx, c.SourcePath, c.TrimStart, c.Duration(), parts[i], progress.PartReport(i, len(clips)))
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("encode part %d (%s): %w", i, filepath.Base(c.SourcePath), err)
				}
				mu.Unlock()
			}
		}(i, c)
	}
	// Concatenation needs every part on disk, so nothing proceeds until all
	// encodes have finished, even when one of them has already failed.
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	manifestPath := filepath.Join(runDir, "concat.txt")
	if err := WriteConcatManifest(manifestPath, parts); err != nil {
		return err
	}

	var total float64
	for _, c := range clips {
		total += c.Duration()
	}

	ectx, cancel := p.encodeCtx(ctx)
	defer cancel()
	if err := p.enc.Concat(ectx, manifestPath, outPath, total, progress.PhaseReport(encodeShare, 1-encodeShare)); err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	progress.Report(1)
	return nil
}

func (p *Pipeline) encodeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.encodeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.encodeTimeout)
}

func (p *Pipeline) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		p.logger.Warn("failed to remove export working dir", "dir", dir, "error", err)
	}
}

// encodeShare is the slice of overall progress attributed to the concurrent
// encode phase; the stream-copy concat gets the remainder.
const encodeShare = 0.9

// monotonicProgress fans concurrent progress reports into a single
// non-decreasing stream. Per-part reports are scaled into an equal share of
// the encode phase so the aggregate tracks overall completion.
type monotonicProgress struct {
	mu    sync.Mutex
	last  float64
	parts []float64
	fn    func(float64)
}

func newMonotonicProgress(fn func(float64)) *monotonicProgress {
	return &monotonicProgress{fn: fn}
}

// Report feeds an overall fraction directly.
func (m *monotonicProgress) Report(frac float64) {
	if m.fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitLocked(frac)
}

// PartReport returns a callback for part i of n that contributes its share
// to the aggregate fraction.
func (m *monotonicProgress) PartReport(i, n int) func(float64) {
	m.mu.Lock()
	if m.parts == nil {
		m.parts = make([]float64, n)
	}
	m.mu.Unlock()
	return func(frac float64) {
		if m.fn == nil {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if frac > m.parts[i] {
			m.parts[i] = frac
		}
		var sum float64
		for _, p := range m.parts {
			sum += p
		}
		m.emitLocked(sum / float64(n) * encodeShare)
	}
}

// PhaseReport returns a callback that maps a phase-local fraction onto the
// [base, base+span] slice of overall progress.
func (m *monotonicProgress) PhaseReport(base, span float64) func(float64) {
	return func(frac float64) {
		if m.fn == nil {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		m.emitLocked(base + frac*span)
	}
}

func (m *monotonicProgress) emitLocked(frac float64) {
	if frac > 1 {
		frac = 1
	}
	if frac <= m.last {
		return
	}
	m.last = frac
	m.fn(frac)
}
