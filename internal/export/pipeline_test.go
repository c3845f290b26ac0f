package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type trimCall struct {
	source   string
	start    float64
	duration float64
	dest     string
}

type concatCall struct {
	manifest string
	dest     string
	total    float64
	content  string
}

// fakeEncoder records calls and writes placeholder output files so the
// pipeline's manifest and cleanup paths run against real files.
type fakeEncoder struct {
	mu        sync.Mutex
	trims     []trimCall
	concats   []concatCall
	failDest  string    // TrimEncode fails when dest contains this
	trimTicks []float64 // progress values each TrimEncode emits before 1
}

func (f *fakeEncoder) TrimEncode(_ context.Context, source string, start, duration float64, dest string, onProgress func(float64)) error {
	f.mu.Lock()
	f.trims = append(f.trims, trimCall{source: source, start: start, duration: duration, dest: dest})
	f.mu.Unlock()

	if f.failDest != "" && strings.Contains(dest, f.failDest) {
		return errors.New("encoder exited with code 1")
	}
	if onProgress != nil {
		for _, tick := range f.trimTicks {
			onProgress(tick)
		}
		onProgress(1)
	}
	return os.WriteFile(dest, []byte("part"), 0o644)
}

func (f *fakeEncoder) Concat(_ context.Context, manifest, dest string, total float64, onProgress func(float64)) error {
	content, err := os.ReadFile(manifest)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.concats = append(f.concats, concatCall{manifest: manifest, dest: dest, total: total, content: string(content)})
	f.mu.Unlock()
	if onProgress != nil {
		onProgress(1)
	}
	return os.WriteFile(dest, []byte("joined"), 0o644)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipeline_SingleClipEncodesDirect(t *testing.T) {
	enc := &fakeEncoder{}
	workDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "out.mp4")
	p := NewPipeline(enc, workDir, time.Minute, testLogger())

	var last float64
	err := p.Run(context.Background(), []Clip{
		{SourcePath: "/media/a.mp4", TrimStart: 2, TrimEnd: 6},
	}, out, func(frac float64) { last = frac })
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(enc.trims) != 1 {
		t.Fatalf("expected 1 trim encode, got %d", len(enc.trims))
	}
	if enc.trims[0].dest != out {
		t.Fatalf("single clip should encode straight to output, got dest %q", enc.trims[0].dest)
	}
	if enc.trims[0].start != 2 || enc.trims[0].duration != 4 {
		t.Fatalf("trim window mismatch: start=%v duration=%v", enc.trims[0].start, enc.trims[0].duration)
	}
	if len(enc.concats) != 0 {
		t.Fatalf("single clip must not concat, got %d calls", len(enc.concats))
	}
	if last != 1 {
		t.Fatalf("expected final progress 1, got %v", last)
	}
}

func TestPipeline_MultiClipConcatsInOrder(t *testing.T) {
	enc := &fakeEncoder{}
	workDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "out.mp4")
	p := NewPipeline(enc, workDir, time.Minute, testLogger())

	err := p.Run(context.Background(), []Clip{
		{SourcePath: "/media/a.mp4", TrimStart: 0, TrimEnd: 4},
		{SourcePath: "/media/b.mp4", TrimStart: 1, TrimEnd: 6},
	}, out, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(enc.trims) != 2 {
		t.Fatalf("expected 2 trim encodes, got %d", len(enc.trims))
	}
	if len(enc.concats) != 1 {
		t.Fatalf("expected 1 concat, got %d", len(enc.concats))
	}

	cc := enc.concats[0]
	if cc.total != 9 {
		t.Fatalf("concat total = %v, want 9", cc.total)
	}
	first := strings.Index(cc.content, "part_000.mp4")
	second := strings.Index(cc.content, "part_001.mp4")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("manifest parts missing or out of order:\n%s", cc.content)
	}

	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	assertWorkDirEmpty(t, workDir)
}

func TestPipeline_EncodeFailureAbortsAndCleans(t *testing.T) {
	enc := &fakeEncoder{failDest: "part_001"}
	workDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "out.mp4")
	p := NewPipeline(enc, workDir, time.Minute, testLogger())

	err := p.Run(context.Background(), []Clip{
		{SourcePath: "/media/a.mp4", TrimStart: 0, TrimEnd: 4},
		{SourcePath: "/media/b.mp4", TrimStart: 0, TrimEnd: 5},
	}, out, nil)
	if err == nil {
		t.Fatal("expected error when a part encode fails")
	}

	// Both encodes still ran to completion before the abort.
	if len(enc.trims) != 2 {
		t.Fatalf("expected both encodes attempted, got %d", len(enc.trims))
	}
	if len(enc.concats) != 0 {
		t.Fatalf("concat must not run after a failed encode, got %d calls", len(enc.concats))
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("output file must not exist after failure, stat err = %v", statErr)
	}
	assertWorkDirEmpty(t, workDir)
}

func TestPipeline_ProgressNeverDecreases(t *testing.T) {
	enc := &fakeEncoder{trimTicks: []float64{0.5, 0.2, 0.8, 0.3}}
	workDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "out.mp4")
	p := NewPipeline(enc, workDir, time.Minute, testLogger())

	var mu sync.Mutex
	var seen []float64
	err := p.Run(context.Background(), []Clip{
		{SourcePath: "/media/a.mp4", TrimStart: 0, TrimEnd: 3},
		{SourcePath: "/media/b.mp4", TrimStart: 0, TrimEnd: 3},
		{SourcePath: "/media/c.mp4", TrimStart: 0, TrimEnd: 3},
	}, out, func(frac float64) {
		mu.Lock()
		seen = append(seen, frac)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(seen) == 0 {
		t.Fatal("expected progress reports")
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("progress decreased at %d: %v -> %v (all: %v)", i, seen[i-1], seen[i], seen)
		}
	}
	if got := seen[len(seen)-1]; got != 1 {
		t.Fatalf("final progress = %v, want 1", got)
	}
}

func TestPipeline_EmptySnapshot(t *testing.T) {
	p := NewPipeline(&fakeEncoder{}, t.TempDir(), time.Minute, testLogger())
	err := p.Run(context.Background(), nil, "out.mp4", nil)
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("err = %v, want ErrNothingToExport", err)
	}
}

func assertWorkDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir not cleaned up, %d entries remain", len(entries))
	}
}
