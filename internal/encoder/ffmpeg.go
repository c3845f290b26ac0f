package encoder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const stderrTailBytes = 8 * 1024 // kept for diagnostics when a process fails

// FFmpeg runs the real ffmpeg and ffprobe binaries. The ffprobe path is
// derived from the ffmpeg path so a single configuration knob covers both.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	logger      *slog.Logger
}

func NewFFmpeg(ffmpegPath string, logger *slog.Logger) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: strings.Replace(ffmpegPath, "ffmpeg", "ffprobe", 1),
		logger:      logger,
	}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads duration and video dimensions via ffprobe's JSON output.
func (f *FFmpeg) Probe(ctx context.Context, path string) (Metadata, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Metadata{}, fmt.Errorf("%w: ffprobe %s: %v: %s", ErrProbe, filepath.Base(path), err, strings.TrimSpace(stderr.String()))
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probe); err != nil {
		return Metadata{}, fmt.Errorf("%w: cannot parse ffprobe output: %v", ErrProbe, err)
	}

	dur, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil || dur <= 0 {
		return Metadata{}, fmt.Errorf("%w: no usable duration for %s", ErrProbe, filepath.Base(path))
	}

	meta := Metadata{DurationSec: dur}
	if len(probe.Streams) > 0 {
		meta.Width = probe.Streams[0].Width
		meta.Height = probe.Streams[0].Height
		meta.Codec = probe.Streams[0].CodecName
	}
	return meta, nil
}

// TrimEncode re-encodes a source range to the normalized output codec
// (H.264 + AAC). Stream copy is deliberately not attempted: trimmed parts
// must share a codec so the concat step can copy them.
func (f *FFmpeg) TrimEncode(ctx context.Context, sourcePath string, startSec, durationSec float64, destPath string, onProgress func(float64)) error {
	args := []string{
		"-y",
		"-ss", formatSeconds(startSec),
		"-t", formatSeconds(durationSec),
		"-i", sourcePath,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		destPath,
	}
	return f.run(ctx, "trim", args, durationSec, onProgress)
}

// Concat stream-copies the manifest entries into one file. All entries come
// out of TrimEncode, so they share a codec and no re-encode is needed.
func (f *FFmpeg) Concat(ctx context.Context, manifestPath, destPath string, totalSec float64, onProgress func(float64)) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		destPath,
	}
	return f.run(ctx, "concat", args, totalSec, onProgress)
}

// run executes ffmpeg, feeding progress fractions parsed from the stderr
// stream to onProgress and keeping a bounded stderr tail for diagnostics.
func (f *FFmpeg) run(ctx context.Context, op string, args []string, totalSec float64, onProgress func(float64)) error {
	started := time.Now()
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%s: stderr pipe: %w", op, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: start %s: %w", op, f.ffmpegPath, err)
	}

	var tail tailBuffer
	scanner := bufio.NewScanner(stderr)
	scanner.Split(scanProgressLines)
	for scanner.Scan() {
		line := scanner.Text()
		tail.WriteLine(line)

		if onProgress == nil || totalSec <= 0 {
			continue
		}
		if sec, ok := parseProgressClock(line); ok {
			frac := sec / totalSec
			if frac > 1 {
				frac = 1
			}
			onProgress(frac)
		}
	}

	err = cmd.Wait()
	elapsed := time.Since(started)

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		if f.logger != nil {
			f.logger.Warn("encoder process failed",
				"op", op,
				"exit_code", exitCode,
				"duration_ms", elapsed.Milliseconds(),
			)
		}
		return &ProcessError{Op: op, ExitCode: exitCode, StderrTail: tail.String()}
	}

	if onProgress != nil {
		onProgress(1)
	}
	if f.logger != nil {
		f.logger.Info("encoder process succeeded", "op", op, "duration_ms", elapsed.Milliseconds())
	}
	return nil
}

var progressClockRe = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// parseProgressClock extracts the "time=HH:MM:SS.ss" clock ffmpeg prints on
// its progress lines, as seconds.
func parseProgressClock(line string) (float64, bool) {
	m := progressClockRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.ParseFloat(m[3], 64)
	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}

// scanProgressLines splits on \r as well as \n: ffmpeg rewrites its progress
// line with carriage returns, so plain line scanning would see nothing until
// the process exits.
func scanProgressLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer keeps only the last stderrTailBytes of what is written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) WriteLine(line string) {
	if line == "" {
		return
	}
	t.buf.WriteString(line)
	t.buf.WriteByte('\n')
	if t.buf.Len() > stderrTailBytes {
		b := t.buf.Bytes()
		trimmed := make([]byte, stderrTailBytes)
		copy(trimmed, b[len(b)-stderrTailBytes:])
		t.buf.Reset()
		t.buf.Write(trimmed)
	}
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(t.buf.String())
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// LookPath verifies the configured ffmpeg binary exists before the first
// export rather than failing mid-pipeline.
func (f *FFmpeg) LookPath() error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return fmt.Errorf("ffprobe not found: %w", err)
	}
	return nil
}
