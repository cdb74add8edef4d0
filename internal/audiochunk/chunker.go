// Package audiochunk invokes an external transcoder to segment one input
// audio file into uniform HLS segments (component B). Its process-invocation
// style — exec.CommandContext, stderr captured to a buffer and logged at
// error level on failure, and structured error wrapping — follows the
// teacher's ffmpeg encoder.
package audiochunk

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Options configures one chunking invocation.
type Options struct {
	SegmentDuration float64 // seconds, typically 6
	Bitrate         int     // kbps, default 128
	Codec           string  // default "aac"
}

// Result is the outcome of chunking one file.
type Result struct {
	SegmentPaths []string
	OutputDir    string
	// Warning is non-empty when the single-oversized-segment heuristic
	// fired; it is not an error, the caller logs and proceeds.
	Warning string
}

// largeSingleSegmentBytes is the size above which a lone output segment sets
// the UnexpectedlyLargeSingleSegment text in Result.Warning. It is never
// returned as a hard error: the caller decides whether to distrust the
// result.
const largeSingleSegmentBytes = 1 << 20 // ~1 MB

// ChunkingFailure is a hard failure: the transcoder exited nonzero or
// produced zero segments.
type ChunkingFailure struct {
	Input string
	Err   error
}

func (e *ChunkingFailure) Error() string {
	return fmt.Sprintf("audiochunk: chunking %s: %v", e.Input, e.Err)
}

func (e *ChunkingFailure) Unwrap() error { return e.Err }

// Chunk transcodes input into mpegts HLS segments of opts.SegmentDuration
// seconds each under outDir, forcing key-frames at every segment boundary.
func Chunk(ctx context.Context, log *slog.Logger, input, outDir string, opts Options) (Result, error) {
	if opts.SegmentDuration <= 0 {
		opts.SegmentDuration = 6
	}
	if opts.Bitrate <= 0 {
		opts.Bitrate = 128
	}
	if opts.Codec == "" {
		opts.Codec = "aac"
	}

	if err := validateDecodable(ctx, input); err != nil {
		return Result{}, &ChunkingFailure{Input: input, Err: err}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, &ChunkingFailure{Input: input, Err: err}
	}

	segPattern := filepath.Join(outDir, "segment_%05d.ts")
	playlistPath := filepath.Join(outDir, "index.m3u8")
	segDur := strconv.FormatFloat(opts.SegmentDuration, 'f', -1, 64)

	args := []string{
		"-y", "-i", input,
		"-c:a", opts.Codec,
		"-b:a", fmt.Sprintf("%dk", opts.Bitrate),
		"-force_key_frames", "expr:gte(t,n_forced*" + segDur + ")",
		"-f", "hls",
		"-hls_time", segDur,
		"-hls_segment_type", "mpegts",
		"-hls_segment_filename", segPattern,
		playlistPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Error("ffmpeg chunking failed", "input", input, "error", err, "stderr", stderr.String())
		return Result{}, &ChunkingFailure{Input: input, Err: err}
	}

	segments, err := enumerateSegments(outDir)
	if err != nil {
		return Result{}, &ChunkingFailure{Input: input, Err: err}
	}
	if len(segments) == 0 {
		return Result{}, &ChunkingFailure{Input: input, Err: fmt.Errorf("zero segments produced")}
	}

	res := Result{SegmentPaths: segments, OutputDir: outDir}
	if len(segments) == 1 {
		if info, err := os.Stat(segments[0]); err == nil && info.Size() > largeSingleSegmentBytes {
			res.Warning = "UnexpectedlyLargeSingleSegment: transcoder likely failed to split the input"
			log.Warn(res.Warning, "input", input, "segment", segments[0], "size", info.Size())
		}
	}
	return res, nil
}

func enumerateSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".ts") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// validateDecodable uses ffprobe to confirm the file decodes and its
// declared duration is at least 0.1s.
func validateDecodable(ctx context.Context, input string) error {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffprobe: %w: %s", err, stderr.String())
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil {
		return fmt.Errorf("ffprobe: unparseable duration %q: %w", out.String(), err)
	}
	if dur < 0.1 {
		return fmt.Errorf("declared duration %.3fs is below the 0.1s minimum", dur)
	}
	return nil
}
