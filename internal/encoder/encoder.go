package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// libvpx-vp9 CRF range. Lower values mean higher quality and a
	// larger output file.
	MinCRF = 0
	MaxCRF = 63

	outputExt = ".webm"
)

var (
	ErrSourceNotFound = errors.New("source file does not exist or is not a regular file")
	ErrSourceEmpty    = errors.New("source file is empty")
)

// InvalidCRFError reports a quality level outside the encoder's range.
type InvalidCRFError struct {
	CRF int
}

func (e *InvalidCRFError) Error() string {
	return fmt.Sprintf("crf %d out of range [%d, %d]", e.CRF, MinCRF, MaxCRF)
}

// ExitError reports a non-zero ffmpeg exit, with whatever diagnostics
// ffmpeg wrote to stderr.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("ffmpeg exited with code %d", e.Code)
	}
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.Code, out)
}

type Request struct {
	SourcePath string
	CRF        int
}

// Artifact is the re-encoded video on disk, ready for upload.
type Artifact struct {
	Path string
	Size int64
}

type Compressor interface {
	Compress(ctx context.Context, req Request) (*Artifact, error)
}

// ValidateRequest checks the request without touching ffmpeg. Callers run it
// before spawning anything so bad input never costs a subprocess.
func ValidateRequest(req Request) error {
	if req.CRF < MinCRF || req.CRF > MaxCRF {
		return &InvalidCRFError{CRF: req.CRF}
	}

	info, err := os.Stat(req.SourcePath)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", req.SourcePath, ErrSourceNotFound)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: %w", req.SourcePath, ErrSourceEmpty)
	}

	return nil
}

type FFmpeg struct {
	ffmpegPath   string
	ffprobePath  string
	outputDir    string
	audioBitrate string
	threads      int
}

type Options struct {
	FFmpegPath   string
	FFprobePath  string
	OutputDir    string
	AudioBitrate string
	Threads      int
}

func NewFFmpeg(opts Options) *FFmpeg {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "compressed"
	}
	if opts.AudioBitrate == "" {
		opts.AudioBitrate = "96k"
	}
	if opts.Threads == 0 {
		opts.Threads = 4
	}
	return &FFmpeg{
		ffmpegPath:   opts.FFmpegPath,
		ffprobePath:  opts.FFprobePath,
		outputDir:    opts.OutputDir,
		audioBitrate: opts.AudioBitrate,
		threads:      opts.Threads,
	}
}

// OutputPath derives the artifact path from the source name: same base name,
// .webm extension, under the output directory. An existing file at that path
// is overwritten.
func (f *FFmpeg) OutputPath(sourcePath string) string {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + outputExt
	return filepath.Join(f.outputDir, base)
}

// Compress transcodes the source to VP9/Opus WebM and blocks until ffmpeg
// exits. The context bounds the whole encode.
func (f *FFmpeg) Compress(ctx context.Context, req Request) (*Artifact, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(f.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	outputPath := f.OutputPath(req.SourcePath)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.ffmpegPath, f.buildArgs(req.SourcePath, outputPath, req.CRF)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("encoding %s: %w", req.SourcePath, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{Code: exitErr.ExitCode(), Output: stderr.String()}
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s not found, is FFmpeg installed: %w", f.ffmpegPath, err)
		}
		return nil, fmt.Errorf("run ffmpeg: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg exited cleanly but produced no output at %s: %w", outputPath, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("ffmpeg produced an empty file at %s", outputPath)
	}

	return &Artifact{Path: outputPath, Size: info.Size()}, nil
}

func (f *FFmpeg) buildArgs(sourcePath, outputPath string, crf int) []string {
	return []string{
		"-y",
		"-i", sourcePath,
		"-c:v", "libvpx-vp9",
		"-crf", strconv.Itoa(crf),
		"-b:v", "0",
		"-b:a", f.audioBitrate,
		"-c:a", "libopus",
		"-threads", strconv.Itoa(f.threads),
		"-row-mt", "1",
		"-loglevel", "error",
		outputPath,
	}
}
