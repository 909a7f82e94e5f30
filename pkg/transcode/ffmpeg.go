package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/trackforge/previewd/pkg/config"
)

// The preview policy is fixed on purpose: a hard 30s cap keeps generation
// time and storage bounded regardless of source length, and a fixed bitrate
// gives predictable artifact size across the whole catalog.
const (
	PreviewDurationSeconds = 30
	PreviewBitrate         = "192k"
)

// ErrBinaryNotFound means the encoder is absent from the host. It is an
// environment problem, not a job failure.
var ErrBinaryNotFound = errors.New("encoder binary not found")

// ExitError carries the encoder's exit status for diagnostics.
type ExitError struct {
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("encoder exited with status %d: %s", e.ExitCode, e.Stderr)
}

type FFmpeg struct {
	binary string
	log    *slog.Logger
}

func NewFFmpeg(l *slog.Logger, conf config.TranscodeConfig) *FFmpeg {
	return &FFmpeg{binary: conf.Binary, log: l}
}

func (f *FFmpeg) Probe(ctx context.Context) error {
	binPath, err := exec.LookPath(f.binary)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBinaryNotFound, f.binary)
	}

	err = exec.CommandContext(ctx, binPath, "-version").Run()
	if err != nil {
		return fmt.Errorf("%w: %q is present but not invocable: %v", ErrBinaryNotFound, binPath, err)
	}

	return nil
}

func (f *FFmpeg) Transcode(ctx context.Context, inputPath string, outputPath string) error {
	args := buildArgs(inputPath, outputPath)
	cmd := exec.CommandContext(ctx, f.binary, args...)

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	f.log.Debug("spawning encoder", "binary", f.binary, "input", inputPath, "output", outputPath)

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{ExitCode: exitErr.ExitCode(), Stderr: lastLine(stderr.Bytes())}
	}

	return fmt.Errorf("error spawning encoder: %w", err)
}

// buildArgs assembles the fixed argument policy: start at offset 0, cap at
// 30s, drop any video stream, MP3 at 192 kbps, overwrite the output. Sources
// shorter than the cap pass through untouched; the encoder emits whatever is
// available without padding.
func buildArgs(inputPath string, outputPath string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-ss", "0",
		"-t", strconv.Itoa(PreviewDurationSeconds),
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", PreviewBitrate,
		outputPath,
	}
}

func lastLine(output []byte) string {
	lines := bytes.Split(bytes.TrimSpace(output), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}

	return string(bytes.TrimSpace(lines[len(lines)-1]))
}
