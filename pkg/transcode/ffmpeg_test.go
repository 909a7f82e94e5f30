package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackforge/previewd/pkg/config"
	"github.com/trackforge/previewd/pkg/logger"
)

var llog = logger.NewDummy()

// fakeBinary drops an executable shell script into a temp dir so the tests
// can exercise real process spawning without an ffmpeg install.
func fakeBinary(t *testing.T, script string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755)
	require.NoError(t, err)

	return path
}

func newFFmpegWithBinary(binary string) *FFmpeg {
	return NewFFmpeg(llog, config.TranscodeConfig{Binary: binary})
}

func TestBuildArgsFixedPolicy(t *testing.T) {
	args := buildArgs("/scratch/input.wav", "/scratch/preview.mp3")

	expected := []string{
		"-y",
		"-i", "/scratch/input.wav",
		"-ss", "0",
		"-t", "30",
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", "192k",
		"/scratch/preview.mp3",
	}
	assert.Equal(t, expected, args)
}

func TestProbeSucceedsWhenBinaryIsInvocable(t *testing.T) {
	binary := fakeBinary(t, "exit 0")

	err := newFFmpegWithBinary(binary).Probe(context.Background())
	assert.NoError(t, err)
}

func TestProbeFailsWhenBinaryIsAbsent(t *testing.T) {
	err := newFFmpegWithBinary("definitely-not-installed-anywhere").Probe(context.Background())
	assert.ErrorIs(t, err, ErrBinaryNotFound)
}

func TestProbeFailsWhenBinaryIsNotInvocable(t *testing.T) {
	binary := fakeBinary(t, "exit 127")

	err := newFFmpegWithBinary(binary).Probe(context.Background())
	assert.ErrorIs(t, err, ErrBinaryNotFound)
}

func TestTranscodeSuccess(t *testing.T) {
	binary := fakeBinary(t, `for last; do :; done
echo "preview" > "$last"`)

	outputPath := filepath.Join(t.TempDir(), "preview.mp3")
	err := newFFmpegWithBinary(binary).
		Transcode(context.Background(), "input.wav", outputPath)
	require.NoError(t, err)

	_, err = os.Stat(outputPath)
	assert.NoError(t, err, "the fake encoder should have produced the output file")
}

func TestTranscodeSurfacesExitStatusAndStderr(t *testing.T) {
	binary := fakeBinary(t, `echo "some banner noise" >&2
echo "input.wav: Invalid data found when processing input" >&2
exit 183`)

	err := newFFmpegWithBinary(binary).
		Transcode(context.Background(), "input.wav", "preview.mp3")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 183, exitErr.ExitCode)
	assert.Equal(t, "input.wav: Invalid data found when processing input", exitErr.Stderr,
		"only the last stderr line should be kept")
}

func TestTranscodeSpawnFailureIsNotAnExitError(t *testing.T) {
	err := newFFmpegWithBinary("definitely-not-installed-anywhere").
		Transcode(context.Background(), "input.wav", "preview.mp3")
	require.Error(t, err)

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "spawn failures carry no exit status")
}

func TestTranscodeHonorsContextCancellation(t *testing.T) {
	binary := fakeBinary(t, "sleep 5")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := newFFmpegWithBinary(binary).Transcode(ctx, "input.wav", "preview.mp3")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "", lastLine(nil))
	assert.Equal(t, "only", lastLine([]byte("only")))
	assert.Equal(t, "tail", lastLine([]byte("head\nmiddle\ntail\n")))
}
