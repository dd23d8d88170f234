package video

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDecoder writes a shell script that stands in for ffmpeg. The script
// ignores the decoder arguments and runs body instead.
func fakeDecoder(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// source is a readable file to satisfy the existence check.
func source(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.webm")
	require.NoError(t, os.WriteFile(path, []byte("not a real video"), 0o644))
	return path
}

func TestStartMissingSource(t *testing.T) {
	_, err := Start(Config{Path: "/no/such/file", Width: 4, Height: 4, FPS: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStartInvalidSize(t *testing.T) {
	_, err := Start(Config{Path: "/dev/null", Width: 0, Height: 4})
	require.Error(t, err)
}

func TestStartDecoderDiesImmediately(t *testing.T) {
	ffmpeg := fakeDecoder(t, `echo "boom: no such codec" >&2; exit 1`)
	_, err := Start(Config{Path: source(t), Width: 4, Height: 4, FPS: 10, FFmpeg: ffmpeg})
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Contains(t, exitErr.Stderr, "no such codec")
}

func TestNextFrame(t *testing.T) {
	// Emit exactly two 4x4 RGB24 frames (48 bytes each), then exit. The sleep
	// keeps the decoder alive through the liveness window.
	ffmpeg := fakeDecoder(t, `dd if=/dev/zero bs=48 count=2 2>/dev/null; sleep 0.3`)
	s, err := Start(Config{Path: source(t), Width: 4, Height: 4, FPS: 10, FFmpeg: ffmpeg})
	require.NoError(t, err)
	defer s.Stop()

	assert.Equal(t, 48, s.FrameSize())

	for i := 0; i < 2; i++ {
		frame, err := s.NextFrame()
		require.NoError(t, err, "frame %d", i)
		assert.Len(t, frame, 48)
	}

	_, err = s.NextFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNextFramePartialFrameEndsStream(t *testing.T) {
	ffmpeg := fakeDecoder(t, `dd if=/dev/zero bs=30 count=1 2>/dev/null; sleep 0.3`)
	s, err := Start(Config{Path: source(t), Width: 4, Height: 4, FPS: 10, FFmpeg: ffmpeg})
	require.NoError(t, err)
	defer s.Stop()

	_, err = s.NextFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStopIdempotent(t *testing.T) {
	ffmpeg := fakeDecoder(t, `exec sleep 30`)
	s, err := Start(Config{Path: source(t), Width: 4, Height: 4, FPS: 10, FFmpeg: ffmpeg})
	require.NoError(t, err)

	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
}

func TestStartDecoderExitsCleanlyDuringStartup(t *testing.T) {
	ffmpeg := fakeDecoder(t, `exit 0`)
	_, err := Start(Config{Path: source(t), Width: 4, Height: 4, FPS: 10, FFmpeg: ffmpeg})
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
}

func TestStopAfterNaturalExit(t *testing.T) {
	ffmpeg := fakeDecoder(t, `sleep 0.2`)
	s, err := Start(Config{Path: source(t), Width: 4, Height: 4, FPS: 10, FFmpeg: ffmpeg})
	require.NoError(t, err)

	_, err = s.NextFrame()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
}
