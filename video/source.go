// Package video spawns and owns an external ffmpeg process that decodes a
// video file into a continuous stream of raw RGB frames.
package video

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const (
	// livenessDelay is how long after spawning the decoder gets before we
	// check that it is still alive.
	livenessDelay = 100 * time.Millisecond

	// stopGrace is the grace period between asking the decoder to terminate
	// and killing it.
	stopGrace = 1 * time.Second
)

// ExitError reports a decoder process that failed or exited unexpectedly,
// together with the diagnostics it wrote to stderr.
type ExitError struct {
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("video: decoder exited: %v", e.Err)
	}
	return fmt.Sprintf("video: decoder exited: %v\n%s", e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Config describes one decode session.
type Config struct {
	// Path of the video source file.
	Path string

	// Width and Height of the emitted frames in pixels.
	Width  int
	Height int

	// FPS is the frame rate the decoder is asked to emit at.
	FPS float64

	// FFmpeg is the decoder binary, resolved on PATH when not absolute.
	// Defaults to "ffmpeg".
	FFmpeg string
}

// Source owns a running decoder process. Frames are read off its stdout pipe;
// the pipe provides the backpressure, so neither side needs explicit flow
// control.
type Source struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  bytes.Buffer
	frame   []byte
	waitCh  chan error
	stopped bool
}

// Start spawns the decoder emitting raw RGB24 frames (3 bytes per pixel,
// row-major, no header) at the requested resolution and rate. A decoder that
// dies right away is reported as an [ExitError] carrying its own diagnostics.
func Start(cfg Config) (*Source, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("video: invalid frame size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 25
	}
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("video: source: %w", err)
	}

	cmd := exec.Command(cfg.FFmpeg,
		"-loglevel", "warning",
		"-nostdin",
		"-i", cfg.Path,
		"-vf", fmt.Sprintf("fps=%g,scale=%d:%d:flags=lanczos", cfg.FPS, cfg.Width, cfg.Height),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo",
		"-",
	)

	s := &Source{
		cmd:    cmd,
		frame:  make([]byte, cfg.Width*cfg.Height*3),
		waitCh: make(chan error, 1),
	}
	cmd.Stderr = &s.stderr

	// A hand-made pipe instead of cmd.StdoutPipe: Wait runs concurrently with
	// the frame reads and must not close the read end under them. The decoder
	// exiting closes the write end, which drains into a normal end of stream.
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("video: stdout pipe: %w", err)
	}
	cmd.Stdout = w
	s.stdout = r

	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, fmt.Errorf("video: start %s: %w", cfg.FFmpeg, err)
	}
	_ = w.Close() // the child holds its own copy
	go func() { s.waitCh <- cmd.Wait() }()

	select {
	case err := <-s.waitCh:
		_ = r.Close()
		if err == nil {
			err = errors.New("exited before the first frame")
		}
		return nil, &ExitError{Err: err, Stderr: s.stderr.String()}
	case <-time.After(livenessDelay):
	}

	return s, nil
}

// FrameSize is the exact byte length of one frame.
func (s *Source) FrameSize() int {
	return len(s.frame)
}

// NextFrame blocks until one full frame is available and returns it. The
// buffer is reused by the next call. A clean end of stream returns [io.EOF];
// a trailing partial frame also ends the stream.
func (s *Source) NextFrame() ([]byte, error) {
	n, err := io.ReadFull(s.stdout, s.frame)
	switch {
	case err == nil:
		return s.frame, nil
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		log.Printf("video: incomplete frame (%d/%d bytes), assuming end of stream", n, len(s.frame))
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("video: read frame: %w", err)
	}
}

// Stderr returns the diagnostics the decoder has written so far. Only valid
// after the process has exited or Stop has returned.
func (s *Source) Stderr() string {
	return s.stderr.String()
}

// Stop terminates the decoder, gracefully first and by force after a grace
// period, then closes the stream. Stop is idempotent: the process is signaled
// exactly once, no matter how often or why Stop is called.
func (s *Source) Stop() error {
	if s.stopped {
		return nil
	}
	s.stopped = true

	_ = s.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-s.waitCh:
	case <-time.After(stopGrace):
		_ = s.cmd.Process.Kill()
		<-s.waitCh
	}

	if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("video: close stream: %w", err)
	}
	return nil
}
