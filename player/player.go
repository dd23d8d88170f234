// Package player paces decoded frames onto the panel and guarantees teardown
// of the frame source and the display hardware on every exit path.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"
)

// Source yields decoded full-screen frames.
type Source interface {
	// NextFrame blocks until a full frame is available. io.EOF ends playback
	// cleanly.
	NextFrame() ([]byte, error)

	// Stop terminates the source. Idempotent.
	Stop() error
}

// Screen displays frames.
type Screen interface {
	// DrawRGB displays one full-screen frame of packed 24-bit RGB pixels.
	DrawRGB([]byte) error

	// Close releases the display and its hardware resources. Idempotent.
	Close() error
}

// Options tune a playback session.
type Options struct {
	// FPS is the wall-clock frame rate target. Defaults to 25.
	FPS float64

	// ReportEvery is the interval between throughput reports. Defaults to 2s.
	ReportEvery time.Duration

	// Log receives progress reports. Defaults to the standard logger.
	Log *log.Logger
}

// Stats summarize a finished playback session.
type Stats struct {
	// Frames displayed.
	Frames int

	// Elapsed wall-clock session time.
	Elapsed time.Duration
}

// FPS is the average frame rate over the whole session.
func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

// Play drives one playback session end to end. No matter what ends the
// session (end of stream, a source or display error, cancellation of ctx)
// both resources are torn down before Play returns, in fixed order: the
// source is stopped first, then the screen is closed, which releases its GPIO
// lines before closing the serial bus. Cancellation is a clean stop, not an
// error.
//
// Pacing is best effort: every iteration sleeps for the remainder of the
// frame interval, with no compensation for accumulated drift and no frame
// dropping.
func Play(ctx context.Context, src Source, scr Screen, opts Options) (stats Stats, err error) {
	if opts.FPS <= 0 {
		opts.FPS = 25
	}
	if opts.ReportEvery <= 0 {
		opts.ReportEvery = 2 * time.Second
	}
	logger := opts.Log
	if logger == nil {
		logger = log.Default()
	}

	var (
		interval   = time.Duration(float64(time.Second) / opts.FPS)
		start      = time.Now()
		lastReport = start
	)

	defer func() {
		// Fixed teardown order; every step runs even if an earlier one
		// failed.
		stopErr := src.Stop()
		closeErr := scr.Close()
		if err == nil && stopErr != nil {
			err = fmt.Errorf("player: stop source: %w", stopErr)
		}
		if err == nil && closeErr != nil {
			err = fmt.Errorf("player: close display: %w", closeErr)
		}
		stats.Elapsed = time.Since(start)
	}()

	for {
		if ctx.Err() != nil {
			logger.Print("player: interrupted, stopping")
			return stats, nil
		}

		frameStart := time.Now()

		frame, ferr := src.NextFrame()
		if errors.Is(ferr, io.EOF) {
			return stats, nil
		}
		if ferr != nil {
			return stats, ferr
		}

		if derr := scr.DrawRGB(frame); derr != nil {
			return stats, derr
		}
		stats.Frames++

		if sleep := interval - time.Since(frameStart); sleep > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(sleep):
			}
		}

		if now := time.Now(); now.Sub(lastReport) >= opts.ReportEvery {
			elapsed := now.Sub(start)
			logger.Printf("player: %d frames in %.2fs (%.2f fps)",
				stats.Frames, elapsed.Seconds(), float64(stats.Frames)/elapsed.Seconds())
			lastReport = now
		}
	}
}
