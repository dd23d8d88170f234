package conn

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"
	"testing"
)

// pipeSPI builds an SPI handle over an OS pipe, so writes can be inspected
// without a real spidev device.
func pipeSPI(t *testing.T) (*SPI, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	return &SPI{f: w, fd: w.Fd()}, r
}

func TestWriteChunked(t *testing.T) {
	c, r := pipeSPI(t)

	// Two full chunks plus a remainder.
	payload := make([]byte, MaxTransfer*2+100)
	if _, err := rand.Read(payload); err != nil {
		t.Fatal(err)
	}

	n, err := c.Write(payload)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != len(payload) {
		t.Errorf("expected %d bytes written, got %d", len(payload), n)
	}

	got := make([]byte, len(payload))
	if _, err := io.ReadFull(r, got); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("chunked write reordered or corrupted the payload")
	}
}

func TestWriteAbortsOnFailure(t *testing.T) {
	c, r := pipeSPI(t)
	_ = r.Close()

	// With the read side gone every chunk fails; the write must abort
	// instead of retrying.
	if _, err := c.Write(make([]byte, MaxTransfer+1)); err == nil {
		t.Error("expected a write error on a broken pipe")
	}
}

func TestCloseIdempotent(t *testing.T) {
	c, _ := pipeSPI(t)

	if err := c.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
