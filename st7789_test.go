package display

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/c0m4r/radxa-rock5c-lite/player"
)

// mockConn records the protocol traffic of a driver under test.
type mockConn struct {
	ops    []string // interleaved trace of resets, commands and data
	cmds   [][]byte // command byte followed by its payload
	data   [][]byte
	closes int
}

func (c *mockConn) String() string { return "mock" }

func (c *mockConn) Close() error {
	c.closes++
	return nil
}

func (c *mockConn) Reset(level gpio.Level) error {
	c.ops = append(c.ops, fmt.Sprintf("reset %s", level))
	return nil
}

func (c *mockConn) Command(cmd byte, data ...byte) error {
	c.ops = append(c.ops, fmt.Sprintf("cmd %02x", cmd))
	c.cmds = append(c.cmds, append([]byte{cmd}, data...))
	return nil
}

func (c *mockConn) Data(data ...byte) error {
	c.ops = append(c.ops, "data")
	c.data = append(c.data, append([]byte(nil), data...))
	return nil
}

func (c *mockConn) clear() {
	c.ops = nil
	c.cmds = nil
	c.data = nil
}

func newTestPanel(t *testing.T, config *Config) (*st7789, *mockConn) {
	t.Helper()
	c := &mockConn{}
	d, err := ST7789(c, config)
	require.NoError(t, err)
	return d.(*st7789), c
}

func TestST7789Init(t *testing.T) {
	d, c := newTestPanel(t, nil)

	bounds := d.Bounds()
	assert.Equal(t, 320, bounds.Dx())
	assert.Equal(t, 240, bounds.Dy())

	// Exactly three reset transitions, before any command goes on the wire.
	require.GreaterOrEqual(t, len(c.ops), 3)
	assert.Equal(t, []string{"reset High", "reset Low", "reset High"}, c.ops[:3])
	assert.Equal(t, "cmd 01", c.ops[3], "first protocol byte is the software reset")

	want := [][]byte{
		{st7789SWRESET},
		{st7789SLPOUT},
		{st7789COLMOD, 0x55},
		{st7789MADCTL, 0x60}, // landscape: MX | MV
		{st7789NORON},
		{st7789DISPON},
	}
	assert.Equal(t, want, c.cmds)
	assert.Empty(t, c.data, "init sends no stand-alone data transfers")
}

func TestST7789ZeroConfigPortrait(t *testing.T) {
	// A zero config defaults to the controller's native portrait geometry.
	d, c := newTestPanel(t, &Config{})

	bounds := d.Bounds()
	assert.Equal(t, 240, bounds.Dx())
	assert.Equal(t, 320, bounds.Dy())
	assert.Contains(t, c.cmds, []byte{st7789MADCTL, 0x00})
}

func TestST7789InitBGRInvert(t *testing.T) {
	_, c := newTestPanel(t, &Config{Rotation: Rotate90, BGR: true, Invert: true})

	assert.Contains(t, c.cmds, []byte{st7789MADCTL, 0x68}, "BGR sets the RGB order bit")
	assert.Contains(t, c.cmds, []byte{st7789INVON})
}

func TestST7789InvalidSize(t *testing.T) {
	_, err := ST7789(&mockConn{}, &Config{Width: 400, Height: 400, Rotation: Rotate90})
	require.Error(t, err)
}

func TestSetWindowClipping(t *testing.T) {
	d, c := newTestPanel(t, &Config{Width: 4, Height: 4, Rotation: Rotate90})

	tests := []struct {
		name           string
		x0, y0, x1, y1 int
		wantX0, wantY0 int
		wantX1, wantY1 int
	}{
		{"full screen", 0, 0, 3, 3, 0, 0, 3, 3},
		{"outside both ends", -5, -5, 10, 10, 0, 0, 3, 3},
		{"inverted corners", 3, 2, 1, 0, 1, 0, 3, 2},
		{"entirely out of bounds", 10, 10, 20, 20, 3, 3, 3, 3},
		{"entirely negative", -9, -9, -1, -1, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.clear()
			require.NoError(t, d.SetWindow(tt.x0, tt.y0, tt.x1, tt.y1))

			require.Len(t, c.cmds, 3)
			assert.Equal(t, []byte{st7789CASET,
				byte(tt.wantX0 >> 8), byte(tt.wantX0), byte(tt.wantX1 >> 8), byte(tt.wantX1)}, c.cmds[0])
			assert.Equal(t, []byte{st7789RASET,
				byte(tt.wantY0 >> 8), byte(tt.wantY0), byte(tt.wantY1 >> 8), byte(tt.wantY1)}, c.cmds[1])
			assert.Equal(t, []byte{st7789RAMWR}, c.cmds[2])

			// The clipped window is never inverted or out of bounds.
			assert.True(t, 0 <= tt.wantX0 && tt.wantX0 <= tt.wantX1 && tt.wantX1 <= 3)
			assert.True(t, 0 <= tt.wantY0 && tt.wantY0 <= tt.wantY1 && tt.wantY1 <= 3)
		})
	}
}

func TestDrawRGB(t *testing.T) {
	d, c := newTestPanel(t, &Config{Width: 4, Height: 4, Rotation: Rotate90})

	frames := []struct {
		name    string
		r, g, b byte
		wire    []byte
	}{
		{"red", 0xFF, 0x00, 0x00, []byte{0xF8, 0x00}},
		{"green", 0x00, 0xFF, 0x00, []byte{0x07, 0xE0}},
		{"black", 0x00, 0x00, 0x00, []byte{0x00, 0x00}},
	}

	for _, tt := range frames {
		t.Run(tt.name, func(t *testing.T) {
			c.clear()
			frame := bytes.Repeat([]byte{tt.r, tt.g, tt.b}, 16)
			require.NoError(t, d.DrawRGB(frame))

			// One full-screen window, then one data payload of 16 wire pixels.
			require.Len(t, c.cmds, 3)
			assert.Equal(t, []byte{st7789CASET, 0, 0, 0, 3}, c.cmds[0])
			assert.Equal(t, []byte{st7789RASET, 0, 0, 0, 3}, c.cmds[1])
			assert.Equal(t, []byte{st7789RAMWR}, c.cmds[2])

			require.Len(t, c.data, 1)
			assert.Equal(t, bytes.Repeat(tt.wire, 16), c.data[0])
		})
	}
}

func TestDrawRGBBadSize(t *testing.T) {
	d, _ := newTestPanel(t, &Config{Width: 4, Height: 4, Rotation: Rotate90})
	assert.Error(t, d.DrawRGB(make([]byte, 47)))
}

func TestRefresh(t *testing.T) {
	d, c := newTestPanel(t, &Config{Width: 4, Height: 4, Rotation: Rotate90})
	c.clear()

	d.Clear()
	require.NoError(t, d.Refresh())

	require.Len(t, c.data, 1)
	assert.Equal(t, make([]byte, 32), c.data[0])
}

func TestCloseIdempotent(t *testing.T) {
	d, c := newTestPanel(t, &Config{Width: 4, Height: 4, Rotation: Rotate90})
	c.clear()

	require.NoError(t, d.Close())
	assert.Equal(t, [][]byte{{st7789DISPOFF}}, c.cmds)
	assert.Equal(t, 1, c.closes)

	// A second close is a no-op.
	require.NoError(t, d.Close())
	assert.Equal(t, 1, c.closes)
	assert.Len(t, c.cmds, 1)
}

func TestClosedPanelRejectsOperations(t *testing.T) {
	d, c := newTestPanel(t, &Config{Width: 4, Height: 4, Rotation: Rotate90})
	require.NoError(t, d.Close())
	c.clear()

	assert.Error(t, d.Refresh())
	assert.Error(t, d.DrawRGB(make([]byte, 48)))
	assert.Error(t, d.Show(true))
	assert.Error(t, d.SetRotation(Rotate180))
	assert.Empty(t, c.ops, "a closed panel sends nothing")
}

// stubSource feeds a fixed list of frames, then ends the stream.
type stubSource struct {
	frames [][]byte
	stops  int
}

func (s *stubSource) NextFrame() ([]byte, error) {
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func (s *stubSource) Stop() error {
	s.stops++
	return nil
}

func TestPlaybackEndToEnd(t *testing.T) {
	d, c := newTestPanel(t, &Config{Width: 4, Height: 4, Rotation: Rotate90})
	c.clear()

	src := &stubSource{frames: [][]byte{
		bytes.Repeat([]byte{0xFF, 0x00, 0x00}, 16),
		bytes.Repeat([]byte{0x00, 0xFF, 0x00}, 16),
		bytes.Repeat([]byte{0x00, 0x00, 0x00}, 16),
	}}

	stats, err := player.Play(context.Background(), src, d, player.Options{FPS: 10})
	require.NoError(t, err)

	// Three frames at 10 fps pace out to roughly 300ms.
	assert.Equal(t, 3, stats.Frames)
	assert.GreaterOrEqual(t, stats.Elapsed, 250*time.Millisecond)
	assert.Less(t, stats.Elapsed, 900*time.Millisecond)

	// Each frame is one full-screen window and one wire payload.
	require.Len(t, c.data, 3)
	assert.Equal(t, bytes.Repeat([]byte{0xF8, 0x00}, 16), c.data[0])
	assert.Equal(t, bytes.Repeat([]byte{0x07, 0xE0}, 16), c.data[1])
	assert.Equal(t, bytes.Repeat([]byte{0x00, 0x00}, 16), c.data[2])

	windows := 0
	for _, cmd := range c.cmds {
		if cmd[0] == st7789CASET {
			windows++
		}
	}
	assert.Equal(t, 3, windows)

	// Teardown ran exactly once, source before screen.
	assert.Equal(t, 1, src.stops)
	assert.Equal(t, 1, c.closes)
}
