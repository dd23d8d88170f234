// Command st7789-play streams a video file onto an ST7789 TFT panel,
// decoding through ffmpeg.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	display "github.com/c0m4r/radxa-rock5c-lite"
	"github.com/c0m4r/radxa-rock5c-lite/player"
	"github.com/c0m4r/radxa-rock5c-lite/video"
)

func main() {
	widthFlag := flag.Int("width", 320, "Display width")
	heightFlag := flag.Int("height", 240, "Display height")
	spiBusFlag := flag.Int("spi-bus", 0, "SPI bus")
	spiDeviceFlag := flag.Int("spi-dev", 0, "SPI device")
	spiSpeedFlag := flag.Uint("spi-speed", 40_000_000, "SPI clock speed in Hz")
	dcPinFlag := flag.String("dc", "GPIO24", "Data/Command GPIO pin (DC)")
	resetPinFlag := flag.String("reset", "GPIO25", "Reset GPIO pin")
	rotateFlag := flag.String("rotate", "90", "Display rotation")
	bgrFlag := flag.Bool("bgr", false, "Panel is wired in BGR channel order")
	invertFlag := flag.Bool("invert", false, "Enable display color inversion")
	fpsFlag := flag.Float64("fps", 25, "Target frames per second")
	ffmpegFlag := flag.String("ffmpeg", "ffmpeg", "Decoder binary")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <video>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	rotation, err := parseRotation(*rotateFlag)
	if err != nil {
		fatal(err)
	}

	if _, err := host.Init(); err != nil {
		fatal(err)
	}

	c, err := display.OpenSPI(&display.SPIConfig{
		Bus:     *spiBusFlag,
		Device:  *spiDeviceFlag,
		SpeedHz: uint32(*spiSpeedFlag),
		DC:      gpioreg.ByName(*dcPinFlag),
		Reset:   gpioreg.ByName(*resetPinFlag),
	})
	if err != nil {
		fatal(err)
	}

	d, err := display.ST7789(c, &display.Config{
		Width:    *widthFlag,
		Height:   *heightFlag,
		Rotation: rotation,
		BGR:      *bgrFlag,
		Invert:   *invertFlag,
	})
	if err != nil {
		_ = c.Close()
		fatal(err)
	}

	// Blank the panel before the first frame arrives.
	d.Clear()
	if err = d.Refresh(); err != nil {
		_ = d.Close()
		fatal(err)
	}

	src, err := video.Start(video.Config{
		Path:   flag.Arg(0),
		Width:  *widthFlag,
		Height: *heightFlag,
		FPS:    *fpsFlag,
		FFmpeg: *ffmpegFlag,
	})
	if err != nil {
		_ = d.Close()
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := player.Play(ctx, src, d, player.Options{FPS: *fpsFlag})
	if err != nil {
		fatal(err)
	}
	log.Printf("played %d frames in %.2fs (%.2f fps average)",
		stats.Frames, stats.Elapsed.Seconds(), stats.FPS())
}

func parseRotation(s string) (display.Rotation, error) {
	switch s {
	case "", "no", "0":
		return display.NoRotation, nil
	case "90", "right", "cw":
		return display.Rotate90, nil
	case "180", "flip":
		return display.Rotate180, nil
	case "270", "left", "ccw":
		return display.Rotate270, nil
	default:
		return 0, fmt.Errorf("invalid rotation %q specified", s)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
