// Command st7789-show puts a still image, a line of text, or a solid color on
// an ST7789 TFT panel and holds it there until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/golang/freetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	display "github.com/c0m4r/radxa-rock5c-lite"
)

func main() {
	imageFlag := flag.String("image", "", "Path to the image file to display")
	textFlag := flag.String("text", "", "Text string to display")
	clearFlag := flag.Bool("clear", false, "Clear the display to the background color")
	fontFlag := flag.String("font", "", "Path to TTF font file (required for -text)")
	fontSizeFlag := flag.Int("fontsize", 24, "Font size for text")
	textColorFlag := flag.String("text-color", "255,255,255", `Text color as "R,G,B"`)
	bgColorFlag := flag.String("bg-color", "0,0,0", `Background color as "R,G,B"`)
	positionFlag := flag.String("position", "10,10", `Top-left text position as "X,Y"`)
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
	flag.Parse()

	modes := 0
	for _, set := range []bool{*imageFlag != "", *textFlag != "", *clearFlag} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s -image PATH | -text STRING | -clear [flags]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *textFlag != "" && *fontFlag == "" {
		fatal(fmt.Errorf("-font is required with -text"))
	}

	rotation, err := parseRotation(*rotateFlag)
	if err != nil {
		fatal(err)
	}
	textColor, err := parseColor(*textColorFlag)
	if err != nil {
		fatal(err)
	}
	bgColor, err := parseColor(*bgColorFlag)
	if err != nil {
		fatal(err)
	}
	posX, posY, err := parsePosition(*positionFlag)
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

	draw.Draw(d, d.Bounds(), image.NewUniform(bgColor), image.Point{}, draw.Src)

	switch {
	case *imageFlag != "":
		err = drawImage(d, *imageFlag)
	case *textFlag != "":
		err = drawText(d, *textFlag, *fontFlag, *fontSizeFlag, posX, posY, textColor)
	}
	if err == nil {
		err = d.Refresh()
	}
	if err != nil {
		_ = d.Close()
		fatal(err)
	}

	// Keep the panel driven until interrupted; closing turns the display off.
	fmt.Println("Press Ctrl+C to exit.")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	if err := d.Close(); err != nil {
		fatal(err)
	}
}

// drawImage decodes the file and scales it onto the full display.
func drawImage(d display.Display, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	xdraw.CatmullRom.Scale(d, d.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return nil
}

// drawText renders text with a TTF font at the given position.
func drawText(d display.Display, text, fontPath string, size, x, y int, c color.Color) error {
	fontData, err := os.ReadFile(fontPath)
	if err != nil {
		return err
	}
	fnt, err := freetype.ParseFont(fontData)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", fontPath, err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(fnt)
	ctx.SetFontSize(float64(size))
	ctx.SetClip(d.Bounds())
	ctx.SetDst(d)
	ctx.SetSrc(image.NewUniform(c))
	ctx.SetHinting(font.HintingFull)

	pt := freetype.Pt(x, y+int(ctx.PointToFixed(float64(size))>>6))
	_, err = ctx.DrawString(text, pt)
	return err
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
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

func parseColor(s string) (color.RGBA, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.RGBA{}, fmt.Errorf("invalid color %q, use \"R,G,B\"", s)
	}
	var channels [3]uint8
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 || v > 255 {
			return color.RGBA{}, fmt.Errorf("invalid color %q, channels are 0-255", s)
		}
		channels[i] = uint8(v)
	}
	return color.RGBA{R: channels[0], G: channels[1], B: channels[2], A: 0xFF}, nil
}

func parsePosition(s string) (x, y int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid position %q, use \"X,Y\"", s)
	}
	if x, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return 0, 0, fmt.Errorf("invalid position %q: %w", s, err)
	}
	if y, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
		return 0, 0, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return x, y, nil
}
