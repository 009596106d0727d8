package display

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/retroenv/chip8vm/internal/interpreter"
	"golang.org/x/image/bmp"
)

// Palette contains the colors of unset and set pixels.
var Palette = color.Palette{
	color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xFF},
	color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
}

// Image returns the frame as a paletted image with every pixel scaled to a
// scale x scale square. A scale below 1 is treated as 1.
func Image(frame Frame, scale int) *image.Paletted {
	scale = max(scale, 1)
	rect := image.Rect(0, 0, interpreter.ScreenWidth*scale, interpreter.ScreenHeight*scale)
	img := image.NewPaletted(rect, Palette)

	for y := range interpreter.ScreenHeight {
		for x := range interpreter.ScreenWidth {
			if !frame.Pixel(x, y) {
				continue
			}
			for dy := range scale {
				offset := img.PixOffset(x*scale, y*scale+dy)
				for dx := range scale {
					img.Pix[offset+dx] = 1
				}
			}
		}
	}
	return img
}

// WriteBMP encodes the scaled frame as BMP image.
func WriteBMP(w io.Writer, frame Frame, scale int) error {
	if err := bmp.Encode(w, Image(frame, scale)); err != nil {
		return fmt.Errorf("encoding bmp: %w", err)
	}
	return nil
}
