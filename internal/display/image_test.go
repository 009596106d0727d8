package display

import (
	"bytes"
	"image"
	"testing"

	"github.com/retroenv/chip8vm/internal/interpreter"
	"github.com/retroenv/retrogolib/assert"
	"golang.org/x/image/bmp"
)

func TestImage(t *testing.T) {
	var frame Frame
	frame.Set(1, 2, true)

	tests := []struct {
		name      string
		scale     int
		wantScale int
	}{
		{"unscaled", 1, 1},
		{"scaled", 4, 4},
		{"zero scale", 0, 1},
		{"negative scale", -3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := Image(frame, tt.scale)
			s := tt.wantScale
			assert.Equal(t, image.Rect(0, 0, interpreter.ScreenWidth*s, interpreter.ScreenHeight*s), img.Bounds())

			assert.Equal(t, uint8(1), img.ColorIndexAt(1*s, 2*s))
			assert.Equal(t, uint8(1), img.ColorIndexAt(2*s-1, 3*s-1))
			assert.Equal(t, uint8(0), img.ColorIndexAt(2*s, 2*s))
			assert.Equal(t, uint8(0), img.ColorIndexAt(0, 0))
		})
	}
}

func TestWriteBMP(t *testing.T) {
	var frame Frame
	frame.Set(0, 0, true)
	frame.Set(63, 31, true)

	var buf bytes.Buffer
	assert.NoError(t, WriteBMP(&buf, frame, 2))
	assert.Equal(t, "BM", buf.String()[:2])

	img, err := bmp.Decode(&buf)
	assert.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 128, 64), img.Bounds())

	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xFFFF), r)
	assert.Equal(t, uint32(0xFFFF), g)
	assert.Equal(t, uint32(0xFFFF), b)

	r, _, _, _ = img.At(2, 2).RGBA()
	assert.Equal(t, uint32(0), r)

	r, _, _, _ = img.At(127, 63).RGBA()
	assert.Equal(t, uint32(0xFFFF), r)
}
