// Package display presents the interpreter frame buffer as terminal text,
// paletted images and BMP screenshots, and hashes frames for verification.
package display

import (
	"fmt"

	"github.com/cespare/xxhash"
	"github.com/retroenv/chip8vm/internal/interpreter"
)

// Frame is a snapshot of the 64x32 monochrome frame buffer. Every cell is
// 0 or 1, stored row-major.
type Frame [interpreter.FrameSize]byte

// Pixel returns whether the pixel at x, y is set. Out of range coordinates
// are reported as not set.
func (f *Frame) Pixel(x, y int) bool {
	if x < 0 || x >= interpreter.ScreenWidth || y < 0 || y >= interpreter.ScreenHeight {
		return false
	}
	return f[x+y*interpreter.ScreenWidth] != 0
}

// Set sets the pixel at x, y. Out of range coordinates are ignored.
func (f *Frame) Set(x, y int, on bool) {
	if x < 0 || x >= interpreter.ScreenWidth || y < 0 || y >= interpreter.ScreenHeight {
		return
	}
	var value byte
	if on {
		value = 1
	}
	f[x+y*interpreter.ScreenWidth] = value
}

// Hash returns the 64 bit xxHash of the frame contents.
func Hash(frame Frame) uint64 {
	return xxhash.Sum64(frame[:])
}

// HashString returns the frame hash formatted as 16 lowercase hex digits.
func HashString(frame Frame) string {
	return fmt.Sprintf("%016x", Hash(frame))
}
