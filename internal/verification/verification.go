// Package verification verifies that a program produced the expected frame.
package verification

import (
	"fmt"
	"strings"

	"github.com/retroenv/chip8vm/internal/display"
	"github.com/retroenv/chip8vm/internal/interpreter"
	"github.com/retroenv/retrogolib/log"
)

// VerifyFrame compares the hash of the frame with the expected hash given
// as hex string. The comparison ignores case and an optional 0x prefix.
func VerifyFrame(logger *log.Logger, expected string, frame display.Frame) error {
	expected = strings.ToLower(strings.TrimSpace(expected))
	expected = strings.TrimPrefix(expected, "0x")

	got := display.HashString(frame)
	if expected == got {
		logger.Debug("Frame hash verified", log.String("hash", got))
		return nil
	}

	logFrame(logger, frame)
	return fmt.Errorf("frame hash mismatch, expected %s but got %s", expected, got)
}

// logFrame logs all rows of the frame that contain set pixels.
func logFrame(logger *log.Logger, frame display.Frame) {
	for y := range interpreter.ScreenHeight {
		row := rowString(frame, y)
		if !strings.Contains(row, "#") {
			continue
		}
		logger.Debug("Frame row", log.Int("row", y), log.String("pixels", row))
	}
}

func rowString(frame display.Frame, y int) string {
	var sb strings.Builder
	for x := range interpreter.ScreenWidth {
		if frame.Pixel(x, y) {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
