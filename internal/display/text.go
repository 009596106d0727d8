package display

import (
	"bytes"
	"fmt"
	"io"

	"github.com/retroenv/chip8vm/internal/interpreter"
	"golang.org/x/term"
)

const (
	clearScreen = "\x1b[2J"
	cursorHome  = "\x1b[H"

	// TextColumns is the number of terminal columns a rendered frame needs.
	TextColumns = interpreter.ScreenWidth
	// TextRows is the number of terminal rows a rendered frame needs,
	// two pixel rows share one text line.
	TextRows = interpreter.ScreenHeight / 2
)

// halfBlocks maps the top and bottom pixel of a text cell to its glyph,
// indexed by top | bottom<<1.
var halfBlocks = [4]rune{' ', '▀', '▄', '█'}

// TextOption configures a TextRenderer.
type TextOption func(*TextRenderer)

// WithCursorHome moves the cursor to the top left corner before every frame
// so that frames overwrite each other. The screen is cleared before the
// first frame.
func WithCursorHome() TextOption {
	return func(r *TextRenderer) {
		r.cursorHome = true
	}
}

// WithRawLineEndings terminates lines with a carriage return and line feed,
// as required by terminals in raw mode.
func WithRawLineEndings() TextOption {
	return func(r *TextRenderer) {
		r.lineEnding = "\r\n"
	}
}

// TextRenderer draws frames as Unicode half block characters.
type TextRenderer struct {
	w          io.Writer
	buf        bytes.Buffer
	cursorHome bool
	cleared    bool
	lineEnding string
}

// NewTextRenderer returns a renderer that writes frames to w.
func NewTextRenderer(w io.Writer, options ...TextOption) *TextRenderer {
	r := &TextRenderer{
		w:          w,
		lineEnding: "\n",
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Render writes the frame with a single write call.
func (r *TextRenderer) Render(frame Frame) error {
	r.buf.Reset()
	if r.cursorHome {
		if !r.cleared {
			r.buf.WriteString(clearScreen)
			r.cleared = true
		}
		r.buf.WriteString(cursorHome)
	}

	for y := 0; y < interpreter.ScreenHeight; y += 2 {
		for x := range interpreter.ScreenWidth {
			var index int
			if frame.Pixel(x, y) {
				index |= 1
			}
			if frame.Pixel(x, y+1) {
				index |= 2
			}
			r.buf.WriteRune(halfBlocks[index])
		}
		r.buf.WriteString(r.lineEnding)
	}

	if _, err := r.w.Write(r.buf.Bytes()); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// TerminalFits returns an error if the file descriptor is not a terminal or
// the terminal is too small to show a complete frame.
func TerminalFits(fd int) error {
	if !term.IsTerminal(fd) {
		return fmt.Errorf("file descriptor %d is not a terminal", fd)
	}
	width, height, err := term.GetSize(fd)
	if err != nil {
		return fmt.Errorf("getting terminal size: %w", err)
	}
	if width < TextColumns || height < TextRows {
		return fmt.Errorf("terminal size %dx%d is smaller than the required %dx%d",
			width, height, TextColumns, TextRows)
	}
	return nil
}
