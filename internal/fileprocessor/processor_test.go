package fileprocessor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/chip8vm/internal/display"
	"github.com/retroenv/chip8vm/internal/options"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/image/bmp"
)

// drawProgram waits for key 5, then draws the glyph of the pressed key and halts:
// LD V0, K; LD F, V0; DRW V1, V1, 5; JP $206
var drawProgram = []byte{0xF0, 0x0A, 0xF0, 0x29, 0xD1, 0x15, 0x12, 0x06}

func testOptions(t *testing.T, program []byte) (options.Program, options.Emulator) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ch8")
	assert.NoError(t, os.WriteFile(path, program, 0600))

	opts := options.Program{
		Parameters: options.Parameters{Input: path, Keys: "5@2"},
		OutputFlags: options.OutputFlags{
			Scale:      options.DefaultScale,
			HoldFrames: options.DefaultHoldFrames,
		},
	}
	emuOpts := options.NewEmulator()
	emuOpts.Throttle = false
	emuOpts.MaxFrames = 10
	return opts, emuOpts
}

// expectedFrameHash returns the hash of the frame showing the glyph of digit 5.
func expectedFrameHash() string {
	var frame display.Frame
	glyph := []byte{0xF0, 0x80, 0xF0, 0x10, 0xF0}
	for y, row := range glyph {
		for x := range 8 {
			frame.Set(x, y, row&(0x80>>x) != 0)
		}
	}
	return display.HashString(frame)
}

func TestProcessFileRun(t *testing.T) {
	logger := log.NewTestLogger(t)

	t.Run("verify frame hash", func(t *testing.T) {
		opts, emuOpts := testOptions(t, drawProgram)
		opts.VerifyHash = strings.ToUpper(expectedFrameHash())

		var out bytes.Buffer
		assert.NoError(t, processFile(context.Background(), logger, opts, emuOpts, &out))
		assert.Equal(t, 0, out.Len())
	})

	t.Run("frame hash mismatch", func(t *testing.T) {
		opts, emuOpts := testOptions(t, drawProgram)
		opts.Keys = "6@2"
		opts.VerifyHash = expectedFrameHash()

		err := processFile(context.Background(), logger, opts, emuOpts, &bytes.Buffer{})
		assert.Error(t, err)
		assert.ErrorContains(t, err, "verification failed")
	})

	t.Run("screenshot", func(t *testing.T) {
		opts, emuOpts := testOptions(t, drawProgram)
		opts.Screenshot = filepath.Join(t.TempDir(), "frame.bmp")
		opts.Scale = 2

		assert.NoError(t, processFile(context.Background(), logger, opts, emuOpts, &bytes.Buffer{}))

		file, err := os.Open(opts.Screenshot)
		assert.NoError(t, err)
		defer func() { _ = file.Close() }()
		img, err := bmp.Decode(file)
		assert.NoError(t, err)
		assert.Equal(t, 128, img.Bounds().Dx())
		assert.Equal(t, 64, img.Bounds().Dy())
	})

	t.Run("screenshot after failure", func(t *testing.T) {
		opts, emuOpts := testOptions(t, []byte{0xFF, 0xFF})
		opts.Screenshot = filepath.Join(t.TempDir(), "frame.bmp")

		err := processFile(context.Background(), logger, opts, emuOpts, &bytes.Buffer{})
		assert.Error(t, err)
		assert.ErrorContains(t, err, "unknown opcode")

		_, err = os.Stat(opts.Screenshot)
		assert.NoError(t, err)
	})

	t.Run("render", func(t *testing.T) {
		opts, emuOpts := testOptions(t, drawProgram)
		opts.Render = true
		emuOpts.Render = true

		var out bytes.Buffer
		assert.NoError(t, processFile(context.Background(), logger, opts, emuOpts, &out))
		assert.True(t, strings.Contains(out.String(), "█"))
	})

	t.Run("lua input", func(t *testing.T) {
		opts, emuOpts := testOptions(t, drawProgram)
		opts.Keys = ""
		opts.LuaScript = filepath.Join(t.TempDir(), "keys.lua")
		opts.VerifyHash = expectedFrameHash()
		script := "function on_frame(frame) if frame == 1 then press(5) end end"
		assert.NoError(t, os.WriteFile(opts.LuaScript, []byte(script), 0600))

		assert.NoError(t, processFile(context.Background(), logger, opts, emuOpts, &bytes.Buffer{}))
	})
}

func TestProcessFileErrors(t *testing.T) {
	logger := log.NewTestLogger(t)

	tests := []struct {
		name    string
		modify  func(*options.Program)
		wantErr string
	}{
		{
			name:    "invalid key script",
			modify:  func(o *options.Program) { o.Keys = "x" },
			wantErr: "parsing key script",
		},
		{
			name:    "missing lua script",
			modify:  func(o *options.Program) { o.LuaScript = "/nonexistent/keys.lua" },
			wantErr: "loading lua script",
		},
		{
			name:    "missing program",
			modify:  func(o *options.Program) { o.Input = "/nonexistent/test.ch8" },
			wantErr: "loading program",
		},
		{
			name: "screenshot directory missing",
			modify: func(o *options.Program) {
				o.Screenshot = "/nonexistent/frame.bmp"
			},
			wantErr: "creating screenshot file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, emuOpts := testOptions(t, drawProgram)
			tt.modify(&opts)

			err := processFile(context.Background(), logger, opts, emuOpts, &bytes.Buffer{})
			assert.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestProcessFileDisasm(t *testing.T) {
	logger := log.NewTestLogger(t)
	opts, emuOpts := testOptions(t, drawProgram)
	opts.Disasm = true

	var out bytes.Buffer
	assert.NoError(t, processFile(context.Background(), logger, opts, emuOpts, &out))

	listing := out.String()
	assert.True(t, strings.Contains(listing, "Start:"), listing)
	assert.True(t, strings.Contains(listing, "ld V0, K"), listing)
	assert.True(t, strings.Contains(listing, "drw V1, V1, $5"), listing)
}

func TestPrintBanner(t *testing.T) {
	logger := log.NewTestLogger(t)
	PrintBanner(logger, options.Program{}, "1.0.0", "0123456789abcdef", "2024-01-01")
	PrintBanner(logger, options.Program{Flags: options.Flags{Quiet: true}}, "dev", "", "")
}
