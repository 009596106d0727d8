package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/chip8vm/internal/display"
	"github.com/retroenv/chip8vm/internal/input"
	"github.com/retroenv/chip8vm/internal/interpreter"
	"github.com/retroenv/chip8vm/internal/options"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestNew(t *testing.T) {
	logger := log.NewTestLogger(t)
	p := New(logger)

	assert.NotNil(t, p)
	assert.NotNil(t, p.logger)
	assert.NotNil(t, p.detector)
	assert.NotNil(t, p.loader)
}

// testOptions returns unthrottled options with a frame limit that ends
// runaway tests.
func testOptions() options.Emulator {
	opts := options.NewEmulator()
	opts.Throttle = false
	opts.MaxFrames = 100
	return opts
}

type recordingRenderer struct {
	frames []display.Frame
}

func (r *recordingRenderer) Render(frame display.Frame) error {
	r.frames = append(r.frames, frame)
	return nil
}

//nolint:funlen // table driven test
func TestExecuteWithProgram(t *testing.T) {
	tests := []struct {
		name       string
		program    []byte
		opts       func(*options.Emulator)
		keys       string
		wantReason StopReason
		wantFrames uint64
		wantCycles uint64
		wantV0     byte
		wantPC     uint16
	}{
		{
			name:       "halt on self jump",
			program:    []byte{0x60, 0x05, 0x12, 0x02},
			wantReason: StopHalted,
			wantFrames: 1,
			wantCycles: 1,
			wantV0:     5,
			wantPC:     0x202,
		},
		{
			name:    "frame limit",
			program: []byte{0x70, 0x01, 0x12, 0x00},
			opts: func(o *options.Emulator) {
				o.MaxFrames = 3
			},
			wantReason: StopFrameLimit,
			wantFrames: 3,
			wantCycles: 30,
			wantV0:     15,
			wantPC:     0x200,
		},
		{
			name:    "cycles per frame",
			program: []byte{0x70, 0x01, 0x12, 0x00},
			opts: func(o *options.Emulator) {
				o.MaxFrames = 2
				o.CyclesPerFrame = 4
			},
			wantReason: StopFrameLimit,
			wantFrames: 2,
			wantCycles: 8,
			wantV0:     4,
			wantPC:     0x200,
		},
		{
			name:    "skip unknown opcode",
			program: []byte{0xFF, 0xFF, 0x60, 0x07, 0x12, 0x04},
			opts: func(o *options.Emulator) {
				o.ErrorPolicy = options.ErrorPolicySkip
			},
			wantReason: StopHalted,
			wantFrames: 1,
			wantCycles: 2,
			wantV0:     7,
			wantPC:     0x204,
		},
		{
			name:       "wait for scripted key",
			program:    []byte{0xF0, 0x0A, 0x12, 0x02},
			keys:       "7@3",
			wantReason: StopHalted,
			wantFrames: 4,
			wantCycles: 31,
			wantV0:     7,
			wantPC:     0x202,
		},
		{
			name: "halt waits for the sound timer",
			// LD V0, $02; LD ST, V0; JP $204
			program:    []byte{0x60, 0x02, 0xF0, 0x18, 0x12, 0x04},
			wantReason: StopHalted,
			wantFrames: 3,
			wantCycles: 20,
			wantV0:     2,
			wantPC:     0x204,
		},
		{
			name: "trace instructions",
			// LD I, $300; LD [I], V0; JP $204
			program: []byte{0xA3, 0x00, 0xF0, 0x55, 0x12, 0x04},
			opts: func(o *options.Emulator) {
				o.Trace = true
			},
			wantReason: StopHalted,
			wantFrames: 1,
			wantCycles: 2,
			wantPC:     0x204,
		},
		{
			name:    "custom entry point",
			program: []byte{0x60, 0x09, 0x13, 0x02},
			opts: func(o *options.Emulator) {
				o.EntryPoint = 0x300
			},
			wantReason: StopHalted,
			wantFrames: 1,
			wantCycles: 1,
			wantV0:     9,
			wantPC:     0x302,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(log.NewTestLogger(t))
			opts := testOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			var source input.Source
			if tt.keys != "" {
				script, err := input.ParseScript(tt.keys)
				assert.NoError(t, err)
				source = script
			}

			result, err := p.ExecuteWithProgram(context.Background(), tt.program, opts, source, nil)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantReason, result.StopReason)
			assert.Equal(t, tt.wantFrames, result.Frames)
			assert.Equal(t, tt.wantCycles, result.Cycles)
			assert.Equal(t, tt.wantV0, result.State.V[0])
			assert.Equal(t, tt.wantPC, result.State.PC)
		})
	}
}

func TestExecuteWithProgramErrors(t *testing.T) {
	p := New(log.NewTestLogger(t))

	t.Run("unknown opcode halts", func(t *testing.T) {
		result, err := p.ExecuteWithProgram(context.Background(), []byte{0x60, 0x01, 0xFF, 0xFF}, testOptions(), nil, nil)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, interpreter.ErrUnknownOpcode))
		assert.ErrorContains(t, err, "executing instruction at $202")
		assert.NotNil(t, result)
		assert.Equal(t, uint16(0x202), result.State.PC)
		assert.Equal(t, byte(1), result.State.V[0])
		assert.Equal(t, uint64(1), result.Cycles)
	})

	t.Run("skip policy still halts on stack errors", func(t *testing.T) {
		opts := testOptions()
		opts.ErrorPolicy = options.ErrorPolicySkip

		_, err := p.ExecuteWithProgram(context.Background(), []byte{0x00, 0xEE}, opts, nil, nil)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, interpreter.ErrStackUnderflow))
	})

	t.Run("program does not fit", func(t *testing.T) {
		opts := testOptions()
		opts.EntryPoint = 0xFFE

		_, err := p.ExecuteWithProgram(context.Background(), []byte{0x60, 0x01, 0x12, 0x00}, opts, nil, nil)
		assert.Error(t, err)
		assert.ErrorContains(t, err, "loading program into memory")
	})

	t.Run("input error", func(t *testing.T) {
		lua, err := input.NewLuaFromString(log.NewTestLogger(t), "test.lua",
			"function on_frame(frame) error('broken') end")
		assert.NoError(t, err)
		defer func() { _ = lua.Close() }()

		_, err = p.ExecuteWithProgram(context.Background(), []byte{0x12, 0x00}, testOptions(), lua, nil)
		assert.Error(t, err)
		assert.ErrorContains(t, err, "applying input for frame 0")
	})
	t.Run("input error in the same frame as a stop", func(t *testing.T) {
		stop, err := input.NewLuaFromString(log.NewTestLogger(t), "stop.lua",
			"function on_frame(frame) stop() end")
		assert.NoError(t, err)
		broken, err := input.NewLuaFromString(log.NewTestLogger(t), "broken.lua",
			"function on_frame(frame) error('broken') end")
		assert.NoError(t, err)
		source := input.Multi{stop, broken}
		defer func() { _ = source.Close() }()

		result, err := p.ExecuteWithProgram(context.Background(), []byte{0x12, 0x00}, testOptions(), source, nil)
		assert.Error(t, err)
		assert.ErrorContains(t, err, "applying input for frame 0")
		assert.ErrorContains(t, err, "broken")
		assert.NotEqual(t, StopInput, result.StopReason)
	})
}

func TestExecuteWithProgramStop(t *testing.T) {
	p := New(log.NewTestLogger(t))
	loop := []byte{0x70, 0x01, 0x12, 0x00}

	t.Run("lua stop", func(t *testing.T) {
		lua, err := input.NewLuaFromString(log.NewTestLogger(t), "test.lua",
			"function on_frame(frame) if frame == 1 then stop() end end")
		assert.NoError(t, err)
		defer func() { _ = lua.Close() }()

		result, err := p.ExecuteWithProgram(context.Background(), loop, testOptions(), lua, nil)
		assert.NoError(t, err)
		assert.Equal(t, StopInput, result.StopReason)
		assert.Equal(t, uint64(2), result.Frames)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := p.ExecuteWithProgram(ctx, loop, testOptions(), nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, StopCanceled, result.StopReason)
		assert.Equal(t, uint64(0), result.Frames)
	})

	t.Run("throttled", func(t *testing.T) {
		opts := testOptions()
		opts.Throttle = true
		opts.MaxFrames = 3

		result, err := p.ExecuteWithProgram(context.Background(), loop, opts, nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, StopFrameLimit, result.StopReason)
		assert.Equal(t, uint64(3), result.Frames)
	})
}

func TestExecuteWithProgramRender(t *testing.T) {
	p := New(log.NewTestLogger(t))
	// CLS; DRW V0, V0, 5; JP $204
	program := []byte{0x00, 0xE0, 0xD0, 0x05, 0x12, 0x04}

	t.Run("render changed frames", func(t *testing.T) {
		opts := testOptions()
		opts.Render = true
		renderer := &recordingRenderer{}

		result, err := p.ExecuteWithProgram(context.Background(), program, opts, nil, renderer)
		assert.NoError(t, err)
		assert.Len(t, renderer.frames, 1)
		assert.True(t, renderer.frames[0].Pixel(0, 0))
		assert.Equal(t, result.Frame, renderer.frames[0])
	})

	t.Run("render disabled", func(t *testing.T) {
		renderer := &recordingRenderer{}

		result, err := p.ExecuteWithProgram(context.Background(), program, testOptions(), nil, renderer)
		assert.NoError(t, err)
		assert.Empty(t, renderer.frames)
		assert.True(t, result.Frame.Pixel(3, 4))
	})
}

func TestExecute(t *testing.T) {
	p := New(log.NewTestLogger(t))
	tmpFile := createTempFile(t, "test.ch8", []byte{0x60, 0x05, 0x12, 0x02})

	t.Run("execute program file", func(t *testing.T) {
		opts := options.Program{
			Parameters: options.Parameters{Input: tmpFile},
		}

		result, err := p.Execute(context.Background(), opts, testOptions(), nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, StopHalted, result.StopReason)
		assert.Equal(t, byte(5), result.State.V[0])
	})

	t.Run("unsupported system", func(t *testing.T) {
		opts := options.Program{
			Parameters: options.Parameters{Input: tmpFile},
			Flags:      options.Flags{System: "nes"},
		}

		_, err := p.Execute(context.Background(), opts, testOptions(), nil, nil)
		assert.Error(t, err)
		assert.ErrorContains(t, err, "validating system")
	})

	t.Run("missing file", func(t *testing.T) {
		opts := options.Program{
			Parameters: options.Parameters{Input: filepath.Join(t.TempDir(), "missing.ch8")},
		}

		_, err := p.Execute(context.Background(), opts, testOptions(), nil, nil)
		assert.Error(t, err)
		assert.ErrorContains(t, err, "loading program")
	})
}

func createTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return tmpFile
}
