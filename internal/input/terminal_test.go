package input

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/retroenv/chip8vm/internal/interpreter"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestTerminalKeyLayout(t *testing.T) {
	tests := []struct {
		typed byte
		key   int
	}{
		{'1', 0x1}, {'2', 0x2}, {'3', 0x3}, {'4', 0xC},
		{'q', 0x4}, {'w', 0x5}, {'e', 0x6}, {'r', 0xD},
		{'a', 0x7}, {'s', 0x8}, {'d', 0x9}, {'f', 0xE},
		{'z', 0xA}, {'x', 0x0}, {'c', 0xB}, {'v', 0xF},
		{'W', 0x5},
	}

	for _, tt := range tests {
		t.Run(string(tt.typed), func(t *testing.T) {
			term := &Terminal{logger: log.NewTestLogger(t), holdFrames: 1}
			term.handleByte(0, tt.typed)

			vm := interpreter.New()
			keys := applyFrame(t, term, vm, 0)
			for key, pressed := range keys {
				assert.Equal(t, key == tt.key, pressed, "key %X", key)
			}
		})
	}
}

func TestTerminalHoldFrames(t *testing.T) {
	term := &Terminal{logger: log.NewTestLogger(t), holdFrames: 3}
	vm := interpreter.New()

	term.handleByte(10, 'x')
	term.handleByte(10, 'p') // not mapped

	for frame := uint64(10); frame < 13; frame++ {
		assert.True(t, applyFrame(t, term, vm, frame)[0x0], "frame %d", frame)
	}
	assert.False(t, applyFrame(t, term, vm, 13)[0x0])

	// typing the key again extends the hold time
	term.handleByte(14, 'x')
	term.handleByte(15, 'x')
	assert.True(t, applyFrame(t, term, vm, 17)[0x0])
	assert.False(t, applyFrame(t, term, vm, 18)[0x0])
}

func TestTerminalReader(t *testing.T) {
	r, w := io.Pipe()
	term := newTerminal(log.NewTestLogger(t), r, 100)
	defer func() { _ = w.Close() }()

	vm := interpreter.New()
	go func() {
		_, _ = w.Write([]byte("v"))
	}()

	deadline := time.Now().Add(2 * time.Second)
	var pressed bool
	for !pressed && time.Now().Before(deadline) {
		pressed = applyFrame(t, term, vm, 1)[0xF]
		if !pressed {
			time.Sleep(time.Millisecond)
		}
	}
	assert.True(t, pressed)
	assert.NoError(t, term.Close())
}

func TestTerminalInterrupt(t *testing.T) {
	term := &Terminal{logger: log.NewTestLogger(t), holdFrames: 1}
	term.handleByte(0, keyCtrlC)

	err := term.Apply(0, interpreter.New())
	assert.True(t, errors.Is(err, ErrStop))
}

func TestTerminalCloseLeavesReaderRunning(t *testing.T) {
	r, w := io.Pipe()
	term := newTerminal(log.NewTestLogger(t), r, 1)
	assert.NoError(t, term.Close())

	// the reader keeps consuming input beyond the event buffer size
	written := make(chan error, 1)
	go func() {
		_, err := w.Write(make([]byte, 2*keyBufferSize))
		written <- err
	}()

	select {
	case err := <-written:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reader stopped consuming input after Close")
	}
	assert.NoError(t, w.Close())
}
