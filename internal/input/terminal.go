package input

import (
	"fmt"
	"io"
	"os"

	"github.com/retroenv/retrogolib/log"
	"golang.org/x/term"
)

const (
	keyBufferSize = 64
	keyCtrlC      = 0x03
)

// keyLayout maps the left side of a QWERTY keyboard to the COSMAC VIP
// hex keypad:
//
//	1 2 3 4      1 2 3 C
//	q w e r  ->  4 5 6 D
//	a s d f      7 8 9 E
//	z x c v      A 0 B F
var keyLayout = map[byte]int{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// Terminal reads key presses from a terminal. Terminals do not report key
// releases, so a typed key is held for a fixed number of frames.
// Ctrl-C requests the emulation to stop.
type Terminal struct {
	logger     *log.Logger
	holdFrames uint64
	events     chan byte

	heldUntil   [16]uint64 // first frame in which the key is released again
	interrupted bool

	fd       int
	oldState *term.State
}

// NewTerminal puts the terminal of the given file into raw mode and starts
// reading key presses from it. Close restores the terminal state.
func NewTerminal(logger *log.Logger, in *os.File, holdFrames int) (*Terminal, error) {
	fd := int(in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting terminal raw mode: %w", err)
	}

	t := newTerminal(logger, in, holdFrames)
	t.fd = fd
	t.oldState = oldState
	return t, nil
}

func newTerminal(logger *log.Logger, r io.Reader, holdFrames int) *Terminal {
	t := &Terminal{
		logger:     logger,
		holdFrames: uint64(max(holdFrames, 1)),
		events:     make(chan byte, keyBufferSize),
	}
	go t.read(r)
	return t
}

// read forwards all read bytes to the events channel until the reader fails.
// A blocked read on stdin can not be interrupted, so Close does not stop
// this goroutine. It ends with a read error or with the process.
func (t *Terminal) read(r io.Reader) {
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			select {
			case t.events <- b:
			default: // drop keys that the emulation does not consume in time
			}
		}
		if err != nil {
			return
		}
	}
}

// Apply consumes all key presses typed since the last frame and presses all
// keys that are still held.
func (t *Terminal) Apply(frame uint64, machine Machine) error {
	for drained := false; !drained; {
		select {
		case b := <-t.events:
			t.handleByte(frame, b)
		default:
			drained = true
		}
	}
	if t.interrupted {
		return ErrStop
	}

	var keys [16]bool
	for key, until := range t.heldUntil {
		keys[key] = frame < until
	}
	return pressKeys(machine, &keys)
}

func (t *Terminal) handleByte(frame uint64, b byte) {
	if b == keyCtrlC {
		t.interrupted = true
		return
	}
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	key, ok := keyLayout[b]
	if !ok {
		return
	}
	t.heldUntil[key] = frame + t.holdFrames
	t.logger.Debug("Key typed", log.Hex("key", key), log.Uint64("frame", frame))
}

// Close restores the terminal state. The reader goroutine keeps running
// until its next read fails. Bytes it reads after Close are dropped once
// the event buffer is full.
func (t *Terminal) Close() error {
	if t.oldState == nil {
		return nil
	}
	err := term.Restore(t.fd, t.oldState)
	t.oldState = nil
	if err != nil {
		return fmt.Errorf("restoring terminal state: %w", err)
	}
	return nil
}
