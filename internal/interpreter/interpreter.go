package interpreter

import (
	"math/rand/v2"
)

// CHIP-8 machine layout constants.
//
// CHIP-8 memory map (4KB total):
//
//	0x000-0x04F: Font glyphs for the hex digits 0-F (80 bytes)
//	0x050-0x1FF: Reserved interpreter area
//	0x200-0xFFF: User program space (3584 bytes)
const (
	MemorySize    = 4096
	RegisterCount = 16
	StackSize     = 16
	KeyCount      = 16

	ScreenWidth  = 64
	ScreenHeight = 32
	FrameSize    = ScreenWidth * ScreenHeight

	// ProgramStart is the conventional load and entry address of CHIP-8 programs.
	ProgramStart = 0x200
	// MaxProgramSize is the number of bytes available for a program loaded at ProgramStart.
	MaxProgramSize = MemorySize - ProgramStart

	// OpcodeSize is the size of every CHIP-8 instruction in bytes.
	OpcodeSize = 2

	// FlagRegister is the index of VF, the carry, borrow and collision output.
	FlagRegister = 0xF
)

// State is the complete machine state. It is a plain value so that a copy is a
// consistent snapshot.
type State struct {
	Memory [MemorySize]byte
	V      [RegisterCount]byte // general purpose registers V0-VF
	I      uint16              // index register
	PC     uint16              // program counter

	Stack [StackSize]uint16
	SP    int // number of used stack entries, 0-16

	DelayTimer byte
	SoundTimer byte

	Frame [FrameSize]byte // row-major, index = x + y*ScreenWidth, cells are 0 or 1
	Keys  [KeyCount]bool
}

// Interpreter is a CHIP-8 virtual machine.
type Interpreter struct {
	state State

	entryPoint uint16
	random     func() byte

	frameChanged bool
}

// Option configures an interpreter on creation.
type Option func(*Interpreter)

// WithEntryPoint sets the program counter value that Reset uses.
func WithEntryPoint(address uint16) Option {
	return func(i *Interpreter) {
		i.entryPoint = address
	}
}

// WithRandom sets the random byte source used by the RND instruction.
func WithRandom(random func() byte) Option {
	return func(i *Interpreter) {
		i.random = random
	}
}

// New returns a new interpreter in its reset state.
func New(options ...Option) *Interpreter {
	i := &Interpreter{
		entryPoint: ProgramStart,
		random: func() byte {
			return byte(rand.IntN(256))
		},
	}
	for _, option := range options {
		option(i)
	}
	i.Reset()
	return i
}

// Reset reinitializes every part of the machine state. Memory is cleared
// except for the font table and the program counter is set to the entry point.
func (i *Interpreter) Reset() {
	i.state = State{}
	copy(i.state.Memory[FontAddress:], font[:])
	i.state.PC = i.entryPoint
	i.frameChanged = true
}

// Load copies data into memory starting at offset. The rest of the machine
// state, including the program counter, is not altered.
func (i *Interpreter) Load(data []byte, offset uint16) error {
	if err := checkMemory(int(offset), len(data)); err != nil {
		return err
	}
	copy(i.state.Memory[offset:], data)
	return nil
}

// TickTimers decrements the delay and sound timers if they are not zero.
// It has to be called by the driver at 60 Hz, independent of the instruction rate.
func (i *Interpreter) TickTimers() {
	if i.state.DelayTimer > 0 {
		i.state.DelayTimer--
	}
	if i.state.SoundTimer > 0 {
		i.state.SoundTimer--
	}
}

// SetKey sets the pressed state of the key with the given index 0x0-0xF.
func (i *Interpreter) SetKey(key int, pressed bool) error {
	if key < 0 || key >= KeyCount {
		return &BoundsError{Address: key, Size: 1, Limit: KeyCount}
	}
	i.state.Keys[key] = pressed
	return nil
}

// ReleaseKeys marks all keys as not pressed.
func (i *Interpreter) ReleaseKeys() {
	i.state.Keys = [KeyCount]bool{}
}

// Keys returns the current key state.
func (i *Interpreter) Keys() [KeyCount]bool {
	return i.state.Keys
}

// ProgramCounter returns the address of the next instruction.
func (i *Interpreter) ProgramCounter() uint16 {
	return i.state.PC
}

// SetProgramCounter sets the address of the next instruction.
func (i *Interpreter) SetProgramCounter(address uint16) {
	i.state.PC = address
}

// IndexRegister returns the value of the I register.
func (i *Interpreter) IndexRegister() uint16 {
	return i.state.I
}

// Register returns the value of the register Vx.
func (i *Interpreter) Register(x int) byte {
	return i.state.V[x&0xF]
}

// StackPointer returns the number of return addresses on the stack.
func (i *Interpreter) StackPointer() int {
	return i.state.SP
}

// DelayTimer returns the current delay timer value.
func (i *Interpreter) DelayTimer() byte {
	return i.state.DelayTimer
}

// SoundTimer returns the current sound timer value.
func (i *Interpreter) SoundTimer() byte {
	return i.state.SoundTimer
}

// SoundActive returns whether the tone should currently be played.
func (i *Interpreter) SoundActive() bool {
	return i.state.SoundTimer > 0
}

// ReadMemory returns the byte at the given address.
func (i *Interpreter) ReadMemory(address uint16) (byte, error) {
	if err := checkMemory(int(address), 1); err != nil {
		return 0, err
	}
	return i.state.Memory[address], nil
}

// Pixel returns whether the pixel at x, y is set. Coordinates wrap around the screen.
func (i *Interpreter) Pixel(x, y int) bool {
	return i.state.Frame[pixelIndex(x, y)] == 1
}

// FrameBuffer returns a copy of the frame buffer.
func (i *Interpreter) FrameBuffer() [FrameSize]byte {
	return i.state.Frame
}

// FrameChanged reports whether the frame buffer was written since the last
// call and clears the indicator.
func (i *Interpreter) FrameChanged() bool {
	changed := i.frameChanged
	i.frameChanged = false
	return changed
}

// Snapshot returns a copy of the complete machine state.
func (i *Interpreter) Snapshot() State {
	return i.state
}

// pixelIndex returns the frame buffer index of the wrapped coordinates.
func pixelIndex(x, y int) int {
	x %= ScreenWidth
	if x < 0 {
		x += ScreenWidth
	}
	y %= ScreenHeight
	if y < 0 {
		y += ScreenHeight
	}
	return x + y*ScreenWidth
}
