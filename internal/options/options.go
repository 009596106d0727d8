// Package options contains the program options.
package options

// Error policies that decide how the emulator reacts to a failing instruction.
const (
	ErrorPolicyHalt = "halt" // stop emulation and report the error
	ErrorPolicySkip = "skip" // treat unknown opcodes as no-op and continue
)

// Default emulation speed settings.
const (
	DefaultCyclesPerFrame = 10 // 600 instructions per second at 60 frames per second
	DefaultScale          = 8
	DefaultHoldFrames     = 6
)

// Parameters contains file path options.
type Parameters struct {
	Input      string // program file to run
	Screenshot string // BMP file to write the final frame to
	LuaScript  string // Lua input script
	Keys       string // scripted key events
	VerifyHash string // expected hash of the final frame
}

// Flags contains behavior options.
type Flags struct {
	System         string
	EntryPoint     string
	CyclesPerFrame int
	Frames         uint64 // number of frames to run, 0 runs until stopped
	Fast           bool   // do not throttle to 60 frames per second
	Interactive    bool   // read keys from the terminal
	OnError        string
	Disasm         bool // output a listing instead of running the program
	Trace          bool // log every executed instruction
	Debug          bool
	Quiet          bool
}

// OutputFlags contains output formatting options.
type OutputFlags struct {
	Render        bool // draw frames to the terminal
	Scale         int  // pixel size of screenshots
	HoldFrames    int  // frames a key typed in the terminal stays pressed
	NoHexComments bool
	NoOffsets     bool
}

// Program options of the emulator.
type Program struct {
	Parameters
	Flags
	OutputFlags
}

// Emulator defines options to control the emulation loop.
type Emulator struct {
	EntryPoint     uint16
	CyclesPerFrame int
	MaxFrames      uint64
	Throttle       bool // sleep to keep 60 frames per second
	ErrorPolicy    string
	Render         bool
	Trace          bool
}

// NewEmulator returns a new options instance with default options.
func NewEmulator() Emulator {
	return Emulator{
		EntryPoint:     0x200,
		CyclesPerFrame: DefaultCyclesPerFrame,
		Throttle:       true,
		ErrorPolicy:    ErrorPolicyHalt,
	}
}
