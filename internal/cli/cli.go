// Package cli handles command line interface logic
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/chip8vm/internal/options"
)

// ParseFlags parses command line flags and returns program and emulator options
func ParseFlags() (options.Program, options.Emulator, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	readOptionFlags(flags, &opts)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || (len(args) == 0 && opts.Input == "") {
		return opts, options.Emulator{}, &UsageError{flags: flags}
	}

	if err := validateArgs(flags, args); err != nil {
		return opts, options.Emulator{}, err
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, options.Emulator{}, err
	}

	if opts.Input == "" {
		opts.Input = args[0]
	}

	emulatorOptions, err := createEmulatorOptions(opts)
	if err != nil {
		return opts, options.Emulator{}, err
	}
	return opts, emulatorOptions, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

// ShowUsage prints the error message, if any, followed by the flag defaults.
func (e *UsageError) ShowUsage() {
	e.writeUsage(os.Stdout)
}

func (e *UsageError) writeUsage(w io.Writer) {
	if e.msg != "" {
		_, _ = fmt.Fprintf(w, "%s\n\n", e.msg)
	}
	_, _ = fmt.Fprintf(w, "usage: chip8vm [options] <program to run>\n\n")
	if e.flags != nil {
		e.flags.SetOutput(w)
		e.flags.PrintDefaults()
	}
	_, _ = fmt.Fprintln(w)
}

// validateArgs checks if arguments are in correct order
func validateArgs(flags *flag.FlagSet, args []string) error {
	for i, arg := range args {
		if i > 0 && arg[0] == '-' {
			return &UsageError{
				flags: flags,
				msg:   fmt.Sprintf("Potential argument %s found after program file, please pass the program file as last argument", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	opts.OnError = strings.ToLower(opts.OnError)
	switch opts.OnError {
	case options.ErrorPolicyHalt, options.ErrorPolicySkip:
	default:
		return fmt.Errorf("unsupported error policy: %s. Valid options: %s, %s",
			opts.OnError, options.ErrorPolicyHalt, options.ErrorPolicySkip)
	}

	if opts.CyclesPerFrame <= 0 {
		return fmt.Errorf("invalid cycles per frame %d, must be positive", opts.CyclesPerFrame)
	}
	if opts.Scale <= 0 {
		return fmt.Errorf("invalid screenshot scale %d, must be positive", opts.Scale)
	}
	if opts.Interactive && opts.LuaScript != "" {
		return errors.New("interactive mode can not be combined with a Lua script")
	}
	return nil
}

// createEmulatorOptions creates emulator options based on program options
func createEmulatorOptions(opts options.Program) (options.Emulator, error) {
	emulatorOptions := options.NewEmulator()

	if opts.EntryPoint != "" {
		entry, err := strconv.ParseUint(opts.EntryPoint, 0, 12)
		if err != nil {
			return options.Emulator{}, fmt.Errorf("parsing entry point '%s': %w", opts.EntryPoint, err)
		}
		emulatorOptions.EntryPoint = uint16(entry)
	}

	emulatorOptions.CyclesPerFrame = opts.CyclesPerFrame
	emulatorOptions.MaxFrames = opts.Frames
	emulatorOptions.ErrorPolicy = opts.OnError
	emulatorOptions.Render = opts.Render
	emulatorOptions.Trace = opts.Trace

	// a headless run with a frame limit has nobody watching in real time
	emulatorOptions.Throttle = !opts.Fast && (opts.Render || opts.Interactive || opts.Frames == 0)
	return emulatorOptions, nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Input, "i", "", "name of the input program file")
	flags.StringVar(&opts.System, "s", "", "system of the program (chip8) - if not auto-detected from file extension")
	flags.StringVar(&opts.EntryPoint, "entry", "", "load and entry address of the program, for example 0x200")
	flags.IntVar(&opts.CyclesPerFrame, "cycles", options.DefaultCyclesPerFrame, "instructions executed per 60 Hz frame")
	flags.Uint64Var(&opts.Frames, "frames", 0, "number of frames to run, 0 runs until interrupted")
	flags.BoolVar(&opts.Fast, "fast", false, "do not limit the emulation to 60 frames per second")
	flags.StringVar(&opts.Keys, "keys", "", "scripted key presses as key@frame[+duration] list, for example 5@10+3,A@40")
	flags.StringVar(&opts.LuaScript, "lua", "", "Lua script that controls the keypad")
	flags.BoolVar(&opts.Interactive, "interactive", false, "read the keypad from the terminal (keys 1234 qwer asdf zxcv)")
	flags.StringVar(&opts.OnError, "on-error", options.ErrorPolicyHalt, "reaction to failing instructions (halt/skip)")
	flags.StringVar(&opts.Screenshot, "screenshot", "", "name of the .bmp file to write the final frame to")
	flags.StringVar(&opts.VerifyHash, "verify-hash", "", "verify that the final frame has the given hash")
	flags.BoolVar(&opts.Disasm, "disasm", false, "output a disassembly listing of the program instead of running it")
	flags.BoolVar(&opts.Trace, "trace", false, "log every executed instruction (requires -debug)")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")

	flags.BoolVar(&opts.Render, "render", false, "draw the display to the terminal")
	flags.IntVar(&opts.Scale, "scale", options.DefaultScale, "pixel size of screenshots")
	flags.IntVar(&opts.HoldFrames, "hold", options.DefaultHoldFrames, "frames that a key typed in interactive mode stays pressed")
	flags.BoolVar(&opts.NoHexComments, "nohexcomments", false, "do not output opcode bytes as hex values in listing comments")
	flags.BoolVar(&opts.NoOffsets, "nooffsets", false, "do not output addresses in listing comments")
}
