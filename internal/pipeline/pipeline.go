// Package pipeline orchestrates the emulation workflow: program loading,
// the frame loop, input, rendering and the error policy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/retroenv/chip8vm/internal/arch/chip8"
	"github.com/retroenv/chip8vm/internal/detector"
	"github.com/retroenv/chip8vm/internal/display"
	"github.com/retroenv/chip8vm/internal/input"
	"github.com/retroenv/chip8vm/internal/interpreter"
	"github.com/retroenv/chip8vm/internal/loader"
	"github.com/retroenv/chip8vm/internal/options"
	"github.com/retroenv/retrogolib/log"
)

// FrameRate is the number of frames per second, timers are decremented
// once per frame.
const FrameRate = 60

// StopReason describes why the emulation ended.
type StopReason string

// Reasons for the emulation to end without an error.
const (
	StopFrameLimit StopReason = "frame limit reached"
	StopHalted     StopReason = "program halted"
	StopInput      StopReason = "stopped by input"
	StopCanceled   StopReason = "canceled"
)

// Renderer presents frames.
type Renderer interface {
	Render(frame display.Frame) error
}

// Result describes the machine after the emulation ended.
type Result struct {
	Frames     uint64 // number of completed frames
	Cycles     uint64 // number of executed instructions
	Frame      display.Frame
	State      interpreter.State
	StopReason StopReason
}

// Pipeline orchestrates the complete emulation workflow.
type Pipeline struct {
	logger   *log.Logger
	detector *detector.Detector
	loader   *loader.Loader
}

// New creates a new emulation pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger:   logger,
		detector: detector.New(logger),
		loader:   loader.New(logger),
	}
}

// Execute loads the program file and runs it.
// The input source and renderer are optional.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, emuOpts options.Emulator,
	source input.Source, renderer Renderer) (*Result, error) {

	data, err := p.Load(opts)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Running CHIP-8 program",
		log.String("file", opts.Input),
		log.Int("size", len(data)),
		log.Int("cycles_per_frame", emuOpts.CyclesPerFrame))

	return p.ExecuteWithProgram(ctx, data, emuOpts, source, renderer)
}

// Load detects the system of the program file and loads it.
func (p *Pipeline) Load(opts options.Program) ([]byte, error) {
	system := p.detector.Detect(opts)
	if err := detector.Validate(system); err != nil {
		return nil, fmt.Errorf("validating system: %w", err)
	}

	data, err := p.loader.Load(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("loading program: %w", err)
	}
	return data, nil
}

// ExecuteWithProgram runs an already loaded program image.
// If an instruction fails and the error policy does not allow to continue,
// the returned result describes the machine at the failing instruction
// together with the error.
func (p *Pipeline) ExecuteWithProgram(ctx context.Context, program []byte, emuOpts options.Emulator,
	source input.Source, renderer Renderer) (*Result, error) {

	vm := interpreter.New(interpreter.WithEntryPoint(emuOpts.EntryPoint))
	if err := vm.Load(program, emuOpts.EntryPoint); err != nil {
		return nil, fmt.Errorf("loading program into memory: %w", err)
	}

	r := &runner{
		logger:   p.logger,
		opts:     emuOpts,
		vm:       vm,
		source:   source,
		renderer: renderer,
	}
	result, err := r.run(ctx)

	result.Frame = display.Frame(vm.FrameBuffer())
	result.State = vm.Snapshot()
	if err != nil {
		return result, err
	}

	p.logger.Debug("Emulation ended",
		log.String("reason", string(result.StopReason)),
		log.Uint64("frames", result.Frames),
		log.Uint64("cycles", result.Cycles))
	return result, nil
}

// runner holds the state of a single emulation run.
type runner struct {
	logger   *log.Logger
	opts     options.Emulator
	vm       *interpreter.Interpreter
	source   input.Source
	renderer Renderer

	soundActive bool
}

func (r *runner) run(ctx context.Context) (*Result, error) {
	result := &Result{}

	var ticker *time.Ticker
	if r.opts.Throttle {
		ticker = time.NewTicker(time.Second / FrameRate)
		defer ticker.Stop()
	}

	for frame := uint64(0); r.opts.MaxFrames == 0 || frame < r.opts.MaxFrames; frame++ {
		if ctx.Err() != nil {
			result.StopReason = StopCanceled
			return result, nil
		}

		stopRequested, err := r.applyInput(frame)
		if err != nil {
			return result, err
		}

		halted, err := r.runCycles(result)
		if err != nil {
			return result, fmt.Errorf("frame %d: %w", frame, err)
		}

		r.checkSound(frame)
		r.vm.TickTimers()
		if err := r.render(); err != nil {
			return result, err
		}
		result.Frames++

		switch {
		case halted:
			result.StopReason = StopHalted
			return result, nil
		case stopRequested:
			result.StopReason = StopInput
			return result, nil
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
	}

	result.StopReason = StopFrameLimit
	return result, nil
}

// applyInput sets the keys for the frame. It returns whether an input
// source requested the emulation to stop after this frame.
func (r *runner) applyInput(frame uint64) (bool, error) {
	r.vm.ReleaseKeys()
	if r.source == nil {
		return false, nil
	}

	err := r.source.Apply(frame, r.vm)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, input.ErrStop):
		return true, nil
	default:
		return false, fmt.Errorf("applying input for frame %d: %w", frame, err)
	}
}

// runCycles executes the instructions of one frame. It returns whether the
// program halted by jumping to itself with no timer running.
func (r *runner) runCycles(result *Result) (bool, error) {
	for range r.opts.CyclesPerFrame {
		pc := r.vm.ProgramCounter()
		opcode, err := r.vm.Fetch()
		if err == nil {
			if r.isHalted(pc, opcode) {
				return true, nil
			}
			if r.opts.Trace {
				r.trace(pc, opcode)
			}
		}

		if err := r.step(pc); err != nil {
			return false, err
		}
		result.Cycles++
	}
	return false, nil
}

// trace logs the instruction that is about to be executed. The index
// register is included for instructions that access memory.
func (r *runner) trace(pc, opcode uint16) {
	op, ok := chip8.Lookup(opcode)
	if ok && (op.ReadsMemory() || op.WritesMemory()) {
		r.logger.Debug("Step",
			log.Hex("pc", pc),
			log.Hex("opcode", opcode),
			log.String("instruction", chip8.Format(opcode)),
			log.Hex("i", r.vm.IndexRegister()))
		return
	}

	r.logger.Debug("Step",
		log.Hex("pc", pc),
		log.Hex("opcode", opcode),
		log.String("instruction", chip8.Format(opcode)))
}

// step executes one instruction and applies the error policy.
func (r *runner) step(pc uint16) error {
	err := r.vm.Step()
	if err == nil {
		return nil
	}

	var opcodeErr *interpreter.UnknownOpcodeError
	if r.opts.ErrorPolicy == options.ErrorPolicySkip && errors.As(err, &opcodeErr) {
		r.logger.Warn("Skipping unknown opcode",
			log.Hex("opcode", opcodeErr.Opcode),
			log.Hex("pc", opcodeErr.PC))
		r.vm.SetProgramCounter(pc + interpreter.OpcodeSize)
		return nil
	}

	return fmt.Errorf("executing instruction at $%03X: %w", pc, err)
}

// isHalted returns whether the instruction is a jump to itself while no
// timer is running, a common way for programs to end.
func (r *runner) isHalted(pc, opcode uint16) bool {
	ins, ok := interpreter.Decode(opcode)
	if !ok || ins.Op != interpreter.OpJp || ins.NNN != pc {
		return false
	}
	return r.vm.DelayTimer() == 0 && r.vm.SoundTimer() == 0
}

func (r *runner) checkSound(frame uint64) {
	active := r.vm.SoundActive()
	if active == r.soundActive {
		return
	}
	r.soundActive = active

	if active {
		r.logger.Debug("Sound on", log.Uint64("frame", frame), log.Uint8("timer", r.vm.SoundTimer()))
	} else {
		r.logger.Debug("Sound off", log.Uint64("frame", frame))
	}
}

func (r *runner) render() error {
	if !r.opts.Render || r.renderer == nil || !r.vm.FrameChanged() {
		return nil
	}
	if err := r.renderer.Render(display.Frame(r.vm.FrameBuffer())); err != nil {
		return fmt.Errorf("rendering frame: %w", err)
	}
	return nil
}
