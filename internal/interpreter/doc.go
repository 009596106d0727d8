// Package interpreter implements the CHIP-8 virtual machine.
//
// # Machine Model
//
// The machine owns all of its state in fixed size arrays:
//   - 4KB of memory (0x000-0xFFF), the font table lives at 0x000-0x04F
//   - 16 general-purpose 8-bit registers (V0-VF), VF doubles as flag output
//   - a 16-bit index register I and a 16-bit program counter
//   - a 16 entry call stack of return addresses
//   - delay and sound timers, decremented by an external 60 Hz clock
//   - a 64x32 monochrome frame buffer and a 16 key keypad state
//
// # Execution
//
// Step runs one fetch-decode-execute cycle. Decoding is separated from execution:
// Decode turns an opcode word into an Instruction value and the executor switches
// exhaustively over its Op. A failing Step leaves the machine exactly as it was
// before the call and returns one of the error kinds defined in errors.go.
//
// The wait-for-key instruction (Fx0A) never blocks. If no key is pressed the
// program counter is left unchanged so the next Step retries it, giving the
// driver a chance to update the key state in between.
//
// # Usage Example
//
//	vm := interpreter.New()
//	if err := vm.Load(program, interpreter.ProgramStart); err != nil {
//		return fmt.Errorf("loading program: %w", err)
//	}
//	for {
//		if err := vm.Step(); err != nil {
//			return fmt.Errorf("executing: %w", err)
//		}
//	}
//
// The interpreter is not safe for concurrent use; a single driver goroutine
// must serialize all calls.
package interpreter
