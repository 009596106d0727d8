package interpreter

import (
	"errors"
	"fmt"
)

// Error kinds returned by the interpreter. Typed errors unwrap to one of these
// so callers can use errors.Is to select a policy.
var (
	ErrOutOfBounds    = errors.New("address out of bounds")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrUnknownOpcode  = errors.New("unknown opcode")
)

// UnknownOpcodeError is returned when an opcode word does not decode to any instruction.
type UnknownOpcodeError struct {
	Opcode uint16
	PC     uint16
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode $%04X at $%03X", e.Opcode, e.PC)
}

func (e *UnknownOpcodeError) Unwrap() error {
	return ErrUnknownOpcode
}

// BoundsError is returned when an access of Size bytes starting at Address would
// leave the memory, or a key index exceeds the keypad.
type BoundsError struct {
	Address int
	Size    int
	Limit   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("access of %d bytes at $%04X exceeds limit $%04X", e.Size, e.Address, e.Limit)
}

func (e *BoundsError) Unwrap() error {
	return ErrOutOfBounds
}

// StackError is returned by call and return instructions that would leave the stack.
type StackError struct {
	Err          error // ErrStackOverflow or ErrStackUnderflow
	PC           uint16
	StackPointer int
}

func (e *StackError) Error() string {
	return fmt.Sprintf("%s at $%03X (stack pointer %d)", e.Err, e.PC, e.StackPointer)
}

func (e *StackError) Unwrap() error {
	return e.Err
}

// checkMemory validates that size bytes starting at address are inside the memory.
func checkMemory(address, size int) error {
	if address < 0 || size < 0 || address+size > MemorySize {
		return &BoundsError{Address: address, Size: size, Limit: MemorySize}
	}
	return nil
}
