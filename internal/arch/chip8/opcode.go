package chip8

import (
	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// opcodeSize is the size of CHIP-8 instructions in bytes.
const opcodeSize = 2

// Opcode is an opcode word matched against the retrogolib instruction table.
type Opcode struct {
	op   chip8.Opcode
	word uint16
}

// Lookup identifies the instruction encoded by the opcode word.
// It returns false for words that do not encode a known instruction.
func Lookup(word uint16) (Opcode, bool) {
	firstNibble := (word & 0xF000) >> 12
	for _, op := range chip8.Opcodes[int(firstNibble)] {
		if op.Info.Mask&word == op.Info.Value {
			return Opcode{op: op, word: word}, op.Instruction != nil
		}
	}
	return Opcode{word: word}, false
}

// Name returns the instruction name or an empty string for unknown opcodes.
func (o Opcode) Name() string {
	if o.op.Instruction == nil {
		return ""
	}
	return o.op.Instruction.Name
}

// Word returns the opcode word.
func (o Opcode) Word() uint16 {
	return o.word
}

// IsCall returns true if the opcode is a subroutine call.
func (o Opcode) IsCall() bool {
	return o.op.Instruction == chip8.CallInst
}

// IsJump returns true if the opcode is a jump to a fixed address (1nnn).
func (o Opcode) IsJump() bool {
	return o.op.Instruction == chip8.JpInst && o.word&0xF000 == 0x1000
}

// IsComputedJump returns true if the opcode is a jump relative to V0 (Bnnn).
func (o Opcode) IsComputedJump() bool {
	return o.op.Instruction == chip8.JpInst && o.word&0xF000 == 0xB000
}

// IsReturn returns true if the opcode returns from a subroutine.
func (o Opcode) IsReturn() bool {
	return o.op.Instruction == chip8.RetInst
}

// IsSkip returns true if the opcode conditionally skips the next instruction.
func (o Opcode) IsSkip() bool {
	if o.op.Instruction == nil {
		return false
	}
	return chip8.SkipInstructions.Contains(o.op.Instruction.Name)
}

// IsDataReference returns true if the opcode loads an address into I (Annn).
func (o Opcode) IsDataReference() bool {
	return o.op.Instruction == chip8.LdInst && o.word&0xF000 == 0xA000
}

// ReadsMemory returns true if the instruction reads from memory at I.
func (o Opcode) ReadsMemory() bool {
	if o.op.Instruction == nil {
		return false
	}
	return chip8.MemoryReadInstructions.Contains(o.op.Instruction.Name)
}

// WritesMemory returns true if the instruction writes to memory at I.
func (o Opcode) WritesMemory() bool {
	if o.op.Instruction == nil {
		return false
	}
	return chip8.MemoryWriteInstructions.Contains(o.op.Instruction.Name)
}

// Target returns the 12-bit address operand of jumps, calls and LD I, addr.
func (o Opcode) Target() (uint16, bool) {
	if o.IsJump() || o.IsCall() || o.IsDataReference() {
		return o.word & 0x0FFF, true
	}
	return 0, false
}
