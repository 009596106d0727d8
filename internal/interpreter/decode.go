package interpreter

// Op identifies a decoded CHIP-8 instruction.
type Op uint8

// All instructions of the CHIP-8 instruction set.
const (
	OpInvalid Op = iota
	OpCls          // 00E0
	OpRet          // 00EE
	OpSys          // 0nnn
	OpJp           // 1nnn
	OpCall         // 2nnn
	OpSeImm        // 3xkk
	OpSneImm       // 4xkk
	OpSeReg        // 5xy0
	OpLdImm        // 6xkk
	OpAddImm       // 7xkk
	OpLdReg        // 8xy0
	OpOr           // 8xy1
	OpAnd          // 8xy2
	OpXor          // 8xy3
	OpAddReg       // 8xy4
	OpSub          // 8xy5
	OpShr          // 8xy6
	OpSubn         // 8xy7
	OpShl          // 8xyE
	OpSneReg       // 9xy0
	OpLdI          // Annn
	OpJpV0         // Bnnn
	OpRnd          // Cxkk
	OpDrw          // Dxyn
	OpSkp          // Ex9E
	OpSknp         // ExA1
	OpLdVxDT       // Fx07
	OpLdVxK        // Fx0A
	OpLdDTVx       // Fx15
	OpLdSTVx       // Fx18
	OpAddI         // Fx1E
	OpLdF          // Fx29
	OpLdB          // Fx33
	OpStore        // Fx55
	OpLoad         // Fx65
)

var opNames = [...]string{
	OpInvalid: "invalid",
	OpCls:     "CLS",
	OpRet:     "RET",
	OpSys:     "SYS",
	OpJp:      "JP",
	OpCall:    "CALL",
	OpSeImm:   "SE",
	OpSneImm:  "SNE",
	OpSeReg:   "SE",
	OpLdImm:   "LD",
	OpAddImm:  "ADD",
	OpLdReg:   "LD",
	OpOr:      "OR",
	OpAnd:     "AND",
	OpXor:     "XOR",
	OpAddReg:  "ADD",
	OpSub:     "SUB",
	OpShr:     "SHR",
	OpSubn:    "SUBN",
	OpShl:     "SHL",
	OpSneReg:  "SNE",
	OpLdI:     "LD",
	OpJpV0:    "JP",
	OpRnd:     "RND",
	OpDrw:     "DRW",
	OpSkp:     "SKP",
	OpSknp:    "SKNP",
	OpLdVxDT:  "LD",
	OpLdVxK:   "LD",
	OpLdDTVx:  "LD",
	OpLdSTVx:  "LD",
	OpAddI:    "ADD",
	OpLdF:     "LD",
	OpLdB:     "LD",
	OpStore:   "LD",
	OpLoad:    "LD",
}

// String returns the assembler mnemonic of the instruction.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return opNames[OpInvalid]
}

// Instruction is a decoded opcode word with its operand fields extracted.
type Instruction struct {
	Op     Op
	Opcode uint16

	X   byte   // second nibble, register index
	Y   byte   // third nibble, register index
	N   byte   // fourth nibble, 4-bit literal
	KK  byte   // low byte, 8-bit literal
	NNN uint16 // low 12 bits, address or 12-bit literal
}

// Decode splits an opcode word into its nibbles and identifies the instruction.
// The returned bool is false if the word does not encode a known instruction,
// in which case the Op is OpInvalid.
func Decode(opcode uint16) (Instruction, bool) {
	ins := Instruction{
		Opcode: opcode,
		X:      byte(opcode>>8) & 0xF,
		Y:      byte(opcode>>4) & 0xF,
		N:      byte(opcode) & 0xF,
		KK:     byte(opcode),
		NNN:    opcode & 0x0FFF,
	}
	ins.Op = decodeOp(opcode, ins.N, ins.KK)
	return ins, ins.Op != OpInvalid
}

func decodeOp(opcode uint16, n, kk byte) Op {
	switch opcode >> 12 {
	case 0x0:
		switch opcode {
		case 0x00E0:
			return OpCls
		case 0x00EE:
			return OpRet
		}
		return OpSys
	case 0x1:
		return OpJp
	case 0x2:
		return OpCall
	case 0x3:
		return OpSeImm
	case 0x4:
		return OpSneImm
	case 0x5:
		if n == 0 {
			return OpSeReg
		}
	case 0x6:
		return OpLdImm
	case 0x7:
		return OpAddImm
	case 0x8:
		return decodeALU(n)
	case 0x9:
		if n == 0 {
			return OpSneReg
		}
	case 0xA:
		return OpLdI
	case 0xB:
		return OpJpV0
	case 0xC:
		return OpRnd
	case 0xD:
		return OpDrw
	case 0xE:
		switch kk {
		case 0x9E:
			return OpSkp
		case 0xA1:
			return OpSknp
		}
	case 0xF:
		return decodeMisc(kk)
	}
	return OpInvalid
}

// decodeALU decodes the 8xyN register arithmetic group.
func decodeALU(n byte) Op {
	switch n {
	case 0x0:
		return OpLdReg
	case 0x1:
		return OpOr
	case 0x2:
		return OpAnd
	case 0x3:
		return OpXor
	case 0x4:
		return OpAddReg
	case 0x5:
		return OpSub
	case 0x6:
		return OpShr
	case 0x7:
		return OpSubn
	case 0xE:
		return OpShl
	}
	return OpInvalid
}

// decodeMisc decodes the FxKK timer, keypad and memory group.
func decodeMisc(kk byte) Op {
	switch kk {
	case 0x07:
		return OpLdVxDT
	case 0x0A:
		return OpLdVxK
	case 0x15:
		return OpLdDTVx
	case 0x18:
		return OpLdSTVx
	case 0x1E:
		return OpAddI
	case 0x29:
		return OpLdF
	case 0x33:
		return OpLdB
	case 0x55:
		return OpStore
	case 0x65:
		return OpLoad
	}
	return OpInvalid
}
