package interpreter

// Step fetches, decodes and executes a single instruction.
// On error the machine state is left as it was before the call.
func (i *Interpreter) Step() error {
	opcode, err := i.Fetch()
	if err != nil {
		return err
	}

	ins, ok := Decode(opcode)
	if !ok {
		return &UnknownOpcodeError{Opcode: opcode, PC: i.state.PC}
	}
	return i.execute(ins)
}

// Fetch returns the big-endian opcode word at the program counter without executing it.
func (i *Interpreter) Fetch() (uint16, error) {
	pc := int(i.state.PC)
	if err := checkMemory(pc, OpcodeSize); err != nil {
		return 0, err
	}
	return uint16(i.state.Memory[pc])<<8 | uint16(i.state.Memory[pc+1]), nil
}

// execute runs a decoded instruction. All checks that can fail happen before
// the first write to the machine state.
func (i *Interpreter) execute(ins Instruction) error {
	s := &i.state
	next := s.PC + OpcodeSize
	vx, vy := s.V[ins.X], s.V[ins.Y]

	switch ins.Op {
	case OpCls:
		s.Frame = [FrameSize]byte{}
		i.frameChanged = true

	case OpRet:
		if s.SP == 0 {
			return &StackError{Err: ErrStackUnderflow, PC: s.PC, StackPointer: s.SP}
		}
		s.SP--
		next = s.Stack[s.SP]

	case OpSys:
		// native COSMAC VIP machine code routines are not supported

	case OpJp:
		next = ins.NNN

	case OpCall:
		if s.SP == StackSize {
			return &StackError{Err: ErrStackOverflow, PC: s.PC, StackPointer: s.SP}
		}
		s.Stack[s.SP] = next
		s.SP++
		next = ins.NNN

	case OpSeImm:
		next = i.skipIf(vx == ins.KK)

	case OpSneImm:
		next = i.skipIf(vx != ins.KK)

	case OpSeReg:
		next = i.skipIf(vx == vy)

	case OpSneReg:
		next = i.skipIf(vx != vy)

	case OpLdImm:
		s.V[ins.X] = ins.KK

	case OpAddImm:
		s.V[ins.X] = vx + ins.KK

	case OpLdReg:
		s.V[ins.X] = vy

	case OpOr:
		s.V[ins.X] = vx | vy

	case OpAnd:
		s.V[ins.X] = vx & vy

	case OpXor:
		s.V[ins.X] = vx ^ vy

	case OpAddReg:
		sum := uint16(vx) + uint16(vy)
		s.V[ins.X] = byte(sum)
		s.V[FlagRegister] = flag(sum > 0xFF)

	case OpSub:
		s.V[ins.X] = vx - vy
		s.V[FlagRegister] = flag(vx >= vy)

	case OpShr:
		s.V[ins.X] = vx >> 1
		s.V[FlagRegister] = vx & 1

	case OpSubn:
		s.V[ins.X] = vy - vx
		s.V[FlagRegister] = flag(vy >= vx)

	case OpShl:
		s.V[ins.X] = vx << 1
		s.V[FlagRegister] = vx >> 7

	case OpLdI:
		s.I = ins.NNN

	case OpJpV0:
		next = ins.NNN + uint16(s.V[0])

	case OpRnd:
		s.V[ins.X] = i.random() & ins.KK

	case OpDrw:
		if err := i.draw(vx, vy, ins.N); err != nil {
			return err
		}

	case OpSkp, OpSknp:
		if int(vx) >= KeyCount {
			return &BoundsError{Address: int(vx), Size: 1, Limit: KeyCount}
		}
		pressed := s.Keys[vx]
		next = i.skipIf(pressed == (ins.Op == OpSkp))

	case OpLdVxDT:
		s.V[ins.X] = s.DelayTimer

	case OpLdVxK:
		key, ok := i.pressedKey()
		if !ok {
			// retry on the next step, giving the driver a chance to update the keys
			return nil
		}
		s.V[ins.X] = key

	case OpLdDTVx:
		s.DelayTimer = vx

	case OpLdSTVx:
		s.SoundTimer = vx

	case OpAddI:
		s.I += uint16(vx)

	case OpLdF:
		s.I = FontAddress + uint16(vx)*GlyphSize

	case OpLdB:
		if err := checkMemory(int(s.I), 3); err != nil {
			return err
		}
		s.Memory[s.I] = vx / 100
		s.Memory[s.I+1] = vx / 10 % 10
		s.Memory[s.I+2] = vx % 10

	case OpStore:
		count := int(ins.X) + 1
		if err := checkMemory(int(s.I), count); err != nil {
			return err
		}
		copy(s.Memory[s.I:], s.V[:count])

	case OpLoad:
		count := int(ins.X) + 1
		if err := checkMemory(int(s.I), count); err != nil {
			return err
		}
		copy(s.V[:count], s.Memory[s.I:])

	default:
		return &UnknownOpcodeError{Opcode: ins.Opcode, PC: s.PC}
	}

	s.PC = next
	return nil
}

// draw XORs an n byte sprite from memory at I onto the frame buffer at x, y.
// Coordinates wrap around the screen edges. VF is set if any set pixel was cleared.
func (i *Interpreter) draw(x, y, n byte) error {
	s := &i.state
	if err := checkMemory(int(s.I), int(n)); err != nil {
		return err
	}

	var collision byte
	for row := range int(n) {
		sprite := s.Memory[int(s.I)+row]
		for col := range 8 {
			if sprite&(0x80>>col) == 0 {
				continue
			}
			index := pixelIndex(int(x)+col, int(y)+row)
			if s.Frame[index] == 1 {
				collision = 1
			}
			s.Frame[index] ^= 1
		}
	}

	s.V[FlagRegister] = collision
	i.frameChanged = true
	return nil
}

// skipIf returns the address of the next instruction, skipping one instruction
// if the condition is true.
func (i *Interpreter) skipIf(condition bool) uint16 {
	if condition {
		return i.state.PC + 2*OpcodeSize
	}
	return i.state.PC + OpcodeSize
}

// pressedKey returns the lowest index of a currently pressed key.
func (i *Interpreter) pressedKey() (byte, bool) {
	for key, pressed := range i.state.Keys {
		if pressed {
			return byte(key), true
		}
	}
	return 0, false
}

func flag(condition bool) byte {
	if condition {
		return 1
	}
	return 0
}
