package chip8

import (
	"fmt"
	"io"
	"strings"
)

type offsetType uint8

const (
	unknownOffset offsetType = iota
	codeOffset
	codeOperandOffset // second byte of an instruction
	dataOffset
)

// maxDataBytesPerLine limits the number of bytes output in a single .byte line.
const maxDataBytesPerLine = 8

// ListingOptions controls the comments of a listing.
type ListingOptions struct {
	HexComments    bool // output opcode bytes as hex values in comments
	OffsetComments bool // output addresses in comments
}

// Listing is a disassembly listing of a CHIP-8 program image.
type Listing struct {
	data    []byte
	base    uint16
	options ListingOptions

	offsets []offsetType
	labels  map[uint16]string

	addressesToParse []uint16
}

// NewListing returns a listing of the program image that is loaded at base
// and traces its control flow starting at base.
func NewListing(data []byte, base uint16, options ListingOptions) *Listing {
	l := &Listing{
		data:    data,
		base:    base,
		options: options,
		offsets: make([]offsetType, len(data)),
		labels:  map[uint16]string{},
	}
	l.labels[base] = "Start"
	l.trace()
	l.moveOperandLabels()
	return l
}

// IsCode returns whether the byte at the given address was identified as
// the start of an instruction.
func (l *Listing) IsCode(address uint16) bool {
	index, ok := l.index(address)
	return ok && l.offsets[index] == codeOffset
}

// Label returns the label assigned to an address.
func (l *Listing) Label(address uint16) (string, bool) {
	label, ok := l.labels[address]
	return label, ok
}

// trace follows all statically reachable paths through the program.
func (l *Listing) trace() {
	l.addressesToParse = append(l.addressesToParse, l.base)

	for len(l.addressesToParse) > 0 {
		address := l.addressesToParse[0]
		l.addressesToParse = l.addressesToParse[1:]
		l.processAddress(address)
	}
}

func (l *Listing) processAddress(address uint16) {
	index, ok := l.index(address)
	if !ok || l.offsets[index] != unknownOffset {
		return
	}

	word, ok := decodeOpcode(l.data[index:])
	if !ok {
		l.offsets[index] = dataOffset
		return
	}
	op, ok := Lookup(word)
	if !ok {
		// Consider an unknown instruction as start of data
		l.offsets[index] = dataOffset
		return
	}
	if l.offsets[index+1] != unknownOffset {
		l.offsets[index] = dataOffset
		return
	}

	l.offsets[index] = codeOffset
	l.offsets[index+1] = codeOperandOffset
	l.handleControlFlow(address, op)
}

// handleControlFlow queues the addresses that execution can continue at.
func (l *Listing) handleControlFlow(address uint16, op Opcode) {
	next := address + opcodeSize

	switch {
	case op.IsJump():
		target, _ := op.Target()
		l.addLabel(target, "label")
		l.addAddressToParse(target)

	case op.IsCall():
		target, _ := op.Target()
		l.addLabel(target, "sub")
		l.addAddressToParse(target)
		l.addAddressToParse(next)

	case op.IsSkip():
		l.addAddressToParse(next)
		l.addAddressToParse(next + opcodeSize)

	case op.IsDataReference():
		target, _ := op.Target()
		if index, ok := l.index(target); ok {
			l.addLabel(target, "data")
			if l.offsets[index] == unknownOffset {
				l.offsets[index] = dataOffset
			}
		}
		l.addAddressToParse(next)

	case op.IsReturn(), op.IsComputedJump():
		// the next address is only known at runtime

	default:
		l.addAddressToParse(next)
	}
}

// moveOperandLabels moves labels that point into the second byte of an
// instruction to the start of that instruction, as the listing can only
// output labels between instructions. References to the operand byte are
// written relative to the moved label.
func (l *Listing) moveOperandLabels() {
	for address, label := range l.labels {
		index, ok := l.index(address)
		if !ok || l.offsets[index] != codeOperandOffset {
			continue
		}
		delete(l.labels, address)
		prefix, _, _ := strings.Cut(label, "_")
		l.addLabel(address-1, prefix)
	}
}

func (l *Listing) addAddressToParse(address uint16) {
	if _, ok := l.index(address); ok {
		l.addressesToParse = append(l.addressesToParse, address)
	}
}

func (l *Listing) addLabel(address uint16, prefix string) {
	if _, ok := l.labels[address]; ok {
		return
	}
	l.labels[address] = fmt.Sprintf("%s_%03X", prefix, address)
}

// index converts an address to an index into the program image.
func (l *Listing) index(address uint16) (int, bool) {
	if address < l.base {
		return 0, false
	}
	index := int(address - l.base)
	return index, index < len(l.data)
}

// Write outputs the listing.
func (l *Listing) Write(w io.Writer) error {
	var data []byte
	var dataAddress uint16

	flushData := func() error {
		if len(data) == 0 {
			return nil
		}
		err := l.writeData(w, dataAddress, data)
		data = data[:0]
		return err
	}

	for index := 0; index < len(l.data); index++ {
		address := l.base + uint16(index)
		label, hasLabel := l.labels[address]
		if hasLabel || l.offsets[index] == codeOffset || len(data) == maxDataBytesPerLine {
			if err := flushData(); err != nil {
				return err
			}
		}
		if hasLabel {
			if _, err := fmt.Fprintf(w, "%s:\n", label); err != nil {
				return fmt.Errorf("writing label: %w", err)
			}
		}

		if l.offsets[index] != codeOffset {
			if len(data) == 0 {
				dataAddress = address
			}
			data = append(data, l.data[index])
			continue
		}

		word, _ := decodeOpcode(l.data[index:])
		if err := l.writeCode(w, address, word); err != nil {
			return err
		}
		index++ // skip the second opcode byte
	}
	return flushData()
}

func (l *Listing) writeCode(w io.Writer, address, word uint16) error {
	code := l.codeWithLabel(word)
	comment := l.comment(address, []byte{byte(word >> 8), byte(word)})
	if _, err := fmt.Fprintf(w, "  %s%s\n", code, comment); err != nil {
		return fmt.Errorf("writing code: %w", err)
	}
	return nil
}

// codeWithLabel formats the opcode and replaces a known target address by its label.
func (l *Listing) codeWithLabel(word uint16) string {
	code := Format(word)
	op, ok := Lookup(word)
	if !ok {
		return code
	}
	target, ok := op.Target()
	if !ok {
		return code
	}
	label, ok := l.Label(target)
	if !ok {
		index, inside := l.index(target)
		if !inside || l.offsets[index] != codeOperandOffset {
			return code
		}
		if label, ok = l.Label(target - 1); !ok {
			return code
		}
		label += "+1"
	}
	return strings.Replace(code, fmt.Sprintf("$%03X", target), label, 1)
}

func (l *Listing) writeData(w io.Writer, address uint16, data []byte) error {
	values := make([]string, len(data))
	for i, b := range data {
		values[i] = fmt.Sprintf("$%02X", b)
	}
	line := ".byte " + strings.Join(values, ", ")
	comment := l.comment(address, nil)
	if _, err := fmt.Fprintf(w, "  %s%s\n", line, comment); err != nil {
		return fmt.Errorf("writing data: %w", err)
	}
	return nil
}

func (l *Listing) comment(address uint16, opcodeBytes []byte) string {
	var parts []string
	if l.options.OffsetComments {
		parts = append(parts, fmt.Sprintf("$%03X", address))
	}
	if l.options.HexComments && len(opcodeBytes) > 0 {
		hex := make([]string, len(opcodeBytes))
		for i, b := range opcodeBytes {
			hex[i] = fmt.Sprintf("%02X", b)
		}
		parts = append(parts, strings.Join(hex, " "))
	}
	if len(parts) == 0 {
		return ""
	}
	return " ; " + strings.Join(parts, " ")
}
