package interpreter

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

// newTestInterpreter returns a reset interpreter with the given opcode words
// loaded at ProgramStart and a constant random source.
func newTestInterpreter(t *testing.T, opcodes ...uint16) *Interpreter {
	t.Helper()

	vm := New(WithRandom(func() byte { return 0xA5 }))
	assert.NoError(t, vm.Load(words(opcodes...), ProgramStart))
	return vm
}

// words encodes opcode words as big-endian bytes.
func words(opcodes ...uint16) []byte {
	data := make([]byte, 0, len(opcodes)*OpcodeSize)
	for _, op := range opcodes {
		data = append(data, byte(op>>8), byte(op))
	}
	return data
}

// stepN executes n instructions and fails the test on any error.
func stepN(t *testing.T, vm *Interpreter, n int) {
	t.Helper()

	for range n {
		assert.NoError(t, vm.Step())
	}
}
