package input

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"
	lua "github.com/yuin/gopher-lua"
)

const luaFrameHook = "on_frame"

// Lua drives the keypad from a Lua script. The script defines the function
// on_frame(frame) which is called at the start of every frame and can use
// the following functions:
//
//	press(key)    hold the key 0-15 until it is released
//	release(key)  release the key
//	peek(address) return the memory byte at the address
//	reg(x)        return the value of register Vx
//	stop()        end the emulation after this frame
type Lua struct {
	logger  *log.Logger
	state   *lua.LState
	onFrame lua.LValue

	machine Machine // only set during Apply
	held    [16]bool
	stopped bool
}

// NewLua loads the Lua script file.
func NewLua(logger *log.Logger, path string) (*Lua, error) {
	return newLua(logger, path, func(state *lua.LState) error {
		return state.DoFile(path)
	})
}

// NewLuaFromString loads a Lua script from source code. The name is used in
// error messages.
func NewLuaFromString(logger *log.Logger, name, source string) (*Lua, error) {
	return newLua(logger, name, func(state *lua.LState) error {
		return state.DoString(source)
	})
}

func newLua(logger *log.Logger, name string, load func(*lua.LState) error) (*Lua, error) {
	l := &Lua{
		logger: logger,
		state:  lua.NewState(),
	}
	l.registerFunctions()

	if err := load(l.state); err != nil {
		l.state.Close()
		return nil, fmt.Errorf("loading lua script %s: %w", name, err)
	}

	l.onFrame = l.state.GetGlobal(luaFrameHook)
	if l.onFrame.Type() != lua.LTFunction {
		l.state.Close()
		return nil, fmt.Errorf("lua script %s does not define function %s", name, luaFrameHook)
	}
	return l, nil
}

func (l *Lua) registerFunctions() {
	functions := map[string]lua.LGFunction{
		"press":   l.press,
		"release": l.release,
		"peek":    l.peek,
		"reg":     l.reg,
		"stop":    l.stop,
	}
	for name, fn := range functions {
		l.state.SetGlobal(name, l.state.NewFunction(fn))
	}
}

// Apply calls the frame hook of the script and presses all held keys.
func (l *Lua) Apply(frame uint64, machine Machine) error {
	l.machine = machine
	defer func() { l.machine = nil }()

	err := l.state.CallByParam(lua.P{
		Fn:      l.onFrame,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(frame))
	if err != nil {
		return fmt.Errorf("calling lua %s for frame %d: %w", luaFrameHook, frame, err)
	}

	if err := pressKeys(machine, &l.held); err != nil {
		return err
	}
	if l.stopped {
		return ErrStop
	}
	return nil
}

// Close releases the Lua state.
func (l *Lua) Close() error {
	l.state.Close()
	return nil
}

func (l *Lua) press(state *lua.LState) int {
	key := checkKey(state)
	if !l.held[key] {
		l.logger.Debug("Lua key press", log.Int("key", key))
	}
	l.held[key] = true
	return 0
}

func (l *Lua) release(state *lua.LState) int {
	key := checkKey(state)
	l.held[key] = false
	return 0
}

func (l *Lua) peek(state *lua.LState) int {
	address := state.CheckInt(1)
	if address < 0 || address > 0xFFFF {
		state.ArgError(1, "address out of range")
		return 0
	}

	value, err := l.currentMachine(state).ReadMemory(uint16(address))
	if err != nil {
		state.RaiseError("%s", err.Error())
		return 0
	}
	state.Push(lua.LNumber(value))
	return 1
}

func (l *Lua) reg(state *lua.LState) int {
	x := state.CheckInt(1)
	if x < 0 || x > 0xF {
		state.ArgError(1, "register index out of range")
		return 0
	}
	state.Push(lua.LNumber(l.currentMachine(state).Register(x)))
	return 1
}

func (l *Lua) stop(*lua.LState) int {
	l.stopped = true
	return 0
}

func (l *Lua) currentMachine(state *lua.LState) Machine {
	if l.machine == nil {
		state.RaiseError("%s", errMachineUnavailable.Error())
	}
	return l.machine
}

var errMachineUnavailable = errors.New("machine state is only available inside on_frame")

func checkKey(state *lua.LState) int {
	key := state.CheckInt(1)
	if key < 0 || key > 0xF {
		state.ArgError(1, "key out of range")
	}
	return key
}
