// Package input provides key sources that drive the keypad of the
// interpreter: scripted key events, the terminal keyboard and Lua scripts.
//
// Every frame the pipeline releases all keys and asks each source to press
// the keys it holds for that frame.
package input

import (
	"errors"
	"fmt"
)

// ErrStop is returned by a source that requests the emulation to end.
var ErrStop = errors.New("stop requested by input")

// Machine is the part of the interpreter that input sources can access.
type Machine interface {
	SetKey(key int, pressed bool) error
	ReadMemory(address uint16) (byte, error)
	Register(x int) byte
}

// Source presses the keys it holds for a frame.
type Source interface {
	Apply(frame uint64, machine Machine) error
	Close() error
}

// Multi combines multiple sources. All sources are applied even if one of
// them requests to stop.
type Multi []Source

// Apply applies all sources in order. Failures of sources take precedence
// over stop requests, ErrStop is only returned if no source failed.
func (m Multi) Apply(frame uint64, machine Machine) error {
	var errs []error
	var stop bool
	for _, source := range m {
		err := source.Apply(frame, machine)
		switch {
		case err == nil:
		case errors.Is(err, ErrStop):
			stop = true
		default:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if stop {
		return ErrStop
	}
	return nil
}

// Close closes all sources.
func (m Multi) Close() error {
	var errs []error
	for _, source := range m {
		if err := source.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func pressKeys(machine Machine, keys *[16]bool) error {
	for key, pressed := range keys {
		if !pressed {
			continue
		}
		if err := machine.SetKey(key, true); err != nil {
			return fmt.Errorf("pressing key %X: %w", key, err)
		}
	}
	return nil
}
