package input

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Event holds a key pressed for Duration frames starting at Frame.
type Event struct {
	Key      byte
	Frame    uint64
	Duration uint64
}

// Script is a fixed list of key events, used for reproducible runs.
type Script struct {
	events []Event
}

// ParseScript parses comma separated key events of the form key@frame or
// key@frame+duration. The key is a hex digit, frame and duration are
// decimal. The default duration is one frame.
//
// Example: "5@10,5@20+4,f@100".
func ParseScript(text string) (*Script, error) {
	s := &Script{}
	for entry := range strings.SplitSeq(text, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		event, err := parseEvent(entry)
		if err != nil {
			return nil, fmt.Errorf("parsing key event '%s': %w", entry, err)
		}
		s.events = append(s.events, event)
	}
	return s, nil
}

func parseEvent(entry string) (Event, error) {
	keyText, timing, ok := strings.Cut(entry, "@")
	if !ok {
		return Event{}, errors.New("missing '@' separator")
	}

	key, err := strconv.ParseUint(strings.TrimSpace(keyText), 16, 4)
	if err != nil {
		return Event{}, fmt.Errorf("invalid key: %w", err)
	}

	frameText, durationText, hasDuration := strings.Cut(timing, "+")
	frame, err := strconv.ParseUint(strings.TrimSpace(frameText), 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("invalid frame: %w", err)
	}

	duration := uint64(1)
	if hasDuration {
		duration, err = strconv.ParseUint(strings.TrimSpace(durationText), 10, 64)
		if err != nil {
			return Event{}, fmt.Errorf("invalid duration: %w", err)
		}
		if duration == 0 {
			return Event{}, errors.New("duration must be at least 1 frame")
		}
	}

	return Event{
		Key:      byte(key),
		Frame:    frame,
		Duration: duration,
	}, nil
}

// Events returns the parsed events.
func (s *Script) Events() []Event {
	return s.events
}

// Held returns the keys held during the given frame.
func (s *Script) Held(frame uint64) [16]bool {
	var keys [16]bool
	for _, event := range s.events {
		if frame >= event.Frame && frame-event.Frame < event.Duration {
			keys[event.Key] = true
		}
	}
	return keys
}

// Apply presses all keys held during the given frame.
func (s *Script) Apply(frame uint64, machine Machine) error {
	keys := s.Held(frame)
	return pressKeys(machine, &keys)
}

// Close implements Source.
func (s *Script) Close() error {
	return nil
}
