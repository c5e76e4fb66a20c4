// Package ptz holds the shared camera control state: pan/tilt/zoom,
// LED and brightness. One Store per process, mutated by whichever
// control transport is active and read by the hardware applier.
package ptz

import (
	"encoding/json"
	"errors"
	"sync"
)

// State is a consistent copy of the five control parameters.
type State struct {
	Pan        int  `json:"pan"`
	Tilt       int  `json:"tilt"`
	Zoom       int  `json:"zoom"`
	Led        bool `json:"led"`
	Brightness int  `json:"brightness"`
}

// Flag accepts JSON true/false as well as 0/1, like the firmware
// clients that send `"led": 1`.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true", "1":
		*f = true
	case "false", "0":
		*f = false
	default:
		return errors.New("ptz: led must be bool or 0/1")
	}
	return nil
}

// Command is a partial update: absent fields leave the state unchanged.
type Command struct {
	Pan        *int  `json:"pan,omitempty"`
	Tilt       *int  `json:"tilt,omitempty"`
	Zoom       *int  `json:"zoom,omitempty"`
	Led        *Flag `json:"led,omitempty"`
	Brightness *int  `json:"brightness,omitempty"`
}

// Empty - no recognized field present.
func (c *Command) Empty() bool {
	return c.Pan == nil && c.Tilt == nil && c.Zoom == nil && c.Led == nil && c.Brightness == nil
}

var ErrNoFields = errors.New("ptz: no recognized fields")

// Store is the single shared control record. All access goes through
// the mutex so a multi-field update is never observed half-applied.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore creates the store with the power-on defaults.
func NewStore() *Store {
	return &Store{state: State{Brightness: 50}}
}

// Apply merges the present fields, clamping pan/tilt/zoom to
// [-100,100] and brightness to [0,100].
func (s *Store) Apply(cmd *Command) {
	s.mu.Lock()
	if cmd.Pan != nil {
		s.state.Pan = clamp(*cmd.Pan, -100, 100)
	}
	if cmd.Tilt != nil {
		s.state.Tilt = clamp(*cmd.Tilt, -100, 100)
	}
	if cmd.Zoom != nil {
		s.state.Zoom = clamp(*cmd.Zoom, -100, 100)
	}
	if cmd.Led != nil {
		s.state.Led = bool(*cmd.Led)
	}
	if cmd.Brightness != nil {
		s.state.Brightness = clamp(*cmd.Brightness, 0, 100)
	}
	s.mu.Unlock()
}

// ApplyJSON parses a command and applies it. Malformed JSON, wrong
// field types or a command without any recognized field leave the
// state unchanged and report a validation error to the caller.
func (s *Store) ApplyJSON(b []byte) error {
	var cmd Command
	if err := json.Unmarshal(b, &cmd); err != nil {
		return err
	}
	if cmd.Empty() {
		return ErrNoFields
	}
	s.Apply(&cmd)
	return nil
}

// Snapshot returns a consistent copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	return state
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
