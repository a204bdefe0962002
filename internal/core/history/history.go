// Package history defines the persisted query history state and the store
// that owns it.
package history

import (
	"encoding/json"
	"slices"
	"strings"
)

// State is the whole application state mirrored to the durable slot.
// Field names match the JSON written by earlier clients.
type State struct {
	SimNoHistory []string `json:"simNoHistory"`
	LastView     string   `json:"lastView,omitempty"`
}

// DefaultState returns the state used when nothing has been persisted yet.
func DefaultState() State {
	return State{SimNoHistory: []string{}}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.SimNoHistory = slices.Clone(s.SimNoHistory)
	if out.SimNoHistory == nil {
		out.SimNoHistory = []string{}
	}
	return out
}

// Contains reports whether simNo is already recorded.
func (s State) Contains(simNo string) bool {
	return slices.Contains(s.SimNoHistory, simNo)
}

// AddIdentifier returns the state with raw recorded in the history.
//
// The value is trimmed first. Empty values and values already present leave
// the state untouched (skip-duplicates policy); changed reports whether a new
// entry was appended.
func AddIdentifier(s State, raw string) (next State, changed bool) {
	simNo := strings.TrimSpace(raw)
	if simNo == "" || s.Contains(simNo) {
		return s, false
	}

	next = s.Clone()
	next.SimNoHistory = append(next.SimNoHistory, simNo)
	return next, true
}

// SetLastView returns the state with the last active view set to name.
func SetLastView(s State, name string) (next State, changed bool) {
	if s.LastView == name {
		return s, false
	}

	next = s.Clone()
	next.LastView = name
	return next, true
}

// Normalize enforces the history invariants on rehydrated data: entries are
// trimmed, empty entries dropped and only the first occurrence kept.
func Normalize(s State) State {
	out := s.Clone()
	out.SimNoHistory = []string{}
	for _, raw := range s.SimNoHistory {
		out, _ = AddIdentifier(out, raw)
	}
	return out
}

// Decode parses a persisted snapshot over DefaultState and normalizes it.
// Unknown fields are ignored.
func Decode(data []byte) (State, error) {
	st := DefaultState()
	if err := json.Unmarshal(data, &st); err != nil {
		return DefaultState(), err
	}
	return Normalize(st), nil
}
