// Package model defines shared data structures.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Unit bounds for a single callout unit.
const (
	MinUnit = 1
	MaxUnit = 10
)

// ErrInvalidPattern reports a pattern that is empty or has out-of-range units.
var ErrInvalidPattern = errors.New("invalid pattern")

// Pattern is an ordered sequence of callout units (punch numbers).
type Pattern []int

// NewPattern validates units and returns a copy as a Pattern.
func NewPattern(units ...int) (Pattern, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no units", ErrInvalidPattern)
	}
	out := make(Pattern, len(units))
	for i, u := range units {
		if u < MinUnit || u > MaxUnit {
			return nil, fmt.Errorf("%w: unit %d out of range %d-%d", ErrInvalidPattern, u, MinUnit, MaxUnit)
		}
		out[i] = u
	}
	return out, nil
}

// ParsePattern parses "1-2-3", "1 2 3" or "1,2,3".
func ParsePattern(s string) (Pattern, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == ',' || r == ' ' || r == '\t'
	})
	units := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidPattern, f)
		}
		units = append(units, n)
	}
	return NewPattern(units...)
}

// Equal reports whether both patterns have the same units in the same order.
func (p Pattern) Equal(other Pattern) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (p Pattern) Clone() Pattern {
	if p == nil {
		return nil
	}
	out := make(Pattern, len(p))
	copy(out, p)
	return out
}

func (p Pattern) String() string {
	parts := make([]string, len(p))
	for i, u := range p {
		parts[i] = strconv.Itoa(u)
	}
	return strings.Join(parts, "-")
}

// PatternSet is a named collection of distinct patterns.
type PatternSet struct {
	ID        string    `json:"id" yaml:"id,omitempty"`
	Name      string    `json:"name" yaml:"name"`
	Patterns  []Pattern `json:"patterns" yaml:"patterns,flow"`
	IsDefault bool      `json:"isDefault" yaml:"-"`
}

// Contains reports whether an equal pattern is already in the set.
func (s PatternSet) Contains(p Pattern) bool {
	return s.IndexOf(p) >= 0
}

// IndexOf returns the index of an equal pattern or -1.
func (s PatternSet) IndexOf(p Pattern) int {
	for i, existing := range s.Patterns {
		if existing.Equal(p) {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (s PatternSet) Clone() PatternSet {
	out := s
	out.Patterns = make([]Pattern, len(s.Patterns))
	for i, p := range s.Patterns {
		out.Patterns[i] = p.Clone()
	}
	return out
}

// Phase is a session state machine phase.
type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhaseCountdown Phase = "countdown"
	PhaseRound     Phase = "round"
	PhaseRest      Phase = "rest"
	PhaseComplete  Phase = "complete"
)

// SessionState is the live state of a training session.
type SessionState struct {
	Phase                Phase   `json:"phase"`
	CurrentRound         int     `json:"currentRound"`
	TimeRemainingSeconds int     `json:"timeRemainingSeconds"`
	CurrentPattern       Pattern `json:"currentPattern,omitempty"`
	IsPaused             bool    `json:"isPaused"`
}

// Clone returns a copy that shares no slices with s.
func (s SessionState) Clone() SessionState {
	s.CurrentPattern = s.CurrentPattern.Clone()
	return s
}
