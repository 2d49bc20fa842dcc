package core

import (
	"fmt"
	"strings"
)

// Mode selects the per-frame transform.
type Mode int

const (
	ModeNormal Mode = iota
	ModeMotion
	ModeAnaglyph
)

var modeNames = map[Mode]string{
	ModeNormal:   "normal",
	ModeMotion:   "motion",
	ModeAnaglyph: "anaglyph",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// IsColor reports whether the mode produces 3-channel output.
func (m Mode) IsColor() bool {
	return m != ModeMotion
}

// Modes returns all modes in display order.
func Modes() []Mode {
	return []Mode{ModeNormal, ModeMotion, ModeAnaglyph}
}

// ParseMode converts a mode name (case-insensitive) to a Mode.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return ModeNormal, fmt.Errorf("unknown mode: %q", s)
}
