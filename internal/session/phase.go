// Package session implements the Object Hunter game session engine: phases, round timing,
// target selection, scoring and pointer interpretation.
//
// The engine is single-threaded. It is driven once per rendered frame through Engine.Tick and
// never blocks; every time-dependent rule is evaluated against the wall-clock time passed in.
package session

import (
	"fmt"
	"strings"
)

// Phase is the top-level mode of a session.
type Phase int

const (
	// PhaseMenu is the main menu.
	PhaseMenu Phase = iota
	// PhaseDifficultySelect is the difficulty browser.
	PhaseDifficultySelect
	// PhasePlaying is an active round.
	PhasePlaying
	// PhaseGameOver is shown after the round timer runs out.
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseMenu:
		return "menu"
	case PhaseDifficultySelect:
		return "difficulty"
	case PhasePlaying:
		return "playing"
	case PhaseGameOver:
		return "game_over"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Difficulty selects the round duration, confidence threshold and object pool.
type Difficulty int

const (
	Easy Difficulty = iota
	Normal
	Hard
)

// Difficulties lists every difficulty in menu order.
var Difficulties = []Difficulty{Easy, Normal, Hard}

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Normal:
		return "normal"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

// MarshalText encodes the difficulty by name.
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a difficulty name.
func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDifficulty parses a case-insensitive difficulty name.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "normal":
		return Normal, nil
	case "hard":
		return Hard, nil
	}
	return Normal, fmt.Errorf("unknown difficulty %q", s)
}

// valid reports whether d is one of the defined difficulties.
func (d Difficulty) valid() bool {
	return d >= Easy && d <= Hard
}
