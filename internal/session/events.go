package session

import (
	"fmt"
	"time"
)

// EventKind identifies what happened during a tick.
type EventKind int

const (
	EventPhaseChanged EventKind = iota
	EventRoundStarted
	EventTargetSelected
	EventTargetFound
	EventActionRejected
	EventDifficultyPreviewed
	EventDifficultyCommitted
	EventRoundEnded
	EventExitRequested
)

func (k EventKind) String() string {
	switch k {
	case EventPhaseChanged:
		return "phase_changed"
	case EventRoundStarted:
		return "round_started"
	case EventTargetSelected:
		return "target_selected"
	case EventTargetFound:
		return "target_found"
	case EventActionRejected:
		return "action_rejected"
	case EventDifficultyPreviewed:
		return "difficulty_previewed"
	case EventDifficultyCommitted:
		return "difficulty_committed"
	case EventRoundEnded:
		return "round_ended"
	case EventExitRequested:
		return "exit_requested"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is emitted by the engine for the presentation layer (sounds, particles) and for
// bookkeeping such as the leaderboard. Only the fields relevant to Kind are set.
type Event struct {
	Kind       EventKind
	At         time.Time
	From       Phase
	To         Phase
	Difficulty Difficulty
	Target     string
	Score      int
	Confidence float64
	Action     Action

	// Looped is set on TargetSelected when the pool was exhausted and restarted.
	Looped bool
	// Completed is set on RoundEnded when the timer ran out rather than the player leaving.
	Completed bool
	// Elapsed is the played time of an ended round.
	Elapsed   time.Duration
	SkipsUsed int
}
