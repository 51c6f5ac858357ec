package session

import (
	"slices"
	"time"
)

// Observation is one recognizer result for the current frame.
type Observation struct {
	Label      string
	Confidence float64
}

// DetectionSource supplies observations to the engine. fresh is false when the source
// declined to run this tick (cooldown or internal failure); the engine then keeps using the
// observations from the previous poll.
type DetectionSource interface {
	Poll(now time.Time) (obs []Observation, fresh bool)
}

// Transition is the short fade played when moving between menu screens. It never delays the
// phase change itself; it only masks input until it has finished.
type Transition struct {
	From      Phase
	To        Phase
	StartedAt time.Time
	Duration  time.Duration
}

// Progress returns how far the transition has run at now, in [0, 1].
func (t Transition) Progress(now time.Time) float64 {
	if t.Duration <= 0 {
		return 1
	}
	p := float64(now.Sub(t.StartedAt)) / float64(t.Duration)
	return min(max(p, 0), 1)
}

// Done reports whether the transition has finished at now.
func (t Transition) Done(now time.Time) bool {
	return !now.Before(t.StartedAt.Add(t.Duration))
}

// state is the single mutable aggregate owned by Engine.
type state struct {
	phase Phase

	// difficulty is the effective difficulty. While browsing difficulties it follows the
	// previewed card; committed holds the value to restore on Back.
	difficulty  Difficulty
	committed   Difficulty
	highlighted Difficulty

	score  int
	target string
	found  map[string]bool

	roundStart    time.Time
	roundDuration time.Duration
	gameEnd       time.Time

	advancePending bool
	advanceAt      time.Time

	skipsRemaining int
	skipsUsed      int

	lastClick  Click
	hover      ElementID
	transition *Transition

	observations []Observation
}

func (s *state) timeRemaining(now time.Time) time.Duration {
	switch s.phase {
	case PhasePlaying:
		return max(0, s.roundDuration-now.Sub(s.roundStart))
	default:
		return 0
	}
}

// Snapshot is a read-only copy of the session state handed to the presentation layer.
type Snapshot struct {
	At             time.Time
	Phase          Phase
	Difficulty     Difficulty
	Highlighted    Difficulty
	MinConfidence  float64
	Score          int
	Target         string
	Found          []string
	TimeRemaining  time.Duration
	RoundDuration  time.Duration
	SkipsLimited   bool
	SkipsRemaining int
	AdvancePending bool
	Hover          ElementID
	Transition     *Transition
	Observations   []Observation
}

// Playing reports whether a round is running.
func (s Snapshot) Playing() bool {
	return s.Phase == PhasePlaying
}

func (s *state) snapshot(now time.Time, rules Rules) Snapshot {
	found := make([]string, 0, len(s.found))
	for label := range s.found {
		found = append(found, label)
	}
	slices.Sort(found)

	snap := Snapshot{
		At:             now,
		Phase:          s.phase,
		Difficulty:     s.difficulty,
		Highlighted:    s.highlighted,
		MinConfidence:  rules.Level(s.difficulty).MinConfidence,
		Score:          s.score,
		Target:         s.target,
		Found:          found,
		TimeRemaining:  s.timeRemaining(now),
		RoundDuration:  s.roundDuration,
		SkipsLimited:   s.difficulty == Hard,
		SkipsRemaining: s.skipsRemaining,
		AdvancePending: s.advancePending,
		Hover:          s.hover,
		Observations:   slices.Clone(s.observations),
	}
	if s.phase != PhasePlaying && s.phase != PhaseGameOver {
		snap.RoundDuration = rules.Level(s.difficulty).Duration
	}
	if s.transition != nil {
		t := *s.transition
		snap.Transition = &t
	}
	return snap
}
