package session

import (
	"math/rand/v2"
	"time"
)

// Input is everything the render loop hands to the engine for one frame.
type Input struct {
	Now time.Time

	// Pointer is the single pointer event for this frame, if any. Events arriving faster than
	// the frame rate are coalesced by the render surface before they get here.
	Pointer *PointerEvent

	// Regions are the active elements for the current phase, rebuilt by the presentation
	// layer every frame.
	Regions []Region

	// Source is polled for observations while a target is being hunted. May be nil.
	Source DetectionSource

	// Exit is the immediate-exit key (ESC). It bypasses the phase machine.
	Exit bool
}

// Result describes what one Tick did.
type Result struct {
	Events []Event

	// Handled is true when the pointer event hit an active region.
	Handled bool

	// Exit is true when the process should shut down.
	Exit bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used for target selection.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = r
	}
}

// Engine owns the session state and advances it once per frame.
type Engine struct {
	rules  Rules
	rng    *rand.Rand
	st     state
	now    time.Time
	events []Event
	exit   bool
}

// NewEngine creates an engine in the menu phase.
func NewEngine(rules Rules, opts ...Option) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{rules: rules}
	for _, opt := range opts {
		opt(e)
	}

	d := rules.DefaultDifficulty
	e.st = state{
		phase:          PhaseMenu,
		difficulty:     d,
		committed:      d,
		highlighted:    d,
		found:          make(map[string]bool),
		skipsRemaining: rules.SkipBudget,
	}
	return e, nil
}

// Rules returns the rules the engine was built with.
func (e *Engine) Rules() Rules {
	return e.rules
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	return e.st.phase
}

// Snapshot returns a copy of the state as of the last tick.
func (e *Engine) Snapshot() Snapshot {
	return e.st.snapshot(e.now, e.rules)
}

// TimeRemaining returns the round time left at now, clamped at zero.
func (e *Engine) TimeRemaining(now time.Time) time.Duration {
	return e.st.timeRemaining(e.clamp(now))
}

// Tick advances the session by one frame.
//
// Within a tick the round timer is checked first, then any due auto-advance, then detection,
// then the pointer action. A pointer action that ends or replaces the round is applied before
// detection instead, and detection is skipped for that tick.
func (e *Engine) Tick(in Input) Result {
	now := e.clamp(in.Now)
	e.now = now
	e.events = nil
	e.exit = false

	if in.Exit {
		e.emit(Event{Kind: EventExitRequested, At: now})
		return e.result(false)
	}

	e.advanceTransition(now)

	if e.st.phase == PhasePlaying {
		if e.st.timeRemaining(now) == 0 {
			e.expire(now)
		} else if e.st.advancePending && !now.Before(e.st.advanceAt) {
			e.st.advancePending = false
			e.nextTarget(now)
		}
	}

	var (
		pending *Action
		handled bool
	)
	if p := in.Pointer; p != nil {
		switch p.Kind {
		case PointerMove:
			e.st.hover = HoverAt(in.Regions, p.X, p.Y)
		case PointerDown:
			pending, handled = e.resolveClick(now, in.Regions, p.X, p.Y)
		}
	}

	if pending != nil && pending.leavesRound() {
		e.apply(*pending, now)
		return e.result(handled)
	}

	if e.st.phase == PhasePlaying {
		e.evaluate(now, in.Source)
	}

	if pending != nil {
		e.apply(*pending, now)
	}
	return e.result(handled)
}

// Apply performs a logical action outside of pointer interpretation and returns the events
// it produced. Actions that do not apply to the current phase are ignored.
func (e *Engine) Apply(a Action, now time.Time) []Event {
	now = e.clamp(now)
	e.now = now
	e.events = nil
	e.apply(a, now)
	events := e.events
	e.events = nil
	return events
}

func (e *Engine) result(handled bool) Result {
	res := Result{Events: e.events, Handled: handled, Exit: e.exit}
	for _, ev := range e.events {
		if ev.Kind == EventExitRequested {
			res.Exit = true
		}
	}
	e.events = nil
	return res
}

// clamp keeps engine time from running backwards so timers never fire early or twice.
func (e *Engine) clamp(now time.Time) time.Time {
	if now.Before(e.now) {
		return e.now
	}
	return now
}

func (e *Engine) emit(ev Event) {
	e.events = append(e.events, ev)
}

func (e *Engine) advanceTransition(now time.Time) {
	if t := e.st.transition; t != nil && t.Done(now) {
		e.st.transition = nil
	}
}

// resolveClick interprets a click against the active regions and records it for double-click
// detection. It does not change the phase.
func (e *Engine) resolveClick(now time.Time, regions []Region, x, y int) (*Action, bool) {
	if e.st.transition != nil {
		e.st.lastClick = Click{At: now, X: x, Y: y}
		return nil, false
	}

	r, ok := HitTest(regions, x, y)
	if !ok {
		e.st.lastClick = Click{At: now, X: x, Y: y}
		return nil, false
	}

	prev := e.st.lastClick
	e.st.lastClick = Click{At: now, Element: r.ID, X: x, Y: y}

	act, ok := actionFor(e.st.phase, r.ID)
	if !ok {
		return nil, true
	}
	if r.DoubleClick {
		double := prev.Element == r.ID && !prev.At.IsZero() && now.Sub(prev.At) <= e.rules.DoubleClickWindow
		if act.Kind == ActionPreviewDifficulty {
			if double {
				act = CommitDifficulty(act.Difficulty)
			}
		} else if !double {
			return nil, true
		}
	}
	return &act, true
}

// apply runs a through the phase transition table.
func (e *Engine) apply(a Action, now time.Time) {
	s := &e.st
	switch a.Kind {
	case ActionStartGame:
		if s.phase == PhaseMenu {
			e.startRound(now)
		}

	case ActionRestart:
		if s.phase == PhaseGameOver {
			e.startRound(now)
		}

	case ActionOpenDifficulty:
		if s.phase == PhaseMenu {
			s.committed = s.difficulty
			s.highlighted = s.difficulty
			e.setPhase(PhaseDifficultySelect, now)
		}

	case ActionPreviewDifficulty:
		if s.phase == PhaseDifficultySelect && a.Difficulty.valid() {
			s.difficulty = a.Difficulty
			s.highlighted = a.Difficulty
			e.emit(Event{Kind: EventDifficultyPreviewed, At: now, Difficulty: a.Difficulty})
		}

	case ActionCommitDifficulty:
		if s.phase == PhaseDifficultySelect && a.Difficulty.valid() {
			s.difficulty = a.Difficulty
			s.committed = a.Difficulty
			s.highlighted = a.Difficulty
			e.emit(Event{Kind: EventDifficultyCommitted, At: now, Difficulty: a.Difficulty})
			e.setPhase(PhaseMenu, now)
		}

	case ActionBack:
		if s.phase == PhaseDifficultySelect {
			s.difficulty = s.committed
			s.highlighted = s.committed
			e.setPhase(PhaseMenu, now)
		}

	case ActionReturnToMenu:
		switch s.phase {
		case PhasePlaying:
			e.emit(e.roundEnded(now, false))
		case PhaseGameOver:
		default:
			return
		}
		s.target = ""
		s.advancePending = false
		s.observations = nil
		e.setPhase(PhaseMenu, now)

	case ActionSkip:
		if s.phase != PhasePlaying {
			return
		}
		if s.difficulty == Hard {
			if s.skipsRemaining <= 0 {
				e.emit(Event{Kind: EventActionRejected, At: now, Action: a, Target: s.target})
				return
			}
			s.skipsRemaining--
		}
		s.skipsUsed++
		s.advancePending = false
		e.nextTarget(now)

	case ActionExit:
		e.emit(Event{Kind: EventExitRequested, At: now})
		e.exit = true
	}
}

// startRound is the single round-start entry point used by StartGame and Restart.
func (e *Engine) startRound(now time.Time) {
	s := &e.st
	s.score = 0
	s.found = make(map[string]bool)
	s.skipsRemaining = e.rules.SkipBudget
	s.skipsUsed = 0
	s.advancePending = false
	s.gameEnd = time.Time{}
	s.observations = nil
	s.roundStart = now
	s.roundDuration = e.rules.Level(s.difficulty).Duration
	s.transition = nil

	e.setPhase(PhasePlaying, now)
	e.emit(Event{Kind: EventRoundStarted, At: now, Difficulty: s.difficulty})
	e.nextTarget(now)
}

func (e *Engine) expire(now time.Time) {
	s := &e.st
	s.gameEnd = now
	s.advancePending = false
	e.setPhase(PhaseGameOver, now)
	e.emit(e.roundEnded(now, true))
}

func (e *Engine) roundEnded(now time.Time, completed bool) Event {
	s := &e.st
	elapsed := min(now.Sub(s.roundStart), s.roundDuration)
	return Event{
		Kind:       EventRoundEnded,
		At:         now,
		Difficulty: s.difficulty,
		Score:      s.score,
		Completed:  completed,
		Elapsed:    elapsed,
		SkipsUsed:  s.skipsUsed,
	}
}

func (e *Engine) setPhase(to Phase, now time.Time) {
	s := &e.st
	from := s.phase
	s.phase = to
	s.transition = nil
	s.hover = ""
	if e.rules.TransitionDuration > 0 && (to == PhaseMenu || to == PhaseDifficultySelect) {
		s.transition = &Transition{From: from, To: to, StartedAt: now, Duration: e.rules.TransitionDuration}
	}
	e.emit(Event{Kind: EventPhaseChanged, At: now, From: from, To: to, Difficulty: s.difficulty})
}

func (e *Engine) nextTarget(now time.Time) {
	s := &e.st
	target, looped := SelectTarget(e.rules.Level(s.difficulty).Pool, s.found, s.target, e.rng)
	if looped {
		s.found = make(map[string]bool)
	}
	s.target = target
	e.emit(Event{Kind: EventTargetSelected, At: now, Target: target, Looped: looped, Difficulty: s.difficulty})
}

// evaluate polls the detection source and scores the current target if it is visible with
// enough confidence. A target already scored this round is never scored again; while its
// auto-advance is pending the source is not polled at all. A nil source drops the cached
// observations and scores nothing.
func (e *Engine) evaluate(now time.Time, src DetectionSource) {
	s := &e.st
	if s.target == "" || s.found[s.target] || s.timeRemaining(now) == 0 {
		return
	}

	if src == nil {
		// Recognition is paused: nothing seen before the pause may score.
		s.observations = nil
		return
	}
	if obs, fresh := src.Poll(now); fresh {
		s.observations = append(s.observations[:0], obs...)
	}

	required := e.rules.Level(s.difficulty).MinConfidence
	for _, o := range s.observations {
		if o.Label != s.target || o.Confidence < required {
			continue
		}
		s.score++
		s.found[s.target] = true
		s.advancePending = true
		s.advanceAt = now.Add(e.rules.CelebrationDelay)
		e.emit(Event{
			Kind:       EventTargetFound,
			At:         now,
			Target:     s.target,
			Score:      s.score,
			Confidence: o.Confidence,
			Difficulty: s.difficulty,
		})
		return
	}
}
