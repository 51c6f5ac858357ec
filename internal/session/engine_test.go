package session

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"
)

// fakeSource returns a fixed observation set and counts polls.
type fakeSource struct {
	obs   []Observation
	fresh bool
	polls int
}

func (s *fakeSource) Poll(time.Time) ([]Observation, bool) {
	s.polls++
	return s.obs, s.fresh
}

func see(label string, conf float64) *fakeSource {
	return &fakeSource{obs: []Observation{{Label: label, Confidence: conf}}, fresh: true}
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time {
	return t0.Add(d)
}

func newTestEngine(t *testing.T, mutate func(*Rules)) *Engine {
	t.Helper()

	rules := DefaultRules()
	rules.TransitionDuration = 0
	if mutate != nil {
		mutate(&rules)
	}

	e, err := NewEngine(rules, WithRand(rand.New(rand.NewPCG(42, 24))))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func testRegions(p Phase) []Region {
	switch p {
	case PhaseMenu:
		return []Region{
			{ID: ElementStart, Rect: R(100, 100, 300, 150)},
			{ID: ElementDifficulty, Rect: R(100, 200, 300, 250)},
			{ID: ElementExit, Rect: R(100, 300, 300, 350)},
		}
	case PhaseDifficultySelect:
		return []Region{
			{ID: ElementBack, Rect: R(0, 0, 100, 50)},
			{ID: ElementEasy, Rect: R(100, 100, 300, 150), DoubleClick: true},
			{ID: ElementNormal, Rect: R(100, 200, 300, 250), DoubleClick: true},
			{ID: ElementHard, Rect: R(100, 300, 300, 350), DoubleClick: true},
		}
	case PhasePlaying:
		return []Region{
			{ID: ElementQuit, Rect: R(20, 640, 240, 700)},
			{ID: ElementNext, Rect: R(1040, 640, 1260, 700)},
		}
	case PhaseGameOver:
		return []Region{
			{ID: ElementMenu, Rect: R(20, 640, 240, 700)},
			{ID: ElementRestart, Rect: R(1040, 640, 1260, 700)},
		}
	}
	return nil
}

// click ticks the engine with a pointer-down at the centre of element id.
func click(e *Engine, now time.Time, id ElementID, src DetectionSource) Result {
	regions := testRegions(e.Phase())
	for _, r := range regions {
		if r.ID == id {
			x := (r.Rect.Min.X + r.Rect.Max.X) / 2
			y := (r.Rect.Min.Y + r.Rect.Max.Y) / 2
			return e.Tick(Input{Now: now, Pointer: &PointerEvent{Kind: PointerDown, X: x, Y: y}, Regions: regions, Source: src})
		}
	}
	panic("element not active: " + string(id))
}

func tick(e *Engine, now time.Time, src DetectionSource) Result {
	return e.Tick(Input{Now: now, Regions: testRegions(e.Phase()), Source: src})
}

func hasEvent(events []Event, kind EventKind) bool {
	return slices.ContainsFunc(events, func(ev Event) bool { return ev.Kind == kind })
}

func TestEngine_InitialState(t *testing.T) {
	e := newTestEngine(t, nil)
	snap := e.Snapshot()

	if snap.Phase != PhaseMenu {
		t.Errorf("Phase = %v, want menu", snap.Phase)
	}
	if snap.Difficulty != Normal {
		t.Errorf("Difficulty = %v, want normal", snap.Difficulty)
	}
	if snap.Target != "" {
		t.Errorf("Target = %q, want none in menu", snap.Target)
	}
	if snap.RoundDuration != 45*time.Second {
		t.Errorf("RoundDuration = %v, want 45s", snap.RoundDuration)
	}
}

func TestEngine_StartGame(t *testing.T) {
	e := newTestEngine(t, nil)

	res := click(e, at(0), ElementStart, nil)
	if !res.Handled {
		t.Fatal("start click not handled")
	}

	snap := e.Snapshot()
	if snap.Phase != PhasePlaying {
		t.Fatalf("Phase = %v, want playing", snap.Phase)
	}
	if snap.Score != 0 || len(snap.Found) != 0 {
		t.Errorf("round not reset: score=%d found=%v", snap.Score, snap.Found)
	}
	if snap.SkipsRemaining != 3 {
		t.Errorf("SkipsRemaining = %d, want 3", snap.SkipsRemaining)
	}
	if !slices.Contains(DefaultRules().Level(Normal).Pool, snap.Target) {
		t.Errorf("Target %q not in the normal pool", snap.Target)
	}
	if snap.TimeRemaining != 45*time.Second {
		t.Errorf("TimeRemaining = %v, want 45s", snap.TimeRemaining)
	}
	for _, kind := range []EventKind{EventPhaseChanged, EventRoundStarted, EventTargetSelected} {
		if !hasEvent(res.Events, kind) {
			t.Errorf("missing %v event", kind)
		}
	}
}

func TestEngine_NormalScenario(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)
	e.st.target = "cup"

	res := tick(e, at(1*time.Second), see("bottle", 0.9))
	if e.Snapshot().Score != 0 || hasEvent(res.Events, EventTargetFound) {
		t.Fatal("bottle must not score while hunting a cup")
	}

	res = tick(e, at(5*time.Second), see("cup", 0.55))
	snap := e.Snapshot()
	if snap.Score != 1 {
		t.Fatalf("Score = %d, want 1", snap.Score)
	}
	if !slices.Equal(snap.Found, []string{"cup"}) {
		t.Errorf("Found = %v, want [cup]", snap.Found)
	}
	if !e.st.advancePending || !e.st.advanceAt.Equal(at(7*time.Second)) {
		t.Errorf("advance = (%v, %v), want pending at +7s", e.st.advancePending, e.st.advanceAt)
	}
	if !hasEvent(res.Events, EventTargetFound) {
		t.Error("missing found event")
	}

	tick(e, at(6900*time.Millisecond), see("cup", 0.9))
	if e.Snapshot().Target != "cup" {
		t.Fatal("target advanced before the celebration delay elapsed")
	}

	res = tick(e, at(7*time.Second), nil)
	snap = e.Snapshot()
	if snap.Target == "cup" || snap.Target == "" {
		t.Errorf("Target = %q, want a new label other than cup", snap.Target)
	}
	if snap.AdvancePending {
		t.Error("advance still pending after firing")
	}
	if !hasEvent(res.Events, EventTargetSelected) {
		t.Error("missing target selected event")
	}
	if snap.Score != 1 {
		t.Errorf("Score = %d after advance, want 1", snap.Score)
	}
}

func TestEngine_ConfidenceThresholds(t *testing.T) {
	tests := []struct {
		difficulty Difficulty
		conf       float64
		wantScore  int
	}{
		{Easy, 0.40, 1},
		{Easy, 0.39, 0},
		{Normal, 0.50, 1},
		{Normal, 0.49, 0},
		{Hard, 0.65, 1},
		{Hard, 0.64, 0},
	}

	for _, tt := range tests {
		t.Run(tt.difficulty.String(), func(t *testing.T) {
			e := newTestEngine(t, func(r *Rules) { r.DefaultDifficulty = tt.difficulty })
			click(e, at(0), ElementStart, nil)
			target := e.Snapshot().Target

			tick(e, at(time.Second), see(target, tt.conf))
			if got := e.Snapshot().Score; got != tt.wantScore {
				t.Errorf("confidence %.2f: Score = %d, want %d", tt.conf, got, tt.wantScore)
			}
		})
	}
}

func TestEngine_NoDoubleCount(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)
	target := e.Snapshot().Target
	src := see(target, 0.99)

	tick(e, at(1*time.Second), src)
	if src.polls != 1 {
		t.Fatalf("polls = %d, want 1", src.polls)
	}

	for i := 1; i <= 10; i++ {
		tick(e, at(1*time.Second+time.Duration(i)*100*time.Millisecond), src)
	}

	if got := e.Snapshot().Score; got != 1 {
		t.Errorf("Score = %d, want 1 while the auto-advance is pending", got)
	}
	if src.polls != 1 {
		t.Errorf("source polled %d times, want no polls while the found target is pending", src.polls)
	}
}

func TestEngine_ReusesObservationsWhenSourceDeclines(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)
	target := e.Snapshot().Target

	src := &fakeSource{obs: []Observation{{Label: "nothing", Confidence: 0.9}}, fresh: true}
	tick(e, at(time.Second), src)

	// A declined poll carrying different data must be ignored.
	src.obs = []Observation{{Label: target, Confidence: 0.9}}
	src.fresh = false
	tick(e, at(1100*time.Millisecond), src)
	if e.Snapshot().Score != 0 {
		t.Fatal("declined poll results were used")
	}

	got := e.Snapshot().Observations
	if len(got) != 1 || got[0].Label != "nothing" {
		t.Errorf("Observations = %v, want previous set", got)
	}
}

func TestEngine_TimerExpiry(t *testing.T) {
	e := newTestEngine(t, func(r *Rules) { r.DefaultDifficulty = Hard })
	click(e, at(0), ElementStart, nil)

	prev := e.Snapshot().TimeRemaining
	expiries := 0
	for step := time.Duration(0); step <= 40*time.Second; step += 700 * time.Millisecond {
		res := tick(e, at(step), nil)
		for _, ev := range res.Events {
			if ev.Kind == EventRoundEnded {
				expiries++
				if !ev.Completed {
					t.Error("timer expiry should report a completed round")
				}
			}
		}

		if e.Phase() == PhasePlaying {
			rem := e.TimeRemaining(at(step))
			if rem > prev {
				t.Fatalf("TimeRemaining increased from %v to %v", prev, rem)
			}
			prev = rem
		}
	}

	if expiries != 1 {
		t.Errorf("round ended %d times, want exactly 1", expiries)
	}
	snap := e.Snapshot()
	if snap.Phase != PhaseGameOver {
		t.Errorf("Phase = %v, want game_over", snap.Phase)
	}
	if snap.TimeRemaining != 0 {
		t.Errorf("TimeRemaining = %v, want 0", snap.TimeRemaining)
	}
	if !e.st.gameEnd.Equal(at(30100 * time.Millisecond)) {
		t.Errorf("gameEnd = %v, want first tick at or after 30s", e.st.gameEnd.Sub(t0))
	}
}

func TestEngine_ExpiryBeforeDetection(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)
	src := see(e.Snapshot().Target, 0.99)

	tick(e, at(45*time.Second), src)

	if e.Phase() != PhaseGameOver {
		t.Fatalf("Phase = %v, want game_over", e.Phase())
	}
	if e.Snapshot().Score != 0 || src.polls != 0 {
		t.Errorf("detection evaluated after expiry: score=%d polls=%d", e.Snapshot().Score, src.polls)
	}
}

func TestEngine_HardSkipBudget(t *testing.T) {
	e := newTestEngine(t, func(r *Rules) { r.DefaultDifficulty = Hard })
	click(e, at(0), ElementStart, nil)

	want := []int{2, 1, 0, 0}
	for i, w := range want {
		before := e.Snapshot()
		res := click(e, at(time.Duration(i+1)*time.Second), ElementNext, nil)
		after := e.Snapshot()

		if after.SkipsRemaining != w {
			t.Errorf("press %d: SkipsRemaining = %d, want %d", i+1, after.SkipsRemaining, w)
		}
		if after.Score != before.Score {
			t.Errorf("press %d: score changed", i+1)
		}

		rejected := hasEvent(res.Events, EventActionRejected)
		if i < 3 {
			if rejected {
				t.Errorf("press %d rejected", i+1)
			}
			if after.Target == before.Target {
				t.Errorf("press %d: target not changed", i+1)
			}
		} else {
			if !rejected {
				t.Error("4th press should be rejected")
			}
			if after.Target != before.Target {
				t.Error("rejected skip changed the target")
			}
		}
	}
}

func TestEngine_SkipUnlimitedOutsideHard(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)

	for i := 1; i <= 6; i++ {
		before := e.Snapshot().Target
		res := click(e, at(time.Duration(i)*time.Second), ElementNext, nil)
		if hasEvent(res.Events, EventActionRejected) {
			t.Fatalf("skip %d rejected in normal mode", i)
		}
		if e.Snapshot().Target == before {
			t.Fatalf("skip %d did not change the target", i)
		}
	}
	if got := e.Snapshot().SkipsRemaining; got != 3 {
		t.Errorf("SkipsRemaining = %d, want untouched 3", got)
	}
}

func TestEngine_SkipCancelsPendingAdvance(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)
	first := e.Snapshot().Target

	tick(e, at(time.Second), see(first, 0.9))
	click(e, at(1500*time.Millisecond), ElementNext, nil)

	snap := e.Snapshot()
	if snap.AdvancePending {
		t.Error("skip should clear the pending advance")
	}
	second := snap.Target

	tick(e, at(5*time.Second), nil)
	if e.Snapshot().Target != second {
		t.Error("cancelled advance still fired")
	}
}

func TestEngine_ReturnToMenuSkipsDetection(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)
	src := see(e.Snapshot().Target, 0.99)

	res := click(e, at(time.Second), ElementQuit, src)

	if e.Phase() != PhaseMenu {
		t.Fatalf("Phase = %v, want menu", e.Phase())
	}
	if src.polls != 0 {
		t.Errorf("source polled %d times on the tick that left the round", src.polls)
	}
	if hasEvent(res.Events, EventTargetFound) {
		t.Error("target scored on the tick that left the round")
	}
	if e.Snapshot().Target != "" {
		t.Errorf("Target = %q, want none in menu", e.Snapshot().Target)
	}
	for _, ev := range res.Events {
		if ev.Kind == EventRoundEnded && ev.Completed {
			t.Error("abandoned round reported as completed")
		}
	}
}

func TestEngine_RestartFromGameOver(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)
	tick(e, at(time.Second), see(e.Snapshot().Target, 0.9))
	tick(e, at(50*time.Second), nil)
	if e.Phase() != PhaseGameOver {
		t.Fatalf("Phase = %v, want game_over", e.Phase())
	}

	src := see("anything", 0.9)
	click(e, at(60*time.Second), ElementRestart, src)

	snap := e.Snapshot()
	if snap.Phase != PhasePlaying {
		t.Fatalf("Phase = %v, want playing", snap.Phase)
	}
	if snap.Score != 0 || len(snap.Found) != 0 || snap.SkipsRemaining != 3 {
		t.Errorf("restart did not reset the round: %+v", snap)
	}
	if snap.TimeRemaining != 45*time.Second {
		t.Errorf("TimeRemaining = %v, want 45s", snap.TimeRemaining)
	}
	if src.polls != 0 {
		t.Error("detection ran on the restart tick")
	}
}

func TestEngine_GameOverMenu(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)
	tick(e, at(46*time.Second), nil)

	click(e, at(47*time.Second), ElementMenu, nil)
	if e.Phase() != PhaseMenu {
		t.Errorf("Phase = %v, want menu", e.Phase())
	}
}

func TestEngine_DoubleClickWindow(t *testing.T) {
	tests := []struct {
		name       string
		gap        time.Duration
		wantPhase  Phase
		wantCommit bool
	}{
		{"within window commits", 390 * time.Millisecond, PhaseMenu, true},
		{"at window commits", 400 * time.Millisecond, PhaseMenu, true},
		{"after window previews", 410 * time.Millisecond, PhaseDifficultySelect, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, nil)
			click(e, at(0), ElementDifficulty, nil)

			res := click(e, at(time.Second), ElementHard, nil)
			if !hasEvent(res.Events, EventDifficultyPreviewed) {
				t.Fatal("first click should preview")
			}
			if e.Phase() != PhaseDifficultySelect {
				t.Fatal("single click left the difficulty browser")
			}

			res = click(e, at(time.Second+tt.gap), ElementHard, nil)
			if e.Phase() != tt.wantPhase {
				t.Errorf("Phase = %v, want %v", e.Phase(), tt.wantPhase)
			}
			if got := hasEvent(res.Events, EventDifficultyCommitted); got != tt.wantCommit {
				t.Errorf("committed = %v, want %v", got, tt.wantCommit)
			}
			if e.Snapshot().Difficulty != Hard {
				t.Errorf("Difficulty = %v, want hard", e.Snapshot().Difficulty)
			}
		})
	}
}

func TestEngine_DoubleClickRequiresSameElement(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementDifficulty, nil)

	click(e, at(time.Second), ElementEasy, nil)
	click(e, at(1200*time.Millisecond), ElementHard, nil)

	if e.Phase() != PhaseDifficultySelect {
		t.Fatal("clicks on different cards committed")
	}
	if e.Snapshot().Highlighted != Hard {
		t.Errorf("Highlighted = %v, want hard", e.Snapshot().Highlighted)
	}
}

func TestEngine_UnhandledClickBreaksDoubleClick(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementDifficulty, nil)
	regions := testRegions(PhaseDifficultySelect)

	click(e, at(time.Second), ElementEasy, nil)
	res := e.Tick(Input{Now: at(1100 * time.Millisecond), Pointer: &PointerEvent{Kind: PointerDown, X: 900, Y: 900}, Regions: regions})
	if res.Handled {
		t.Error("click outside every region reported as handled")
	}
	click(e, at(1200*time.Millisecond), ElementEasy, nil)

	if e.Phase() != PhaseDifficultySelect {
		t.Error("double click across an unhandled click committed")
	}
}

func TestEngine_BackRestoresCommittedDifficulty(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementDifficulty, nil)
	click(e, at(time.Second), ElementEasy, nil)

	if e.Snapshot().Difficulty != Easy {
		t.Fatal("preview did not update the effective difficulty")
	}

	click(e, at(2*time.Second), ElementBack, nil)
	if e.Phase() != PhaseMenu {
		t.Fatalf("Phase = %v, want menu", e.Phase())
	}
	if e.Snapshot().Difficulty != Normal {
		t.Errorf("Difficulty = %v, want committed normal after back", e.Snapshot().Difficulty)
	}
}

func TestEngine_CommittedDifficultyDrivesRound(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementDifficulty, nil)
	click(e, at(time.Second), ElementEasy, nil)
	click(e, at(1200*time.Millisecond), ElementEasy, nil)
	click(e, at(2*time.Second), ElementStart, nil)

	snap := e.Snapshot()
	if snap.Difficulty != Easy || snap.RoundDuration != 60*time.Second {
		t.Errorf("round = (%v, %v), want (easy, 60s)", snap.Difficulty, snap.RoundDuration)
	}
	if snap.MinConfidence != 0.40 {
		t.Errorf("MinConfidence = %v, want 0.40", snap.MinConfidence)
	}
}

func TestEngine_TransitionMasksClicks(t *testing.T) {
	e := newTestEngine(t, func(r *Rules) { r.TransitionDuration = 500 * time.Millisecond })

	click(e, at(0), ElementDifficulty, nil)
	if e.Snapshot().Transition == nil {
		t.Fatal("expected an active transition after opening difficulties")
	}

	res := click(e, at(200*time.Millisecond), ElementBack, nil)
	if res.Handled || e.Phase() != PhaseDifficultySelect {
		t.Error("click applied during transition")
	}

	click(e, at(600*time.Millisecond), ElementBack, nil)
	if e.Phase() != PhaseMenu {
		t.Errorf("Phase = %v, want menu after the transition finished", e.Phase())
	}
}

func TestEngine_ExitSignal(t *testing.T) {
	e := newTestEngine(t, func(r *Rules) { r.TransitionDuration = time.Second })
	click(e, at(0), ElementDifficulty, nil)

	res := e.Tick(Input{Now: at(100 * time.Millisecond), Exit: true})
	if !res.Exit {
		t.Error("exit signal ignored during transition")
	}
	if e.Phase() != PhaseDifficultySelect {
		t.Error("exit signal went through the phase machine")
	}
}

func TestEngine_ExitElement(t *testing.T) {
	e := newTestEngine(t, nil)
	res := click(e, at(0), ElementExit, nil)
	if !res.Exit || !hasEvent(res.Events, EventExitRequested) {
		t.Error("exit element did not request exit")
	}
}

func TestEngine_Hover(t *testing.T) {
	e := newTestEngine(t, nil)
	regions := testRegions(PhaseMenu)

	e.Tick(Input{Now: at(0), Pointer: &PointerEvent{Kind: PointerMove, X: 150, Y: 120}, Regions: regions})
	if got := e.Snapshot().Hover; got != ElementStart {
		t.Errorf("Hover = %q, want start", got)
	}
	if e.Phase() != PhaseMenu {
		t.Error("hover changed the phase")
	}

	e.Tick(Input{Now: at(time.Second), Pointer: &PointerEvent{Kind: PointerMove, X: 5, Y: 5}, Regions: regions})
	if got := e.Snapshot().Hover; got != "" {
		t.Errorf("Hover = %q, want none", got)
	}
}

func TestEngine_ClockNeverRunsBackwards(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)
	tick(e, at(10*time.Second), nil)
	tick(e, at(5*time.Second), nil)

	if got := e.Snapshot().TimeRemaining; got != 35*time.Second {
		t.Errorf("TimeRemaining = %v, want 35s", got)
	}
}

func TestEngine_DelayedTickFiresAdvanceOnce(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)
	tick(e, at(time.Second), see(e.Snapshot().Target, 0.9))

	res := tick(e, at(20*time.Second), nil)
	selected := 0
	for _, ev := range res.Events {
		if ev.Kind == EventTargetSelected {
			selected++
		}
	}
	if selected != 1 {
		t.Errorf("late tick selected %d targets, want 1", selected)
	}

	res = tick(e, at(21*time.Second), nil)
	if hasEvent(res.Events, EventTargetSelected) {
		t.Error("advance fired twice")
	}
}

func TestEngine_FoundTargetsLoopWithinRound(t *testing.T) {
	e := newTestEngine(t, func(r *Rules) {
		r.DefaultDifficulty = Easy
		r.CelebrationDelay = 0
	})
	click(e, at(0), ElementStart, nil)

	pool := DefaultRules().Level(Easy).Pool
	now := time.Duration(0)
	for i := 0; i < len(pool); i++ {
		now += time.Second
		tick(e, at(now), see(e.Snapshot().Target, 0.9))
		if i < len(pool)-1 {
			now += 10 * time.Millisecond
			tick(e, at(now), nil)
		}
	}

	snap := e.Snapshot()
	if snap.Score != len(pool) {
		t.Fatalf("Score = %d, want %d", snap.Score, len(pool))
	}
	if len(snap.Found) != len(pool) {
		t.Fatalf("Found = %v, want the whole pool", snap.Found)
	}

	res := tick(e, at(now+10*time.Millisecond), nil)
	looped := false
	for _, ev := range res.Events {
		if ev.Kind == EventTargetSelected && ev.Looped {
			looped = true
		}
	}
	if !looped {
		t.Error("expected the selection after exhausting the pool to loop")
	}
	if len(e.Snapshot().Found) != 0 {
		t.Errorf("Found = %v, want cleared after loop", e.Snapshot().Found)
	}
}

func TestEngine_ApplyIgnoresActionsForOtherPhases(t *testing.T) {
	e := newTestEngine(t, nil)

	for _, a := range []Action{Skip, Restart, ReturnToMenu, Back, CommitDifficulty(Hard)} {
		if events := e.Apply(a, at(0)); len(events) != 0 {
			t.Errorf("Apply(%v) in menu produced %v", a, events)
		}
	}
	if e.Phase() != PhaseMenu {
		t.Errorf("Phase = %v, want menu", e.Phase())
	}
}

func TestNewEngine_RejectsInvalidRules(t *testing.T) {
	rules := DefaultRules()
	rules.Levels[Hard] = Level{Duration: 0, MinConfidence: 2}

	if _, err := NewEngine(rules); err == nil {
		t.Error("expected invalid rules to be rejected")
	}
}

func TestEngine_NilSourceScoresNothing(t *testing.T) {
	e := newTestEngine(t, nil)
	click(e, at(0), ElementStart, nil)

	var everything []Observation
	for _, label := range e.rules.Level(Normal).Pool {
		everything = append(everything, Observation{Label: label, Confidence: 0.9})
	}
	tick(e, at(time.Second), &fakeSource{obs: everything, fresh: true})
	if got := e.Snapshot().Score; got != 1 {
		t.Fatalf("Score = %d after one poll, want 1", got)
	}

	for s := 2; s <= 39; s++ {
		tick(e, at(time.Duration(s)*time.Second), nil)
	}
	snap := e.Snapshot()
	if snap.Score != 1 {
		t.Errorf("Score = %d with recognition paused, want 1", snap.Score)
	}
	if len(snap.Observations) != 0 {
		t.Errorf("Observations = %v, want none while paused", snap.Observations)
	}
}

func TestEngine_PhaseChangeClearsHover(t *testing.T) {
	e := newTestEngine(t, nil)
	regions := testRegions(PhaseMenu)

	e.Tick(Input{Now: at(0), Pointer: &PointerEvent{Kind: PointerMove, X: 150, Y: 120}, Regions: regions})
	if got := e.Snapshot().Hover; got != ElementStart {
		t.Fatalf("Hover = %q, want start", got)
	}

	click(e, at(time.Second), ElementStart, nil)
	if e.Phase() != PhasePlaying {
		t.Fatalf("Phase = %v, want playing", e.Phase())
	}
	if got := e.Snapshot().Hover; got != "" {
		t.Errorf("Hover = %q after the phase changed, want none", got)
	}
}
