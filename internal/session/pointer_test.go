package session

import "testing"

func TestRect_Contains(t *testing.T) {
	r := R(10, 20, 30, 40)

	tests := []struct {
		x, y int
		want bool
	}{
		{10, 20, true},
		{30, 40, true},
		{20, 30, true},
		{9, 30, false},
		{31, 30, false},
		{20, 19, false},
		{20, 41, false},
	}

	for _, tt := range tests {
		if got := r.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestHitTest_FirstRegionWins(t *testing.T) {
	regions := []Region{
		{ID: ElementStart, Rect: R(0, 0, 100, 100)},
		{ID: ElementExit, Rect: R(50, 50, 150, 150)},
	}

	r, ok := HitTest(regions, 75, 75)
	if !ok || r.ID != ElementStart {
		t.Errorf("HitTest overlap = (%q, %v), want start", r.ID, ok)
	}

	r, ok = HitTest(regions, 120, 120)
	if !ok || r.ID != ElementExit {
		t.Errorf("HitTest = (%q, %v), want exit_game", r.ID, ok)
	}

	if _, ok := HitTest(regions, 200, 200); ok {
		t.Error("HitTest outside every region should miss")
	}
}

func TestDifficultyElement_RoundTrip(t *testing.T) {
	for _, d := range Difficulties {
		got, ok := difficultyOf(DifficultyElement(d))
		if !ok || got != d {
			t.Errorf("difficultyOf(DifficultyElement(%v)) = (%v, %v)", d, got, ok)
		}
	}

	if _, ok := difficultyOf(ElementStart); ok {
		t.Error("start is not a difficulty card")
	}
}

func TestActionFor(t *testing.T) {
	tests := []struct {
		phase Phase
		id    ElementID
		want  Action
		ok    bool
	}{
		{PhaseMenu, ElementStart, StartGame, true},
		{PhaseMenu, ElementDifficulty, OpenDifficulty, true},
		{PhaseMenu, ElementExit, Exit, true},
		{PhaseMenu, ElementNext, Action{}, false},
		{PhaseDifficultySelect, ElementHard, PreviewDifficulty(Hard), true},
		{PhaseDifficultySelect, ElementBack, Back, true},
		{PhasePlaying, ElementNext, Skip, true},
		{PhasePlaying, ElementQuit, ReturnToMenu, true},
		{PhasePlaying, ElementStart, Action{}, false},
		{PhaseGameOver, ElementRestart, Restart, true},
		{PhaseGameOver, ElementMenu, ReturnToMenu, true},
	}

	for _, tt := range tests {
		t.Run(tt.phase.String()+"/"+string(tt.id), func(t *testing.T) {
			got, ok := actionFor(tt.phase, tt.id)
			if ok != tt.ok || got != tt.want {
				t.Errorf("actionFor = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
