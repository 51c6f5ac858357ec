package session

import "fmt"

// ActionKind is a logical player action, independent of how it was input.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionStartGame
	ActionOpenDifficulty
	ActionPreviewDifficulty
	ActionCommitDifficulty
	ActionBack
	ActionReturnToMenu
	ActionSkip
	ActionRestart
	ActionExit
)

func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "none"
	case ActionStartGame:
		return "start_game"
	case ActionOpenDifficulty:
		return "open_difficulty"
	case ActionPreviewDifficulty:
		return "preview_difficulty"
	case ActionCommitDifficulty:
		return "commit_difficulty"
	case ActionBack:
		return "back"
	case ActionReturnToMenu:
		return "return_to_menu"
	case ActionSkip:
		return "skip"
	case ActionRestart:
		return "restart"
	case ActionExit:
		return "exit"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Action is a logical action plus its difficulty argument for preview and commit.
type Action struct {
	Kind       ActionKind
	Difficulty Difficulty
}

// Plain actions.
var (
	StartGame      = Action{Kind: ActionStartGame}
	OpenDifficulty = Action{Kind: ActionOpenDifficulty}
	Back           = Action{Kind: ActionBack}
	ReturnToMenu   = Action{Kind: ActionReturnToMenu}
	Skip           = Action{Kind: ActionSkip}
	Restart        = Action{Kind: ActionRestart}
	Exit           = Action{Kind: ActionExit}
)

// PreviewDifficulty highlights d without leaving the difficulty browser.
func PreviewDifficulty(d Difficulty) Action {
	return Action{Kind: ActionPreviewDifficulty, Difficulty: d}
}

// CommitDifficulty selects d and returns to the menu.
func CommitDifficulty(d Difficulty) Action {
	return Action{Kind: ActionCommitDifficulty, Difficulty: d}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionPreviewDifficulty, ActionCommitDifficulty:
		return a.Kind.String() + "(" + a.Difficulty.String() + ")"
	}
	return a.Kind.String()
}

// leavesRound reports whether applying a ends or replaces the current round, in which case
// detection is not evaluated for the rest of the tick.
func (a Action) leavesRound() bool {
	switch a.Kind {
	case ActionReturnToMenu, ActionRestart, ActionStartGame, ActionExit:
		return true
	}
	return false
}

// actionFor maps a single-click element to its action in phase p.
func actionFor(p Phase, id ElementID) (Action, bool) {
	switch p {
	case PhaseMenu:
		switch id {
		case ElementStart:
			return StartGame, true
		case ElementDifficulty:
			return OpenDifficulty, true
		case ElementExit:
			return Exit, true
		}
	case PhaseDifficultySelect:
		if d, ok := difficultyOf(id); ok {
			return PreviewDifficulty(d), true
		}
		if id == ElementBack {
			return Back, true
		}
	case PhasePlaying:
		switch id {
		case ElementNext:
			return Skip, true
		case ElementQuit, ElementMenu:
			return ReturnToMenu, true
		}
	case PhaseGameOver:
		switch id {
		case ElementRestart:
			return Restart, true
		case ElementMenu, ElementQuit:
			return ReturnToMenu, true
		}
	}
	return Action{}, false
}
