package session

import (
	"errors"
	"fmt"
	"time"
)

// Default timing values.
const (
	DefaultCelebrationDelay   = 2 * time.Second
	DefaultDoubleClickWindow  = 400 * time.Millisecond
	DefaultSkipBudget         = 3
	DefaultTransitionDuration = 500 * time.Millisecond
)

// Level binds a difficulty to its round duration, minimum detection confidence and object pool.
type Level struct {
	Duration      time.Duration
	MinConfidence float64
	Pool          []string
}

// Rules is the static game configuration consumed by the engine.
type Rules struct {
	Levels             map[Difficulty]Level
	DefaultDifficulty  Difficulty
	CelebrationDelay   time.Duration
	DoubleClickWindow  time.Duration
	SkipBudget         int
	TransitionDuration time.Duration
}

// DefaultRules returns the stock Object Hunter rules.
func DefaultRules() Rules {
	return Rules{
		Levels: map[Difficulty]Level{
			Easy: {
				Duration:      60 * time.Second,
				MinConfidence: 0.40,
				Pool:          []string{"book", "cell phone", "keyboard"},
			},
			Normal: {
				Duration:      45 * time.Second,
				MinConfidence: 0.50,
				Pool: []string{
					"cup", "bottle", "book", "cell phone", "chair",
					"laptop", "mouse", "keyboard", "remote", "backpack",
				},
			},
			Hard: {
				Duration:      30 * time.Second,
				MinConfidence: 0.65,
				Pool: []string{
					"person", "backpack", "bottle", "cup", "keyboard",
					"chair", "tv", "laptop", "mouse", "remote", "cell phone",
					"scissors", "book", "clock",
				},
			},
		},
		DefaultDifficulty:  Normal,
		CelebrationDelay:   DefaultCelebrationDelay,
		DoubleClickWindow:  DefaultDoubleClickWindow,
		SkipBudget:         DefaultSkipBudget,
		TransitionDuration: DefaultTransitionDuration,
	}
}

// Level returns the level bound to d.
func (r Rules) Level(d Difficulty) Level {
	return r.Levels[d]
}

// Validate checks that every difficulty is fully configured.
func (r Rules) Validate() error {
	var errs []error
	for _, d := range Difficulties {
		lvl, ok := r.Levels[d]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: level not configured", d))
			continue
		}
		if lvl.Duration <= 0 {
			errs = append(errs, fmt.Errorf("%s: duration must be positive", d))
		}
		if lvl.MinConfidence < 0 || lvl.MinConfidence > 1 {
			errs = append(errs, fmt.Errorf("%s: min confidence %.2f outside [0,1]", d, lvl.MinConfidence))
		}
		if len(lvl.Pool) == 0 {
			errs = append(errs, fmt.Errorf("%s: object pool is empty", d))
		}
		seen := make(map[string]bool, len(lvl.Pool))
		for _, label := range lvl.Pool {
			if label == "" {
				errs = append(errs, fmt.Errorf("%s: empty label in pool", d))
			}
			if seen[label] {
				errs = append(errs, fmt.Errorf("%s: duplicate label %q", d, label))
			}
			seen[label] = true
		}
	}
	if !r.DefaultDifficulty.valid() {
		errs = append(errs, fmt.Errorf("default difficulty %d is not defined", int(r.DefaultDifficulty)))
	}
	if r.CelebrationDelay < 0 {
		errs = append(errs, errors.New("celebration delay must not be negative"))
	}
	if r.DoubleClickWindow <= 0 {
		errs = append(errs, errors.New("double-click window must be positive"))
	}
	if r.SkipBudget < 0 {
		errs = append(errs, errors.New("skip budget must not be negative"))
	}
	if r.TransitionDuration < 0 {
		errs = append(errs, errors.New("transition duration must not be negative"))
	}
	return errors.Join(errs...)
}
