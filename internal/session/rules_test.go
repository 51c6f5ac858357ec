package session

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultRules_Valid(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("DefaultRules().Validate() = %v", err)
	}
}

func TestDefaultRules_Levels(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		d        Difficulty
		duration time.Duration
		conf     float64
		poolLen  int
	}{
		{Easy, 60 * time.Second, 0.40, 3},
		{Normal, 45 * time.Second, 0.50, 10},
		{Hard, 30 * time.Second, 0.65, 14},
	}

	for _, tt := range tests {
		lvl := rules.Level(tt.d)
		if lvl.Duration != tt.duration || lvl.MinConfidence != tt.conf || len(lvl.Pool) != tt.poolLen {
			t.Errorf("%v = (%v, %.2f, %d), want (%v, %.2f, %d)",
				tt.d, lvl.Duration, lvl.MinConfidence, len(lvl.Pool), tt.duration, tt.conf, tt.poolLen)
		}
	}
}

func TestRules_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Rules)
		wantErr string
	}{
		{"missing level", func(r *Rules) { delete(r.Levels, Easy) }, "easy: level not configured"},
		{"zero duration", func(r *Rules) {
			lvl := r.Levels[Normal]
			lvl.Duration = 0
			r.Levels[Normal] = lvl
		}, "duration must be positive"},
		{"confidence above one", func(r *Rules) {
			lvl := r.Levels[Hard]
			lvl.MinConfidence = 1.2
			r.Levels[Hard] = lvl
		}, "outside [0,1]"},
		{"empty pool", func(r *Rules) {
			lvl := r.Levels[Easy]
			lvl.Pool = nil
			r.Levels[Easy] = lvl
		}, "object pool is empty"},
		{"duplicate label", func(r *Rules) {
			lvl := r.Levels[Easy]
			lvl.Pool = []string{"book", "book"}
			r.Levels[Easy] = lvl
		}, "duplicate label"},
		{"bad default", func(r *Rules) { r.DefaultDifficulty = Difficulty(9) }, "default difficulty"},
		{"no double click window", func(r *Rules) { r.DoubleClickWindow = 0 }, "double-click window"},
		{"negative skips", func(r *Rules) { r.SkipBudget = -1 }, "skip budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRules()
			tt.mutate(&rules)

			err := rules.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	for _, d := range Difficulties {
		got, err := ParseDifficulty(d.String())
		if err != nil || got != d {
			t.Errorf("ParseDifficulty(%q) = (%v, %v)", d.String(), got, err)
		}
	}

	if _, err := ParseDifficulty("nightmare"); err == nil {
		t.Error("expected error for unknown difficulty")
	}
}
