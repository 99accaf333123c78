package model

import (
	"errors"
	"testing"
)

func TestParsePatternSeparators(t *testing.T) {
	for _, input := range []string{"1-2-3", "1 2 3", "1,2,3", " 1 - 2 , 3 "} {
		p, err := ParsePattern(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if !p.Equal(Pattern{1, 2, 3}) {
			t.Fatalf("parse %q: got %v", input, p)
		}
	}
}

func TestParsePatternRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "0", "11", "1-x", "-"} {
		if _, err := ParsePattern(input); !errors.Is(err, ErrInvalidPattern) {
			t.Fatalf("expected ErrInvalidPattern for %q, got %v", input, err)
		}
	}
}

func TestPatternEqual(t *testing.T) {
	if !(Pattern{1, 2}).Equal(Pattern{1, 2}) {
		t.Fatalf("expected equal patterns")
	}
	if (Pattern{1, 2}).Equal(Pattern{2, 1}) {
		t.Fatalf("order must matter")
	}
	if (Pattern{1}).Equal(Pattern{1, 1}) {
		t.Fatalf("length must matter")
	}
}

func TestPatternSetCloneIsDeep(t *testing.T) {
	set := PatternSet{Name: "a", Patterns: []Pattern{{1, 2}}}
	clone := set.Clone()
	clone.Patterns[0][0] = 9
	if set.Patterns[0][0] != 1 {
		t.Fatalf("clone shares pattern storage")
	}
}

func TestValidateDefaults(t *testing.T) {
	if err := DefaultTrainingConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRanges(t *testing.T) {
	cases := map[string]func(*TrainingConfig){
		"rounds":   func(c *TrainingConfig) { c.Rounds = 21 },
		"step":     func(c *TrainingConfig) { c.RoundSeconds = 40 },
		"rest":     func(c *TrainingConfig) { c.RestSeconds = 5 },
		"speed":    func(c *TrainingConfig) { c.PlaybackSpeed = 2.5 },
		"variance": func(c *TrainingConfig) { c.DelayVariance = -1 },
		"overlap":  func(c *TrainingConfig) { c.AudioOverlap = -10 },
	}
	for name, mutate := range cases {
		cfg := DefaultTrainingConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}
