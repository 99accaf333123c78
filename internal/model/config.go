package model

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig reports a TrainingConfig field outside its allowed range.
var ErrInvalidConfig = errors.New("invalid training config")

// Training config bounds.
const (
	MinRounds       = 1
	MaxRounds       = 20
	MinRoundSeconds = 30
	MaxRoundSeconds = 300
	RoundStep       = 15
	MinRestSeconds  = 10
	MaxRestSeconds  = 120
	MinSpeed        = 0.5
	MaxSpeed        = 2.0
)

// DefaultVoice is the synthesized voice that needs no asset files.
const DefaultVoice = "tone"

// TrainingConfig defines a session.
type TrainingConfig struct {
	Rounds               int     `json:"rounds"`
	RoundSeconds         int     `json:"roundSeconds"`
	RestSeconds          int     `json:"restSeconds"`
	SelectedPatternSetID string  `json:"selectedPatternSetId"`
	BaseDelay            float64 `json:"baseDelay"`
	DelayVariance        float64 `json:"delayVariance"`
	PlaybackSpeed        float64 `json:"playbackSpeed"`
	Voice                string  `json:"voice"`
	AudioOverlap         int     `json:"audioOverlap"`
}

// DefaultTrainingConfig returns built-in defaults.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Rounds:               3,
		RoundSeconds:         180,
		RestSeconds:          60,
		SelectedPatternSetID: "default-basic-1",
		BaseDelay:            2.0,
		DelayVariance:        1.5,
		PlaybackSpeed:        1.0,
		Voice:                DefaultVoice,
		AudioOverlap:         0,
	}
}

// Validate checks every field against its range.
func (c TrainingConfig) Validate() error {
	if c.Rounds < MinRounds || c.Rounds > MaxRounds {
		return fmt.Errorf("%w: rounds must be between %d and %d", ErrInvalidConfig, MinRounds, MaxRounds)
	}
	if c.RoundSeconds < MinRoundSeconds || c.RoundSeconds > MaxRoundSeconds {
		return fmt.Errorf("%w: round length must be between %d and %d seconds", ErrInvalidConfig, MinRoundSeconds, MaxRoundSeconds)
	}
	if (c.RoundSeconds-MinRoundSeconds)%RoundStep != 0 {
		return fmt.Errorf("%w: round length must be a multiple of %d seconds", ErrInvalidConfig, RoundStep)
	}
	if c.RestSeconds < MinRestSeconds || c.RestSeconds > MaxRestSeconds {
		return fmt.Errorf("%w: rest must be between %d and %d seconds", ErrInvalidConfig, MinRestSeconds, MaxRestSeconds)
	}
	if c.BaseDelay < 0 {
		return fmt.Errorf("%w: base delay must be >= 0", ErrInvalidConfig)
	}
	if c.DelayVariance < 0 {
		return fmt.Errorf("%w: delay variance must be >= 0", ErrInvalidConfig)
	}
	if c.PlaybackSpeed < MinSpeed || c.PlaybackSpeed > MaxSpeed {
		return fmt.Errorf("%w: playback speed must be between %.1f and %.1f", ErrInvalidConfig, MinSpeed, MaxSpeed)
	}
	if c.Voice == "" {
		return fmt.Errorf("%w: voice must not be empty", ErrInvalidConfig)
	}
	if c.AudioOverlap < 0 {
		return fmt.Errorf("%w: audio overlap must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// ClampSpeed limits a playback speed to the supported range.
func ClampSpeed(v float64) float64 {
	if v < MinSpeed {
		return MinSpeed
	}
	if v > MaxSpeed {
		return MaxSpeed
	}
	return v
}
