// Package prefs persists the training configuration snapshot.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/store"
)

// snapshot mirrors model.TrainingConfig with optional fields so that
// missing keys fall back to defaults.
type snapshot struct {
	Rounds               *int     `json:"rounds,omitempty"`
	RoundSeconds         *int     `json:"roundSeconds,omitempty"`
	RoundMinutes         *float64 `json:"roundMinutes,omitempty"`
	RestSeconds          *int     `json:"restSeconds,omitempty"`
	SelectedPatternSetID *string  `json:"selectedPatternSetId,omitempty"`
	BaseDelay            *float64 `json:"baseDelay,omitempty"`
	DelayVariance        *float64 `json:"delayVariance,omitempty"`
	PlaybackSpeed        *float64 `json:"playbackSpeed,omitempty"`
	Voice                *string  `json:"voice,omitempty"`
	AudioOverlap         *int     `json:"audioOverlap,omitempty"`
}

// Load returns the persisted configuration merged over base.
// A missing snapshot returns base unchanged.
func Load(ctx context.Context, kv store.KV, base model.TrainingConfig) (model.TrainingConfig, error) {
	data, err := kv.Load(ctx, store.KeyConfig)
	if errors.Is(err, store.ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return base, err
	}
	return Decode(data, base)
}

// Decode merges a JSON snapshot over base. Legacy roundMinutes values are
// converted to seconds when roundSeconds is absent.
func Decode(data []byte, base model.TrainingConfig) (model.TrainingConfig, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return base, fmt.Errorf("failed to decode config snapshot: %w", err)
	}
	cfg := base
	if snap.Rounds != nil {
		cfg.Rounds = *snap.Rounds
	}
	if snap.RoundSeconds != nil {
		cfg.RoundSeconds = *snap.RoundSeconds
	} else if snap.RoundMinutes != nil {
		cfg.RoundSeconds = int(math.Round(*snap.RoundMinutes * 60))
	}
	if snap.RestSeconds != nil {
		cfg.RestSeconds = *snap.RestSeconds
	}
	if snap.SelectedPatternSetID != nil {
		cfg.SelectedPatternSetID = *snap.SelectedPatternSetID
	}
	if snap.BaseDelay != nil {
		cfg.BaseDelay = *snap.BaseDelay
	}
	if snap.DelayVariance != nil {
		cfg.DelayVariance = *snap.DelayVariance
	}
	if snap.PlaybackSpeed != nil {
		cfg.PlaybackSpeed = *snap.PlaybackSpeed
	}
	if snap.Voice != nil {
		cfg.Voice = *snap.Voice
	}
	if snap.AudioOverlap != nil {
		cfg.AudioOverlap = *snap.AudioOverlap
	}
	return cfg, nil
}

// Save writes cfg as the configuration snapshot.
func Save(ctx context.Context, kv store.KV, cfg model.TrainingConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config snapshot: %w", err)
	}
	return kv.Save(ctx, store.KeyConfig, data)
}
