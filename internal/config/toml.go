// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/punchcall/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Training TrainingConfig `toml:"training"`
	Audio    AudioConfig    `toml:"audio"`
	Store    StoreConfig    `toml:"store"`
	Remote   RemoteConfig   `toml:"remote"`
	Log      LogConfig      `toml:"log"`
}

// TrainingConfig maps session defaults. Keys mirror the CLI flags.
type TrainingConfig struct {
	Rounds        *int     `toml:"rounds"`
	RoundSeconds  *int     `toml:"round-seconds"`
	RestSeconds   *int     `toml:"rest-seconds"`
	Set           *string  `toml:"set"`
	BaseDelay     *float64 `toml:"base-delay"`
	DelayVariance *float64 `toml:"delay-variance"`
	Speed         *float64 `toml:"speed"`
	Voice         *string  `toml:"voice"`
	Overlap       *int     `toml:"overlap"`
}

// Apply overlays the values set in t onto cfg. Set holds a set id or name.
func (t TrainingConfig) Apply(cfg *model.TrainingConfig) {
	if t.Rounds != nil {
		cfg.Rounds = *t.Rounds
	}
	if t.RoundSeconds != nil {
		cfg.RoundSeconds = *t.RoundSeconds
	}
	if t.RestSeconds != nil {
		cfg.RestSeconds = *t.RestSeconds
	}
	if t.Set != nil && *t.Set != "" {
		cfg.SelectedPatternSetID = *t.Set
	}
	if t.BaseDelay != nil {
		cfg.BaseDelay = *t.BaseDelay
	}
	if t.DelayVariance != nil {
		cfg.DelayVariance = *t.DelayVariance
	}
	if t.Speed != nil {
		cfg.PlaybackSpeed = *t.Speed
	}
	if t.Voice != nil && *t.Voice != "" {
		cfg.Voice = *t.Voice
	}
	if t.Overlap != nil {
		cfg.AudioOverlap = *t.Overlap
	}
}

// AudioConfig maps audio output settings.
type AudioConfig struct {
	Backend   *string `toml:"backend"`
	VoicesDir *string `toml:"voices-dir"`
	MIDIPort  *string `toml:"midi-port"`
}

// StoreConfig maps persistence settings.
type StoreConfig struct {
	Backend *string `toml:"backend"`
	Path    *string `toml:"path"`
}

// RemoteConfig maps the HTTP control surface.
type RemoteConfig struct {
	Listen *string `toml:"listen"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// Audio backends.
const (
	AudioPulse = "pulse"
	AudioNull  = "null"
)

// DefaultListen is the address used by the serve command.
const DefaultListen = "127.0.0.1:8765"

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// AudioBackend returns the configured audio backend.
func (c FileConfig) AudioBackend() string {
	if c.Audio.Backend != nil && *c.Audio.Backend != "" {
		return *c.Audio.Backend
	}
	return AudioPulse
}

// VoicesDir returns the configured voice pack directory.
func (c FileConfig) VoicesDir() string {
	if c.Audio.VoicesDir != nil && *c.Audio.VoicesDir != "" {
		return *c.Audio.VoicesDir
	}
	return DefaultVoicesDir()
}

// MIDIPort returns the configured MIDI output port, or "".
func (c FileConfig) MIDIPort() string {
	if c.Audio.MIDIPort != nil {
		return *c.Audio.MIDIPort
	}
	return ""
}

// StoreBackend returns the configured store backend.
func (c FileConfig) StoreBackend() string {
	if c.Store.Backend != nil && *c.Store.Backend != "" {
		return *c.Store.Backend
	}
	return "sqlite"
}

// StorePath returns the configured store path for the active backend.
func (c FileConfig) StorePath() string {
	if c.Store.Path != nil && *c.Store.Path != "" {
		return *c.Store.Path
	}
	if c.StoreBackend() == "badger" {
		return DefaultBadgerDir()
	}
	return DefaultDBPath()
}

// Listen returns the remote listen address.
func (c FileConfig) Listen() string {
	if c.Remote.Listen != nil && *c.Remote.Listen != "" {
		return *c.Remote.Listen
	}
	return DefaultListen
}

// LogLevel returns the configured log level name.
func (c FileConfig) LogLevel() string {
	if c.Log.Level != nil && *c.Log.Level != "" {
		return *c.Log.Level
	}
	return "info"
}

// LogFile returns the configured log file path.
func (c FileConfig) LogFile() string {
	if c.Log.File != nil && *c.Log.File != "" {
		return *c.Log.File
	}
	return DefaultLogPath()
}
