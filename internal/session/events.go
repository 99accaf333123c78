package session

import (
	"time"

	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/signal"
)

// EventType defines the type of engine event.
type EventType string

const (
	EventPhase   EventType = "phase"
	EventTick    EventType = "tick"
	EventCallout EventType = "callout"
	EventSignal  EventType = "signal"
	EventPaused  EventType = "paused"
	EventResumed EventType = "resumed"
	EventStopped EventType = "stopped"
	EventSpeed   EventType = "speed"
)

// Event is an engine update for observers.
type Event struct {
	Type    EventType
	State   model.SessionState
	Pattern model.Pattern
	Signal  signal.Kind
	// Played is false when a signal was skipped because it was already sounding.
	Played bool
	At     time.Time
}

// Snapshot is a copy of the engine state for rendering.
type Snapshot struct {
	State    model.SessionState   `json:"state"`
	Config   model.TrainingConfig `json:"config"`
	SetID    string               `json:"setId"`
	SetName  string               `json:"setName"`
	Callouts int                  `json:"callouts"`
}
