// Package session runs the interval-training state machine and schedules
// callouts and signals against it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/verte-zerg/punchcall/internal/clock"
	"github.com/verte-zerg/punchcall/internal/cue"
	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/signal"
)

// ErrInvalidConfiguration is returned by Start when a session cannot run.
var ErrInvalidConfiguration = errors.New("invalid session configuration")

const (
	// CountdownSeconds is the lead-in before the first round.
	CountdownSeconds = 3
	// EndSignalSeconds is the time left in a round when the end signal sounds.
	EndSignalSeconds = 5
	// StartSignalSeconds is the time left in a rest when the start signal sounds.
	StartSignalSeconds = 3
)

// Speaker plays callouts. Speak must not call back before returning.
type Speaker interface {
	Speak(req cue.Request, done func()) uint64
	Cancel()
}

// Signaler plays the phase-transition beeps.
type Signaler interface {
	PlayStart() bool
	PlayEnd() bool
}

// Engine is the session state machine. All methods are safe for concurrent use.
type Engine struct {
	clk     clock.Clock
	speaker Speaker
	signals Signaler
	logger  *slog.Logger
	tracer  trace.Tracer
	rnd     *rand.Rand

	mu            sync.Mutex
	cfg           model.TrainingConfig
	set           model.PatternSet
	state         model.SessionState
	arm           clock.Timer
	armGen        uint64
	calloutGen    uint64
	endSignaled   bool
	startSignaled bool
	callouts      int
	span          trace.Span
	events        []chan Event
	closed        bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRand sets the random source used for delays and pattern picks.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Engine) {
		e.rnd = rnd
	}
}

// WithTracer sets the tracer used for session spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// New creates an Engine in the setup phase.
func New(clk clock.Clock, speaker Speaker, signals Signaler, cfg model.TrainingConfig, opts ...Option) *Engine {
	e := &Engine{
		clk:     clk,
		speaker: speaker,
		signals: signals,
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/verte-zerg/punchcall/internal/session"),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resetStateLocked()
	return e
}

// Subscribe registers a new observer channel. Events are dropped for
// observers whose buffer is full.
func (e *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		close(ch)
		return ch
	}
	e.events = append(e.events, ch)
	return ch
}

// Unsubscribe removes and closes an observer channel.
func (e *Engine) Unsubscribe(sub <-chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, ch := range e.events {
		if ch == sub {
			e.events = append(e.events[:i], e.events[i+1:]...)
			close(ch)
			return
		}
	}
}

// Configure replaces the configuration used while no session runs.
func (e *Engine) Configure(cfg model.TrainingConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	if e.state.Phase == model.PhaseSetup {
		e.resetStateLocked()
	}
}

// Start begins a session with cfg and set. Nothing changes when it fails.
func (e *Engine) Start(cfg model.TrainingConfig, set model.PatternSet) error {
	if cfg.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be at least 1, got %d", ErrInvalidConfiguration, cfg.Rounds)
	}
	if len(set.Patterns) == 0 {
		return fmt.Errorf("%w: pattern set %q has no patterns", ErrInvalidConfiguration, set.Name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelSessionLocked()
	e.cfg = cfg
	e.set = set.Clone()
	e.callouts = 0
	e.state = model.SessionState{
		Phase:                model.PhaseCountdown,
		CurrentRound:         1,
		TimeRemainingSeconds: CountdownSeconds,
	}
	_, e.span = e.tracer.Start(context.Background(), "session",
		trace.WithAttributes(
			attribute.Int("rounds", cfg.Rounds),
			attribute.Int("round_seconds", cfg.RoundSeconds),
			attribute.Int("rest_seconds", cfg.RestSeconds),
			attribute.String("pattern_set", set.Name),
		),
	)
	e.logger.Info("session started",
		slog.Int("rounds", cfg.Rounds),
		slog.Int("round_seconds", cfg.RoundSeconds),
		slog.Int("rest_seconds", cfg.RestSeconds),
		slog.String("set", set.Name),
	)
	e.emitLocked(Event{Type: EventPhase})
	e.playSignalLocked(signal.Start)
	return nil
}

// Tick advances the countdown by one second.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.IsPaused {
		return
	}
	switch e.state.Phase {
	case model.PhaseCountdown, model.PhaseRound, model.PhaseRest:
	default:
		return
	}

	if e.state.TimeRemainingSeconds > 0 {
		e.state.TimeRemainingSeconds--
	}
	if e.state.TimeRemainingSeconds > 0 {
		e.emitLocked(Event{Type: EventTick})
		e.maybeSignalLocked()
		return
	}

	switch e.state.Phase {
	case model.PhaseCountdown:
		e.enterRoundLocked()
	case model.PhaseRound:
		if e.state.CurrentRound < e.cfg.Rounds {
			e.enterRestLocked()
		} else {
			e.completeLocked()
		}
	case model.PhaseRest:
		e.state.CurrentRound++
		e.enterRoundLocked()
	}
}

// Pause freezes the countdown and silences the current callout.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.IsPaused || !e.runningLocked() {
		return
	}
	e.state.IsPaused = true
	e.calloutGen++
	e.speaker.Cancel()
	e.emitLocked(Event{Type: EventPaused})
}

// Resume unfreezes the countdown. In a round, callouts resume after a fresh delay.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.IsPaused {
		return
	}
	e.state.IsPaused = false
	if e.state.Phase == model.PhaseRound && e.state.CurrentPattern != nil {
		e.scheduleNextLocked()
	}
	e.emitLocked(Event{Type: EventResumed})
}

// Stop cancels everything and returns to setup.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	wasRunning := e.state.Phase != model.PhaseSetup
	e.cancelSessionLocked()
	e.resetStateLocked()
	if wasRunning {
		e.logger.Info("session stopped", slog.Int("callouts", e.callouts))
	}
	e.emitLocked(Event{Type: EventStopped})
}

// SetPlaybackSpeed changes the speed used by the next callout.
func (e *Engine) SetPlaybackSpeed(v float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.PlaybackSpeed = model.ClampSpeed(v)
	e.emitLocked(Event{Type: EventSpeed})
	return e.cfg.PlaybackSpeed
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		State:    e.state.Clone(),
		Config:   e.cfg,
		SetID:    e.set.ID,
		SetName:  e.set.Name,
		Callouts: e.callouts,
	}
}

// Run calls Tick every interval until ctx is done.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Close stops the session and closes every observer channel.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.stopLocked()
	e.closed = true
	for _, ch := range e.events {
		close(ch)
	}
	e.events = nil
}

func (e *Engine) runningLocked() bool {
	switch e.state.Phase {
	case model.PhaseCountdown, model.PhaseRound, model.PhaseRest:
		return true
	}
	return false
}

func (e *Engine) resetStateLocked() {
	e.state = model.SessionState{
		Phase:                model.PhaseSetup,
		CurrentRound:         1,
		TimeRemainingSeconds: e.cfg.RoundSeconds,
	}
	e.endSignaled = false
	e.startSignaled = false
}

// cancelSessionLocked invalidates every pending arm and callout and ends the span.
func (e *Engine) cancelSessionLocked() {
	e.stopArmLocked()
	e.calloutGen++
	e.speaker.Cancel()
	if e.span != nil {
		e.span.End()
		e.span = nil
	}
}

func (e *Engine) stopArmLocked() {
	e.armGen++
	if e.arm != nil {
		e.arm.Stop()
		e.arm = nil
	}
}

func (e *Engine) enterRoundLocked() {
	e.state.Phase = model.PhaseRound
	e.state.TimeRemainingSeconds = e.cfg.RoundSeconds
	e.endSignaled = false
	e.startSignaled = false
	e.phaseEventLocked()
	e.maybeSignalLocked()
	e.announceLocked()
}

func (e *Engine) enterRestLocked() {
	e.stopArmLocked()
	e.calloutGen++
	e.state.Phase = model.PhaseRest
	e.state.TimeRemainingSeconds = e.cfg.RestSeconds
	e.state.CurrentPattern = nil
	e.endSignaled = false
	e.startSignaled = false
	e.phaseEventLocked()
	e.maybeSignalLocked()
}

func (e *Engine) completeLocked() {
	e.stopArmLocked()
	e.calloutGen++
	e.state.Phase = model.PhaseComplete
	e.state.TimeRemainingSeconds = 0
	e.state.CurrentPattern = nil
	e.phaseEventLocked()
	e.logger.Info("session complete", slog.Int("rounds", e.cfg.Rounds), slog.Int("callouts", e.callouts))
	if e.span != nil {
		e.span.SetAttributes(attribute.Int("callouts", e.callouts))
		e.span.End()
		e.span = nil
	}
}

func (e *Engine) phaseEventLocked() {
	if e.span != nil {
		e.span.AddEvent("phase", trace.WithAttributes(
			attribute.String("phase", string(e.state.Phase)),
			attribute.Int("round", e.state.CurrentRound),
		))
	}
	e.logger.Debug("phase entered",
		slog.String("phase", string(e.state.Phase)),
		slog.Int("round", e.state.CurrentRound),
	)
	e.emitLocked(Event{Type: EventPhase})
}

// maybeSignalLocked sounds the phase signal once per phase entry, as soon as
// the remaining time reaches its threshold.
func (e *Engine) maybeSignalLocked() {
	switch e.state.Phase {
	case model.PhaseRound:
		if !e.endSignaled && e.state.TimeRemainingSeconds <= EndSignalSeconds {
			e.endSignaled = true
			e.playSignalLocked(signal.End)
		}
	case model.PhaseRest:
		if !e.startSignaled && e.state.TimeRemainingSeconds <= StartSignalSeconds {
			e.startSignaled = true
			e.playSignalLocked(signal.Start)
		}
	}
}

func (e *Engine) playSignalLocked(kind signal.Kind) {
	var played bool
	if kind == signal.Start {
		played = e.signals.PlayStart()
	} else {
		played = e.signals.PlayEnd()
	}
	e.emitLocked(Event{Type: EventSignal, Signal: kind, Played: played})
}

// announceLocked picks the next pattern and speaks it. The next callout is
// armed when the speech completes.
func (e *Engine) announceLocked() {
	pattern := NextPattern(e.rnd, e.set.Patterns, e.state.CurrentPattern)
	e.state.CurrentPattern = pattern
	e.callouts++
	e.calloutGen++
	gen := e.calloutGen
	e.speaker.Speak(cue.Request{
		Pattern:   pattern.Clone(),
		Voice:     e.cfg.Voice,
		Speed:     e.cfg.PlaybackSpeed,
		OverlapMs: e.cfg.AudioOverlap,
	}, func() {
		e.calloutDone(gen)
	})
	e.logger.Debug("callout", slog.String("pattern", pattern.String()))
	e.emitLocked(Event{Type: EventCallout, Pattern: pattern.Clone()})
}

func (e *Engine) calloutDone(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.calloutGen || e.state.IsPaused || e.state.Phase != model.PhaseRound {
		return
	}
	e.scheduleNextLocked()
}

// scheduleNextLocked arms the next callout after a random delay, replacing
// any pending arm.
func (e *Engine) scheduleNextLocked() {
	if e.state.IsPaused {
		return
	}
	e.stopArmLocked()
	gen := e.armGen
	delay := e.nextDelayLocked()
	e.arm = e.clk.AfterFunc(delay, func() {
		e.fireArm(gen)
	})
}

func (e *Engine) fireArm(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.armGen {
		return
	}
	e.arm = nil
	if e.state.IsPaused || e.state.Phase != model.PhaseRound {
		return
	}
	e.announceLocked()
}

func (e *Engine) nextDelayLocked() time.Duration {
	seconds := e.cfg.BaseDelay
	if seconds < 0 {
		seconds = 0
	}
	if e.cfg.DelayVariance > 0 {
		seconds += e.rnd.Float64() * e.cfg.DelayVariance
	}
	return time.Duration(seconds * float64(time.Second))
}

func (e *Engine) emitLocked(event Event) {
	event.State = e.state.Clone()
	if event.At.IsZero() {
		event.At = e.clk.Now()
	}
	for _, ch := range e.events {
		select {
		case ch <- event:
		default:
		}
	}
}

// NextPattern picks a pattern uniformly at random, excluding prev when
// another candidate exists.
func NextPattern(rnd *rand.Rand, patterns []model.Pattern, prev model.Pattern) model.Pattern {
	if len(patterns) == 0 {
		return nil
	}
	candidates := make([]model.Pattern, 0, len(patterns))
	for _, p := range patterns {
		if prev != nil && p.Equal(prev) {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		candidates = patterns
	}
	return candidates[rnd.Intn(len(candidates))].Clone()
}
