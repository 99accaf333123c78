// Package cue plays the audio units of a callout pattern.
package cue

import (
	"log/slog"
	"sync"
	"time"

	"github.com/verte-zerg/punchcall/internal/audio"
	"github.com/verte-zerg/punchcall/internal/clock"
	"github.com/verte-zerg/punchcall/internal/model"
)

// Stagger separates unit starts in simultaneous mode.
const Stagger = 80 * time.Millisecond

// simultaneousOverlapMs switches multi-unit patterns to simultaneous mode.
const simultaneousOverlapMs = 1000

// ClipSource resolves the clip for a voice and unit.
type ClipSource interface {
	Clip(voice string, unit int) (*audio.Clip, error)
}

// Request describes one callout.
type Request struct {
	Pattern   model.Pattern
	Voice     string
	Speed     float64
	OverlapMs int
}

// Mode is how the units of a request are laid out in time.
type Mode int

const (
	Sequential Mode = iota
	Overlapping
	Simultaneous
)

func (m Mode) String() string {
	switch m {
	case Overlapping:
		return "overlapping"
	case Simultaneous:
		return "simultaneous"
	default:
		return "sequential"
	}
}

// ModeFor returns the playback mode used for req.
func ModeFor(req Request) Mode {
	switch {
	case req.OverlapMs >= simultaneousOverlapMs && len(req.Pattern) > 1:
		return Simultaneous
	case req.OverlapMs > 0 && req.OverlapMs < simultaneousOverlapMs:
		return Overlapping
	default:
		return Sequential
	}
}

// Player speaks at most one request at a time. A new Speak supersedes the
// previous one and silences its audio.
type Player struct {
	clk    clock.Clock
	sink   audio.Sink
	clips  ClipSource
	logger *slog.Logger

	mu    sync.Mutex
	epoch uint64
	cur   *speak
}

type speak struct {
	epoch   uint64
	req     Request
	mode    Mode
	rate    float64
	pending int
	done    func()
	timers  []clock.Timer
	handles []audio.Handle
}

// New returns a Player. A nil logger uses slog.Default().
func New(clk clock.Clock, sink audio.Sink, clips ClipSource, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{clk: clk, sink: sink, clips: clips, logger: logger}
}

// Speak starts playing req and returns its epoch. done runs once every unit
// has finished, unless the request is superseded or cancelled first. No
// callback runs before Speak returns.
func (p *Player) Speak(req Request, done func()) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
	p.epoch++
	rate := req.Speed
	if rate <= 0 {
		rate = 1
	}
	s := &speak{
		epoch:   p.epoch,
		req:     Request{Pattern: req.Pattern.Clone(), Voice: req.Voice, Speed: rate, OverlapMs: req.OverlapMs},
		mode:    ModeFor(req),
		rate:    rate,
		pending: len(req.Pattern),
		done:    done,
	}
	p.cur = s

	if s.pending == 0 {
		p.afterLocked(s, 0, func() {
			p.mu.Lock()
			fn := p.completeLocked(s)
			p.mu.Unlock()
			if fn != nil {
				fn()
			}
		})
		return s.epoch
	}
	if s.mode == Simultaneous {
		for i := range s.req.Pattern {
			idx := i
			p.afterLocked(s, time.Duration(i)*Stagger, func() { p.startUnit(s, idx) })
		}
		return s.epoch
	}
	p.afterLocked(s, 0, func() { p.startUnit(s, 0) })
	return s.epoch
}

// Cancel silences the current request. Its done callback never runs.
func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
}

// Active reports whether a request is in flight.
func (p *Player) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur != nil
}

// Epoch returns the epoch of the most recent Speak or Cancel.
func (p *Player) Epoch() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epoch
}

func (p *Player) cancelLocked() {
	s := p.cur
	if s == nil {
		return
	}
	p.epoch++
	p.cur = nil
	for _, t := range s.timers {
		t.Stop()
	}
	for _, h := range s.handles {
		h.Stop()
	}
}

func (p *Player) afterLocked(s *speak, d time.Duration, fn func()) {
	s.timers = append(s.timers, p.clk.AfterFunc(d, fn))
}

func (p *Player) startUnit(s *speak, idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur != s {
		return
	}
	p.startUnitLocked(s, idx)
}

func (p *Player) startUnitLocked(s *speak, idx int) {
	unit := s.req.Pattern[idx]
	length := p.playLocked(s, unit)
	p.afterLocked(s, length, func() { p.finishUnit(s, idx) })
	if s.mode == Overlapping && idx+1 < len(s.req.Pattern) {
		next := length - time.Duration(s.req.OverlapMs)*time.Millisecond
		if next < 0 {
			next = 0
		}
		p.afterLocked(s, next, func() { p.startUnit(s, idx+1) })
	}
}

// playLocked starts one unit and returns how long it sounds. Failed units
// report zero so they finish immediately.
func (p *Player) playLocked(s *speak, unit int) time.Duration {
	clip, err := p.clips.Clip(s.req.Voice, unit)
	if err != nil {
		p.logger.Warn("cue unit unavailable", slog.Int("unit", unit), slog.String("voice", s.req.Voice), slog.Any("error", err))
		return 0
	}
	h, err := p.sink.Play(clip, s.rate)
	if err != nil {
		p.logger.Warn("cue unit failed to play", slog.Int("unit", unit), slog.String("clip", clip.Name), slog.Any("error", err))
		return 0
	}
	s.handles = append(s.handles, h)
	return audio.ScaledDuration(clip.Duration(), s.rate)
}

func (p *Player) finishUnit(s *speak, idx int) {
	p.mu.Lock()
	if p.cur != s {
		p.mu.Unlock()
		return
	}
	s.pending--
	if s.mode == Sequential && idx+1 < len(s.req.Pattern) {
		p.startUnitLocked(s, idx+1)
	}
	fn := p.completeLocked(s)
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// completeLocked clears a finished request and returns its done callback.
func (p *Player) completeLocked(s *speak) func() {
	if p.cur != s || s.pending > 0 {
		return nil
	}
	p.cur = nil
	if s.done == nil {
		return func() {}
	}
	return s.done
}
