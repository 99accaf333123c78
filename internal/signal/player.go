// Package signal plays the synthesized phase-transition beeps.
package signal

import (
	"log/slog"
	"sync"
	"time"

	"github.com/verte-zerg/punchcall/internal/audio"
	"github.com/verte-zerg/punchcall/internal/clock"
)

// Kind names a beep sequence.
type Kind string

const (
	Start Kind = "start"
	End   Kind = "end"
)

const (
	lowFreq  = 660.0
	highFreq = 990.0
	volume   = 0.6
)

// Sequences returns the tones of each beep sequence.
func Sequences() map[Kind][]audio.Tone {
	return map[Kind][]audio.Tone{
		Start: {
			{Freq: lowFreq, Duration: 150 * time.Millisecond, Gap: 100 * time.Millisecond},
			{Freq: lowFreq, Duration: 150 * time.Millisecond, Gap: 100 * time.Millisecond},
			{Freq: highFreq, Duration: 600 * time.Millisecond},
		},
		End: {
			{Freq: lowFreq, Duration: 200 * time.Millisecond, Gap: 100 * time.Millisecond},
			{Freq: lowFreq, Duration: 200 * time.Millisecond, Gap: 100 * time.Millisecond},
			{Freq: lowFreq, Duration: 200 * time.Millisecond, Gap: 100 * time.Millisecond},
			{Freq: highFreq, Duration: 700 * time.Millisecond},
		},
	}
}

// Mirror receives every sequence that starts playing.
type Mirror interface {
	Mirror(kind Kind, tones []audio.Tone)
}

// Player plays start and end sequences. Each sequence plays at most once at
// a time; the two sequences are independent.
type Player struct {
	clk    clock.Clock
	sink   audio.Sink
	logger *slog.Logger
	mirror Mirror
	tones  map[Kind][]audio.Tone
	clips  map[Kind]*audio.Clip

	mu   sync.Mutex
	busy map[Kind]bool
}

// Option configures a Player.
type Option func(*Player)

// WithMirror forwards each played sequence to m.
func WithMirror(m Mirror) Option {
	return func(p *Player) {
		p.mirror = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		p.logger = logger
	}
}

// New renders both sequences and returns a Player.
func New(clk clock.Clock, sink audio.Sink, opts ...Option) *Player {
	p := &Player{
		clk:    clk,
		sink:   sink,
		logger: slog.Default(),
		tones:  Sequences(),
		clips:  make(map[Kind]*audio.Clip),
		busy:   make(map[Kind]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	for kind, tones := range p.tones {
		p.clips[kind] = audio.RenderSequence("signal:"+string(kind), tones, volume)
	}
	return p
}

// PlayStart plays the start sequence. It reports false if it is already sounding.
func (p *Player) PlayStart() bool {
	return p.Play(Start)
}

// PlayEnd plays the end sequence. It reports false if it is already sounding.
func (p *Player) PlayEnd() bool {
	return p.Play(End)
}

// Play plays the sequence for kind. It never blocks for the sequence length.
func (p *Player) Play(kind Kind) bool {
	clip, ok := p.clips[kind]
	if !ok {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy[kind] {
		return false
	}
	p.busy[kind] = true
	if _, err := p.sink.Play(clip, 1); err != nil {
		p.logger.Warn("signal failed to play", slog.String("kind", string(kind)), slog.Any("error", err))
	}
	if p.mirror != nil {
		p.mirror.Mirror(kind, p.tones[kind])
	}
	p.clk.AfterFunc(clip.Duration(), func() {
		p.mu.Lock()
		p.busy[kind] = false
		p.mu.Unlock()
	})
	return true
}

// Busy reports whether the sequence for kind is sounding.
func (p *Player) Busy(kind Kind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy[kind]
}

// Length returns how long the sequence for kind sounds.
func (p *Player) Length(kind Kind) time.Duration {
	if clip, ok := p.clips[kind]; ok {
		return clip.Duration()
	}
	return 0
}
