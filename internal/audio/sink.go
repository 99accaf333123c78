package audio

import (
	"log/slog"
	"sync"
	"time"
)

// Handle controls one sounding clip.
type Handle interface {
	// Stop silences the clip. It is safe to call more than once.
	Stop()
}

// Sink plays clips. Play must not block for the length of the clip.
type Sink interface {
	Play(clip *Clip, rate float64) (Handle, error)
}

type nopHandle struct{}

func (nopHandle) Stop() {}

// NullSink discards audio and logs each play at debug level.
type NullSink struct {
	Logger *slog.Logger
}

// Play implements Sink.
func (s NullSink) Play(clip *Clip, rate float64) (Handle, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("audio muted", slog.String("clip", clip.Name), slog.Float64("rate", rate))
	return nopHandle{}, nil
}

// Play is one entry recorded by RecordingSink.
type Play struct {
	Clip    string
	Rate    float64
	At      time.Time
	Stopped bool
}

// RecordingSink records plays for tests. Now supplies timestamps.
type RecordingSink struct {
	mu    sync.Mutex
	Now   func() time.Time
	Err   map[string]error
	plays []*Play
}

// Play implements Sink. Clips named in Err fail with that error.
func (s *RecordingSink) Play(clip *Clip, rate float64) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.Err[clip.Name]; ok {
		return nil, err
	}
	p := &Play{Clip: clip.Name, Rate: rate}
	if s.Now != nil {
		p.At = s.Now()
	}
	s.plays = append(s.plays, p)
	return &recordingHandle{sink: s, play: p}, nil
}

// Plays returns copies of all recorded plays.
func (s *RecordingSink) Plays() []Play {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Play, len(s.plays))
	for i, p := range s.plays {
		out[i] = *p
	}
	return out
}

type recordingHandle struct {
	sink *RecordingSink
	play *Play
}

func (h *recordingHandle) Stop() {
	h.sink.mu.Lock()
	h.play.Stopped = true
	h.sink.mu.Unlock()
}
