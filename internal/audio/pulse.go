package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

const pulseTail = 200 * time.Millisecond

// PulseSink plays clips through one PulseAudio client owned for the process lifetime.
type PulseSink struct {
	client *pulse.Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewPulseSink connects to the PulseAudio (or PipeWire-pulse) server.
func NewPulseSink(logger *slog.Logger) (*PulseSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pulseaudio: %w", err)
	}
	return &PulseSink{client: client, logger: logger}, nil
}

// Play starts a playback stream. The playback sample rate is scaled by rate,
// so speed changes shift pitch.
func (s *PulseSink) Play(clip *Clip, rate float64) (Handle, error) {
	if clip == nil || len(clip.Samples) == 0 {
		return nil, fmt.Errorf("empty clip")
	}
	if rate <= 0 {
		rate = 1
	}
	samples := clip.Samples
	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := s.client.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(int(float64(clip.SampleRate)*rate)),
		pulse.PlaybackLatency(0.05),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open playback stream: %w", err)
	}
	stream.Start()

	h := &pulseHandle{stream: stream, stop: make(chan struct{})}
	length := ScaledDuration(clip.Duration(), rate) + pulseTail
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(length)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-h.stop:
		}
		h.close()
		if err := stream.Error(); err != nil {
			s.logger.Warn("playback stream error", slog.String("clip", clip.Name), slog.Any("error", err))
		}
	}()
	return h, nil
}

// Close waits for sounding clips and disconnects.
func (s *PulseSink) Close() error {
	s.wg.Wait()
	s.client.Close()
	return nil
}

type pulseHandle struct {
	stream   *pulse.PlaybackStream
	stop     chan struct{}
	stopOnce sync.Once
	once     sync.Once
}

func (h *pulseHandle) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

func (h *pulseHandle) close() {
	h.once.Do(func() {
		h.stream.Stop()
		h.stream.Close()
	})
}
