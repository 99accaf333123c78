package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/punchcall/internal/audio"
	"github.com/verte-zerg/punchcall/internal/clock"
)

type recordingMirror struct {
	kinds []Kind
}

func (m *recordingMirror) Mirror(kind Kind, _ []audio.Tone) {
	m.kinds = append(m.kinds, kind)
}

func newPlayer(t *testing.T, opts ...Option) (*Player, *clock.Fake, *audio.RecordingSink) {
	t.Helper()
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := &audio.RecordingSink{Now: clk.Now}
	return New(clk, sink, opts...), clk, sink
}

func TestSequenceLengths(t *testing.T) {
	p, _, _ := newPlayer(t)
	start := p.Length(Start)
	end := p.Length(End)
	if start != 1100*time.Millisecond {
		t.Fatalf("expected start sequence of 1.1s, got %v", start)
	}
	if end != 1600*time.Millisecond {
		t.Fatalf("expected end sequence of 1.6s, got %v", end)
	}
	if start >= 2500*time.Millisecond || end >= 2500*time.Millisecond {
		t.Fatalf("sequences must stay under 2.5s")
	}
}

func TestBusyGuard(t *testing.T) {
	p, clk, sink := newPlayer(t)
	if !p.PlayStart() {
		t.Fatalf("expected first start to play")
	}
	if p.PlayStart() {
		t.Fatalf("expected second start to be ignored while sounding")
	}
	if !p.PlayEnd() {
		t.Fatalf("expected end to play independently")
	}
	if len(sink.Plays()) != 2 {
		t.Fatalf("expected 2 plays, got %d", len(sink.Plays()))
	}

	clk.Advance(p.Length(Start))
	if p.Busy(Start) {
		t.Fatalf("expected start to be idle after its length")
	}
	if !p.Busy(End) {
		t.Fatalf("expected end still sounding")
	}
	if !p.PlayStart() {
		t.Fatalf("expected start to play again")
	}
}

func TestSinkErrorStillGuards(t *testing.T) {
	p, clk, sink := newPlayer(t)
	sink.Err = map[string]error{"signal:end": errors.New("no device")}
	if !p.PlayEnd() {
		t.Fatalf("expected play attempt")
	}
	if p.PlayEnd() {
		t.Fatalf("expected busy guard to hold")
	}
	clk.Advance(2 * time.Second)
	if p.Busy(End) {
		t.Fatalf("expected guard cleared")
	}
}

func TestMirror(t *testing.T) {
	mirror := &recordingMirror{}
	p, _, _ := newPlayer(t, WithMirror(mirror))
	p.PlayStart()
	p.PlayStart()
	p.PlayEnd()
	if len(mirror.kinds) != 2 || mirror.kinds[0] != Start || mirror.kinds[1] != End {
		t.Fatalf("unexpected mirrored kinds %v", mirror.kinds)
	}
}

func TestNoteForFreq(t *testing.T) {
	cases := map[float64]uint8{440: 69, 880: 81, 660: 76, 990: 83, 0: 0}
	for freq, want := range cases {
		if got := NoteForFreq(freq); got != want {
			t.Fatalf("freq %v: expected %d, got %d", freq, want, got)
		}
	}
}
