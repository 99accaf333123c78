//go:build midi

package signal

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/verte-zerg/punchcall/internal/audio"
)

const (
	midiChannel  = 9
	midiVelocity = 100
)

// MIDIOutput mirrors beep sequences as notes on a MIDI output port.
type MIDIOutput struct {
	port drivers.Out
	send func(msg midi.Message) error
	wg   sync.WaitGroup
}

// NewMIDIOutput opens the output port whose name contains name.
func NewMIDIOutput(name string) (*MIDIOutput, error) {
	out, err := midi.FindOutPort(name)
	if err != nil {
		slog.Error("midi port not found", slog.String("port", name), slog.Any("error", err))
		return nil, fmt.Errorf("failed to open midi port %q: %w", name, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open midi port %q: %w", name, err)
	}
	return &MIDIOutput{port: out, send: send}, nil
}

// Mirror implements Mirror. Notes are sent from a goroutine so the caller
// never waits for the sequence.
func (m *MIDIOutput) Mirror(kind Kind, tones []audio.Tone) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for _, tone := range tones {
			note := NoteForFreq(tone.Freq)
			if err := m.send(midi.NoteOn(midiChannel, note, midiVelocity)); err != nil {
				slog.Warn("midi note on failed", slog.String("kind", string(kind)), slog.Any("error", err))
			}
			time.Sleep(tone.Duration)
			if err := m.send(midi.NoteOff(midiChannel, note)); err != nil {
				slog.Warn("midi note off failed", slog.String("kind", string(kind)), slog.Any("error", err))
				m.flush()
			}
			time.Sleep(tone.Gap)
		}
	}()
}

func (m *MIDIOutput) flush() {
	if err := m.send(midi.ControlChange(midiChannel, midi.AllNotesOff, midi.Off)); err != nil {
		slog.Warn("midi flush failed", slog.Any("error", err))
	}
}

// Close waits for in-flight sequences and closes the port.
func (m *MIDIOutput) Close() error {
	m.wg.Wait()
	if m.port != nil {
		if err := m.port.Close(); err != nil {
			return err
		}
	}
	midi.CloseDriver()
	return nil
}
