//go:build !midi

package signal

import "github.com/verte-zerg/punchcall/internal/audio"

// MIDIOutput is a placeholder in builds without the midi tag.
type MIDIOutput struct{}

// NewMIDIOutput always fails; build with -tags midi to mirror signals.
func NewMIDIOutput(name string) (*MIDIOutput, error) {
	return nil, ErrMIDIUnavailable
}

// Mirror implements Mirror.
func (m *MIDIOutput) Mirror(Kind, []audio.Tone) {}

// Close implements io.Closer.
func (m *MIDIOutput) Close() error { return nil }
