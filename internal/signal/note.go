package signal

import (
	"errors"
	"math"
)

// ErrMIDIUnavailable reports a build without MIDI support.
var ErrMIDIUnavailable = errors.New("midi support not compiled in this build")

// NoteForFreq returns the nearest MIDI note number for freq.
func NoteForFreq(freq float64) uint8 {
	if freq <= 0 {
		return 0
	}
	n := math.Round(69 + 12*math.Log2(freq/440))
	if n < 0 {
		return 0
	}
	if n > 127 {
		return 127
	}
	return uint8(n)
}
