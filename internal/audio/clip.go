// Package audio synthesizes, loads and plays short PCM clips.
package audio

import (
	"math"
	"time"
)

// DefaultSampleRate is used for synthesized clips.
const DefaultSampleRate = 44100

// Clip is mono signed 16-bit PCM.
type Clip struct {
	Name       string
	Samples    []int16
	SampleRate int
}

// Duration returns the clip length at normal speed.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// ScaledDuration returns the clip length when played at rate.
func ScaledDuration(d time.Duration, rate float64) time.Duration {
	if rate <= 0 {
		return d
	}
	return time.Duration(float64(d) / rate)
}

// Tone is one oscillator note of a sequence.
type Tone struct {
	Freq     float64
	Duration time.Duration
	// Gap is the silence after the note.
	Gap time.Duration
}

// SineTone renders a sine wave with a short linear attack and release.
func SineTone(freq float64, d time.Duration, volume float64, sampleRate int) []int16 {
	n := samplesFor(d, sampleRate)
	out := make([]int16, n)
	ramp := samplesFor(5*time.Millisecond, sampleRate)
	for i := 0; i < n; i++ {
		env := 1.0
		if ramp > 0 {
			if i < ramp {
				env = float64(i) / float64(ramp)
			} else if n-i < ramp {
				env = float64(n-i) / float64(ramp)
			}
		}
		t := float64(i) / float64(sampleRate)
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * env)
	}
	return out
}

// Silence returns d worth of zero samples.
func Silence(d time.Duration, sampleRate int) []int16 {
	return make([]int16, samplesFor(d, sampleRate))
}

// RenderSequence concatenates tones and their gaps into one clip.
func RenderSequence(name string, tones []Tone, volume float64) *Clip {
	var samples []int16
	for _, tone := range tones {
		samples = append(samples, SineTone(tone.Freq, tone.Duration, volume, DefaultSampleRate)...)
		if tone.Gap > 0 {
			samples = append(samples, Silence(tone.Gap, DefaultSampleRate)...)
		}
	}
	return &Clip{Name: name, Samples: samples, SampleRate: DefaultSampleRate}
}

func samplesFor(d time.Duration, sampleRate int) int {
	if d <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}
