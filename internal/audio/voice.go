package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

// ErrUnknownVoice reports a voice that is neither synthesized nor installed.
var ErrUnknownVoice = errors.New("unknown voice")

const (
	toneUnitDuration = 220 * time.Millisecond
	toneVolume       = 0.45
	toneBaseFreq     = 330.0
)

var pentatonic = []float64{1, 9.0 / 8, 5.0 / 4, 3.0 / 2, 5.0 / 3}

// Resolver maps (voice, unit) to playable clips. Decoded clips are cached.
type Resolver struct {
	dir   string
	cache sync.Map
}

// NewResolver returns a Resolver reading voice packs from dir.
func NewResolver(dir string) *Resolver {
	return &Resolver{dir: dir}
}

// Locator returns where the clip for voice/unit comes from.
func (r *Resolver) Locator(voice string, unit int) string {
	if voice == "" || voice == "tone" {
		return "tone:" + strconv.Itoa(unit)
	}
	return filepath.Join(r.dir, voice, strconv.Itoa(unit)+".wav")
}

// Clip returns the clip for voice/unit.
func (r *Resolver) Clip(voice string, unit int) (*Clip, error) {
	locator := r.Locator(voice, unit)
	if cached, ok := r.cache.Load(locator); ok {
		return cached.(*Clip), nil
	}
	var (
		clip *Clip
		err  error
	)
	if voice == "" || voice == "tone" {
		clip = toneClip(unit)
	} else {
		clip, err = loadWAV(locator)
		if err != nil {
			return nil, err
		}
	}
	r.cache.Store(locator, clip)
	return clip, nil
}

func toneClip(unit int) *Clip {
	idx := unit - 1
	if idx < 0 {
		idx = 0
	}
	octave := idx / len(pentatonic)
	freq := toneBaseFreq * pentatonic[idx%len(pentatonic)] * math.Pow(2, float64(octave))
	return &Clip{
		Name:       "tone:" + strconv.Itoa(unit),
		Samples:    SineTone(freq, toneUnitDuration, toneVolume, DefaultSampleRate),
		SampleRate: DefaultSampleRate,
	}
}

func loadWAV(path string) (*Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: missing %s", ErrUnknownVoice, path)
		}
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only asset.
			_ = cerr
		}
	}()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	sampleRate := int(dec.SampleRate)
	if buf.Format != nil && buf.Format.SampleRate > 0 {
		sampleRate = buf.Format.SampleRate
	}
	depth := int(dec.BitDepth)

	frames := len(buf.Data) / channels
	samples := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		samples[i] = toInt16(sum/channels, depth)
	}
	return &Clip{Name: path, Samples: samples, SampleRate: sampleRate}, nil
}

func toInt16(v, depth int) int16 {
	switch depth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

// ListVoices returns "tone" plus every subdirectory of dir.
func ListVoices(dir string) ([]string, error) {
	voices := []string{"tone"}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return voices, nil
		}
		return nil, fmt.Errorf("failed to read voices directory: %w", err)
	}
	var packs []string
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() != "tone" {
			packs = append(packs, entry.Name())
		}
	}
	sort.Strings(packs)
	return append(voices, packs...), nil
}
