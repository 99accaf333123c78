package patterns

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/verte-zerg/punchcall/internal/model"
)

// Preset controls the shape of generated patterns.
type Preset struct {
	Name    string
	MinLen  int
	MaxLen  int
	MaxUnit int
	Count   int
}

// Presets lists the built-in generator presets.
var Presets = map[string]Preset{
	"beginner":     {Name: "beginner", MinLen: 1, MaxLen: 3, MaxUnit: 4, Count: 6},
	"intermediate": {Name: "intermediate", MinLen: 2, MaxLen: 4, MaxUnit: 6, Count: 8},
	"advanced":     {Name: "advanced", MinLen: 3, MaxLen: 6, MaxUnit: 8, Count: 10},
}

// PresetNames returns preset names sorted by difficulty.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return Presets[names[i]].MaxLen < Presets[names[j]].MaxLen
	})
	return names
}

// Generator produces random pattern sets.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator returns a Generator seeded with the current time.
func NewGenerator() *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededGenerator returns a deterministic Generator.
func NewSeededGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate returns up to preset.Count distinct patterns. Fewer are returned
// when the preset cannot produce that many distinct ones.
func (g *Generator) Generate(preset Preset) ([]model.Pattern, error) {
	if preset.MinLen < 1 || preset.MaxLen < preset.MinLen {
		return nil, fmt.Errorf("invalid preset length %d-%d", preset.MinLen, preset.MaxLen)
	}
	if preset.MaxUnit < model.MinUnit || preset.MaxUnit > model.MaxUnit {
		return nil, fmt.Errorf("invalid preset max unit %d", preset.MaxUnit)
	}
	var set model.PatternSet
	attempts := preset.Count * 50
	for i := 0; i < attempts && len(set.Patterns) < preset.Count; i++ {
		length := preset.MinLen + g.rnd.Intn(preset.MaxLen-preset.MinLen+1)
		p := make(model.Pattern, length)
		for j := range p {
			p[j] = model.MinUnit + g.rnd.Intn(preset.MaxUnit)
		}
		if set.Contains(p) {
			continue
		}
		set.Patterns = append(set.Patterns, p)
	}
	return set.Patterns, nil
}

// GenerateSet builds an unsaved set named after the preset.
func (g *Generator) GenerateSet(presetName, name string) (model.PatternSet, error) {
	preset, ok := Presets[presetName]
	if !ok {
		return model.PatternSet{}, fmt.Errorf("unknown preset %q", presetName)
	}
	patterns, err := g.Generate(preset)
	if err != nil {
		return model.PatternSet{}, err
	}
	if name == "" {
		name = "Random " + presetName
	}
	return model.PatternSet{Name: name, Patterns: patterns}, nil
}
