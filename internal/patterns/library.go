// Package patterns manages pattern sets: built-in defaults, user sets,
// random generation and the import/export formats.
package patterns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/store"
)

var (
	ErrDefaultSet       = errors.New("built-in pattern sets cannot be modified")
	ErrSetNotFound      = errors.New("pattern set not found")
	ErrDuplicatePattern = errors.New("pattern already in set")
	ErrEmptyName        = errors.New("pattern set name is empty")
)

// Library holds every pattern set and persists user sets on change.
type Library struct {
	kv store.KV

	mu   sync.Mutex
	sets []model.PatternSet
}

// Load reads persisted sets and reinserts missing built-in sets.
func Load(ctx context.Context, kv store.KV) (*Library, error) {
	lib := &Library{kv: kv}
	var persisted []model.PatternSet
	data, err := kv.Load(ctx, store.KeyPatternSets)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, &persisted); err != nil {
			return nil, fmt.Errorf("failed to decode pattern sets: %w", err)
		}
	}
	lib.sets = mergeDefaults(persisted)
	return lib, nil
}

// mergeDefaults puts built-in sets first, in their canonical form, and keeps
// user sets in persisted order.
func mergeDefaults(persisted []model.PatternSet) []model.PatternSet {
	defaults := DefaultSets()
	builtin := make(map[string]struct{}, len(defaults))
	for _, set := range defaults {
		builtin[set.ID] = struct{}{}
	}
	sets := defaults
	for _, set := range persisted {
		if _, ok := builtin[set.ID]; ok || set.IsDefault {
			continue
		}
		if set.ID == "" || strings.TrimSpace(set.Name) == "" {
			continue
		}
		sets = append(sets, set)
	}
	return sets
}

// Sets returns copies of every set, built-in sets first.
func (l *Library) Sets() []model.PatternSet {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.PatternSet, len(l.sets))
	for i, set := range l.sets {
		out[i] = set.Clone()
	}
	return out
}

// Get returns the set with the given id.
func (l *Library) Get(id string) (model.PatternSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexLocked(id)
	if idx < 0 {
		return model.PatternSet{}, fmt.Errorf("%w: %s", ErrSetNotFound, id)
	}
	return l.sets[idx].Clone(), nil
}

// Find resolves a set by id, or by case-insensitive name.
func (l *Library) Find(ref string) (model.PatternSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if idx := l.indexLocked(ref); idx >= 0 {
		return l.sets[idx].Clone(), nil
	}
	for _, set := range l.sets {
		if strings.EqualFold(set.Name, ref) {
			return set.Clone(), nil
		}
	}
	return model.PatternSet{}, fmt.Errorf("%w: %s", ErrSetNotFound, ref)
}

// Create adds a user set. Duplicate patterns are rejected.
func (l *Library) Create(ctx context.Context, name string, patterns []model.Pattern) (model.PatternSet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.PatternSet{}, ErrEmptyName
	}
	set := model.PatternSet{ID: uuid.NewString(), Name: name}
	for _, p := range patterns {
		if set.Contains(p) {
			return model.PatternSet{}, fmt.Errorf("%w: %s", ErrDuplicatePattern, p)
		}
		set.Patterns = append(set.Patterns, p.Clone())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sets = append(l.sets, set)
	if err := l.persistLocked(ctx); err != nil {
		l.sets = l.sets[:len(l.sets)-1]
		return model.PatternSet{}, err
	}
	return set.Clone(), nil
}

// Rename changes the name of a user set.
func (l *Library) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return l.mutate(ctx, id, func(set *model.PatternSet) error {
		set.Name = name
		return nil
	})
}

// Delete removes a user set and returns the selection to use afterwards:
// selected when it survives, otherwise the first remaining set.
func (l *Library) Delete(ctx context.Context, id, selected string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexLocked(id)
	if idx < 0 {
		return selected, fmt.Errorf("%w: %s", ErrSetNotFound, id)
	}
	if l.sets[idx].IsDefault {
		return selected, ErrDefaultSet
	}
	prev := l.sets
	next := make([]model.PatternSet, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	l.sets = next
	if err := l.persistLocked(ctx); err != nil {
		l.sets = prev
		return selected, err
	}
	if selected == id || l.indexLocked(selected) < 0 {
		return l.sets[0].ID, nil
	}
	return selected, nil
}

// AddPattern appends p to a user set.
func (l *Library) AddPattern(ctx context.Context, id string, p model.Pattern) error {
	return l.mutate(ctx, id, func(set *model.PatternSet) error {
		if set.Contains(p) {
			return fmt.Errorf("%w: %s", ErrDuplicatePattern, p)
		}
		set.Patterns = append(set.Patterns, p.Clone())
		return nil
	})
}

// RemovePattern removes p from a user set. Removing the last pattern, or a
// pattern the set does not contain, leaves the set unchanged.
func (l *Library) RemovePattern(ctx context.Context, id string, p model.Pattern) error {
	return l.mutate(ctx, id, func(set *model.PatternSet) error {
		idx := set.IndexOf(p)
		if idx < 0 || len(set.Patterns) <= 1 {
			return nil
		}
		set.Patterns = append(set.Patterns[:idx], set.Patterns[idx+1:]...)
		return nil
	})
}

// Import adds set as a new user set with a fresh id. A colliding name gets
// the first free " (n)" suffix.
func (l *Library) Import(ctx context.Context, set model.PatternSet) (model.PatternSet, error) {
	name := strings.TrimSpace(set.Name)
	if name == "" {
		return model.PatternSet{}, ErrEmptyName
	}
	imported := model.PatternSet{ID: uuid.NewString()}
	for _, p := range set.Patterns {
		if len(p) == 0 || imported.Contains(p) {
			continue
		}
		imported.Patterns = append(imported.Patterns, p.Clone())
	}
	if len(imported.Patterns) == 0 {
		return model.PatternSet{}, ErrNoImportableSet
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	imported.Name = l.uniqueNameLocked(name)
	l.sets = append(l.sets, imported)
	if err := l.persistLocked(ctx); err != nil {
		l.sets = l.sets[:len(l.sets)-1]
		return model.PatternSet{}, err
	}
	return imported.Clone(), nil
}

func (l *Library) uniqueNameLocked(name string) string {
	taken := make(map[string]struct{}, len(l.sets))
	for _, set := range l.sets {
		taken[set.Name] = struct{}{}
	}
	if _, ok := taken[name]; !ok {
		return name
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

func (l *Library) mutate(ctx context.Context, id string, fn func(set *model.PatternSet) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrSetNotFound, id)
	}
	if l.sets[idx].IsDefault {
		return ErrDefaultSet
	}
	prev := l.sets[idx]
	updated := prev.Clone()
	if err := fn(&updated); err != nil {
		return err
	}
	l.sets[idx] = updated
	if err := l.persistLocked(ctx); err != nil {
		l.sets[idx] = prev
		return err
	}
	return nil
}

func (l *Library) indexLocked(id string) int {
	for i, set := range l.sets {
		if set.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked stores user sets only; built-in sets come from code.
func (l *Library) persistLocked(ctx context.Context) error {
	user := make([]model.PatternSet, 0, len(l.sets))
	for _, set := range l.sets {
		if !set.IsDefault {
			user = append(user, set)
		}
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode pattern sets: %w", err)
	}
	if err := l.kv.Save(ctx, store.KeyPatternSets, data); err != nil {
		return fmt.Errorf("failed to save pattern sets: %w", err)
	}
	return nil
}
