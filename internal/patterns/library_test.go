package patterns

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/store"
)

func openLibrary(t *testing.T) (*Library, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "punchcall.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	lib, err := Load(context.Background(), st)
	if err != nil {
		t.Fatalf("load library: %v", err)
	}
	return lib, st
}

func TestLoadInsertsDefaults(t *testing.T) {
	lib, _ := openLibrary(t)
	sets := lib.Sets()
	if len(sets) != len(DefaultSets()) {
		t.Fatalf("expected %d sets, got %d", len(DefaultSets()), len(sets))
	}
	if sets[0].ID != DefaultSetID || !sets[0].IsDefault {
		t.Fatalf("unexpected first set %+v", sets[0])
	}
}

func TestLoadReinsertsMissingDefaults(t *testing.T) {
	ctx := context.Background()
	lib, st := openLibrary(t)
	if _, err := lib.Create(ctx, "Mine", []model.Pattern{{1, 2}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Save(ctx, store.KeyPatternSets, []byte(`[{"id":"x","name":"Mine","patterns":[[1,2]]}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := Load(ctx, st)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	sets := reloaded.Sets()
	if len(sets) != len(DefaultSets())+1 {
		t.Fatalf("expected defaults plus one user set, got %d", len(sets))
	}
	if sets[len(sets)-1].Name != "Mine" {
		t.Fatalf("expected user set last, got %q", sets[len(sets)-1].Name)
	}
}

func TestCreatePersists(t *testing.T) {
	ctx := context.Background()
	lib, st := openLibrary(t)
	created, err := lib.Create(ctx, "  Jabs  ", []model.Pattern{{1}, {1, 1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Jabs" || created.ID == "" {
		t.Fatalf("unexpected set %+v", created)
	}
	reloaded, err := Load(ctx, st)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, err := reloaded.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Patterns) != 2 || !got.Patterns[1].Equal(model.Pattern{1, 1}) {
		t.Fatalf("unexpected patterns %v", got.Patterns)
	}
}

func TestCreateRejectsEmptyNameAndDuplicates(t *testing.T) {
	ctx := context.Background()
	lib, _ := openLibrary(t)
	if _, err := lib.Create(ctx, " ", nil); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if _, err := lib.Create(ctx, "Dup", []model.Pattern{{1, 2}, {1, 2}}); !errors.Is(err, ErrDuplicatePattern) {
		t.Fatalf("expected ErrDuplicatePattern, got %v", err)
	}
	if len(lib.Sets()) != len(DefaultSets()) {
		t.Fatalf("expected no set to be added")
	}
}

func TestDeleteDefaultRejected(t *testing.T) {
	ctx := context.Background()
	lib, _ := openLibrary(t)
	before := lib.Sets()
	selected, err := lib.Delete(ctx, DefaultSetID, DefaultSetID)
	if !errors.Is(err, ErrDefaultSet) {
		t.Fatalf("expected ErrDefaultSet, got %v", err)
	}
	if selected != DefaultSetID {
		t.Fatalf("expected selection unchanged, got %q", selected)
	}
	after := lib.Sets()
	if len(after) != len(before) {
		t.Fatalf("expected set count unchanged")
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Fatalf("expected membership unchanged")
		}
	}
}

func TestDeleteSelectedReselectsFirst(t *testing.T) {
	ctx := context.Background()
	lib, _ := openLibrary(t)
	mine, err := lib.Create(ctx, "Mine", []model.Pattern{{2}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	selected, err := lib.Delete(ctx, mine.ID, mine.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if selected != lib.Sets()[0].ID {
		t.Fatalf("expected first set selected, got %q", selected)
	}
	if _, err := lib.Get(mine.ID); !errors.Is(err, ErrSetNotFound) {
		t.Fatalf("expected deleted set to be gone, got %v", err)
	}
}

func TestDeleteOtherKeepsSelection(t *testing.T) {
	ctx := context.Background()
	lib, _ := openLibrary(t)
	mine, err := lib.Create(ctx, "Mine", []model.Pattern{{2}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	selected, err := lib.Delete(ctx, mine.ID, "default-basic-2")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if selected != "default-basic-2" {
		t.Fatalf("expected selection kept, got %q", selected)
	}
}

func TestMutatingDefaultRejected(t *testing.T) {
	ctx := context.Background()
	lib, _ := openLibrary(t)
	if err := lib.AddPattern(ctx, DefaultSetID, model.Pattern{9}); !errors.Is(err, ErrDefaultSet) {
		t.Fatalf("expected ErrDefaultSet, got %v", err)
	}
	if err := lib.Rename(ctx, DefaultSetID, "Other"); !errors.Is(err, ErrDefaultSet) {
		t.Fatalf("expected ErrDefaultSet, got %v", err)
	}
}

func TestAddAndRemovePattern(t *testing.T) {
	ctx := context.Background()
	lib, _ := openLibrary(t)
	mine, err := lib.Create(ctx, "Mine", []model.Pattern{{1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := lib.AddPattern(ctx, mine.ID, model.Pattern{1, 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := lib.AddPattern(ctx, mine.ID, model.Pattern{1, 2}); !errors.Is(err, ErrDuplicatePattern) {
		t.Fatalf("expected ErrDuplicatePattern, got %v", err)
	}
	if err := lib.RemovePattern(ctx, mine.ID, model.Pattern{1}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, _ := lib.Get(mine.ID)
	if len(got.Patterns) != 1 || !got.Patterns[0].Equal(model.Pattern{1, 2}) {
		t.Fatalf("unexpected patterns %v", got.Patterns)
	}

	// Removing the last pattern is a no-op.
	if err := lib.RemovePattern(ctx, mine.ID, model.Pattern{1, 2}); err != nil {
		t.Fatalf("remove last: %v", err)
	}
	got, _ = lib.Get(mine.ID)
	if len(got.Patterns) != 1 {
		t.Fatalf("expected last pattern kept, got %v", got.Patterns)
	}
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	lib, _ := openLibrary(t)
	mine, err := lib.Create(ctx, "Mine", []model.Pattern{{1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := lib.Rename(ctx, mine.ID, "Yours"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	got, err := lib.Find("yours")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != mine.ID {
		t.Fatalf("expected renamed set")
	}
}

func TestImportNameCollision(t *testing.T) {
	ctx := context.Background()
	lib, _ := openLibrary(t)
	basic, err := lib.Get(DefaultSetID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first, err := lib.Import(ctx, basic)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if first.Name != "Basic 1 (1)" {
		t.Fatalf("expected %q, got %q", "Basic 1 (1)", first.Name)
	}
	if first.ID == basic.ID || first.IsDefault {
		t.Fatalf("expected a new user set, got %+v", first)
	}
	second, err := lib.Import(ctx, basic)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if second.Name != "Basic 1 (2)" {
		t.Fatalf("expected %q, got %q", "Basic 1 (2)", second.Name)
	}
	original, _ := lib.Get(DefaultSetID)
	if original.Name != "Basic 1" {
		t.Fatalf("expected original untouched")
	}
}

func TestImportRejectsEmptySet(t *testing.T) {
	lib, _ := openLibrary(t)
	if _, err := lib.Import(context.Background(), model.PatternSet{Name: "Empty"}); !errors.Is(err, ErrNoImportableSet) {
		t.Fatalf("expected ErrNoImportableSet, got %v", err)
	}
}

func TestShareRoundTrip(t *testing.T) {
	sets := append(DefaultSets(), model.PatternSet{Name: "Ünïcode & co", Patterns: []model.Pattern{{10, 9, 8}}})
	for _, set := range sets {
		token, err := EncodeShare(set)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeShare(token)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Name != set.Name || len(got.Patterns) != len(set.Patterns) {
			t.Fatalf("round trip mismatch: %+v vs %+v", got, set)
		}
		for i := range set.Patterns {
			if !got.Patterns[i].Equal(set.Patterns[i]) {
				t.Fatalf("pattern %d mismatch", i)
			}
		}
	}
}

func TestDecodeShareMalformed(t *testing.T) {
	cases := []string{
		"",
		"!!!not-base64!!!",
		"bm90IGpzb24",                 // "not json"
		"eyJuIjoiIiwicCI6W1sxXV19",    // empty name
		"eyJuIjoiWCIsInAiOltdfQ",      // no patterns
		"eyJuIjoiWCIsInAiOltbMTFdXX0", // unit out of range
	}
	for _, token := range cases {
		if _, err := DecodeShare(token); !errors.Is(err, ErrNoImportableSet) {
			t.Fatalf("token %q: expected ErrNoImportableSet, got %v", token, err)
		}
	}
}

func TestShareTokenFromLink(t *testing.T) {
	cases := map[string]string{
		"https://example.com/app?set=abc":     "abc",
		"https://example.com/app#set=def":     "def",
		"https://example.com/app?x=1&set=ghi": "ghi",
		"  plain-token ":                      "plain-token",
	}
	for in, want := range cases {
		if got := ShareTokenFromLink(in); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
	if got := ShareLink("https://example.com/app", "tok"); got != "https://example.com/app?set=tok" {
		t.Fatalf("unexpected link %q", got)
	}
}

func TestGeneratePresets(t *testing.T) {
	gen := NewSeededGenerator(1)
	for _, name := range PresetNames() {
		preset := Presets[name]
		set, err := gen.GenerateSet(name, "")
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if set.Name != "Random "+name {
			t.Fatalf("unexpected name %q", set.Name)
		}
		if len(set.Patterns) != preset.Count {
			t.Fatalf("%s: expected %d patterns, got %d", name, preset.Count, len(set.Patterns))
		}
		for i, p := range set.Patterns {
			if len(p) < preset.MinLen || len(p) > preset.MaxLen {
				t.Fatalf("%s: pattern %v length out of range", name, p)
			}
			for _, u := range p {
				if u < 1 || u > preset.MaxUnit {
					t.Fatalf("%s: unit %d out of range", name, u)
				}
			}
			for j := 0; j < i; j++ {
				if set.Patterns[j].Equal(p) {
					t.Fatalf("%s: duplicate pattern %v", name, p)
				}
			}
		}
	}
	if _, err := gen.GenerateSet("expert", ""); err == nil {
		t.Fatalf("expected unknown preset error")
	}
}

func TestGenerateExhaustsSmallSpace(t *testing.T) {
	gen := NewSeededGenerator(7)
	patterns, err := gen.Generate(Preset{MinLen: 1, MaxLen: 1, MaxUnit: 2, Count: 5})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("expected the 2 possible patterns, got %v", patterns)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sets := []model.PatternSet{{ID: "abc", Name: "Mine", Patterns: []model.Pattern{{1, 2}, {3}}}}
	if err := ExportYAML(&buf, sets); err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := ReadYAML(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Mine" || got[0].ID != "" {
		t.Fatalf("unexpected sets %+v", got)
	}
	if !got[0].Patterns[0].Equal(model.Pattern{1, 2}) {
		t.Fatalf("unexpected patterns %v", got[0].Patterns)
	}
}

func TestReadYAMLRejectsInvalidUnits(t *testing.T) {
	doc := "sets:\n  - name: Bad\n    patterns: [[0, 2]]\n"
	if _, err := ReadYAML(bytes.NewBufferString(doc)); !errors.Is(err, model.ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
}

func TestLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combos.txt")
	data := "# warmup\n1-2\n\n1 2 3\n3,2,3\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	patterns, err := LoadText(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(patterns) != 3 || !patterns[2].Equal(model.Pattern{3, 2, 3}) {
		t.Fatalf("unexpected patterns %v", patterns)
	}

	bad := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(bad, []byte("1-x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadText(bad); !errors.Is(err, model.ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
}
