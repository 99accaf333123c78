package setsui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/patterns"
	"github.com/verte-zerg/punchcall/internal/store"
)

func newTestModel(t *testing.T, selected string) (*Model, *patterns.Library, *[]string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "punchcall.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	lib, err := patterns.Load(context.Background(), st)
	if err != nil {
		t.Fatalf("load library: %v", err)
	}
	var picks []string
	m := NewModel(lib, selected, Options{
		ShareBase: "https://example.test/import",
		OnSelect: func(id string) error {
			picks = append(picks, id)
			return nil
		},
		Generator: patterns.NewSeededGenerator(7),
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, lib, &picks
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeInput(m *Model, text string) {
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func TestCursorStartsOnSelected(t *testing.T) {
	m, _, _ := newTestModel(t, "default-basic-2")
	set, ok := m.current()
	if !ok || set.ID != "default-basic-2" {
		t.Fatalf("expected cursor on selected set, got %+v", set)
	}
	if !strings.Contains(m.preview.View(), "Basic 2") {
		t.Fatalf("expected preview of selected set")
	}
}

func TestSelectPersistsChoice(t *testing.T) {
	m, _, picks := newTestModel(t, patterns.DefaultSetID)
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.Selected() != "default-basic-2" {
		t.Fatalf("expected second set selected, got %q", m.Selected())
	}
	if len(*picks) != 1 || (*picks)[0] != "default-basic-2" {
		t.Fatalf("unexpected picks %v", *picks)
	}
}

func TestCreateAddAndRemovePattern(t *testing.T) {
	m, lib, _ := newTestModel(t, patterns.DefaultSetID)
	m.Update(key("n"))
	if m.inputMode != inputCreate {
		t.Fatalf("expected create input")
	}
	typeInput(m, "Drills")
	set, ok := m.current()
	if !ok || set.Name != "Drills" {
		t.Fatalf("expected cursor on new set, got %+v", set)
	}

	m.Update(key("a"))
	typeInput(m, "1-2-3")
	m.Update(key("a"))
	typeInput(m, "2-3")
	got, err := lib.Get(set.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %v", got.Patterns)
	}

	m.Update(key("x"))
	typeInput(m, "1-2-3")
	got, _ = lib.Get(set.ID)
	if len(got.Patterns) != 1 || !got.Patterns[0].Equal(model.Pattern{2, 3}) {
		t.Fatalf("unexpected patterns %v", got.Patterns)
	}
}

func TestInvalidPatternShowsError(t *testing.T) {
	m, _, _ := newTestModel(t, patterns.DefaultSetID)
	m.Update(key("n"))
	typeInput(m, "Drills")
	m.Update(key("a"))
	typeInput(m, "1-x")
	if m.errMsg == "" {
		t.Fatalf("expected parse error")
	}
}

func TestDefaultSetIsReadOnly(t *testing.T) {
	m, _, _ := newTestModel(t, patterns.DefaultSetID)
	m.Update(key("d"))
	if !strings.Contains(m.errMsg, patterns.ErrDefaultSet.Error()) {
		t.Fatalf("expected default set error, got %q", m.errMsg)
	}
	m.Update(key("r"))
	typeInput(m, " renamed")
	if m.errMsg == "" {
		t.Fatalf("expected rename of default set to fail")
	}
}

func TestDeleteSelectedReselects(t *testing.T) {
	m, lib, picks := newTestModel(t, patterns.DefaultSetID)
	m.Update(key("n"))
	typeInput(m, "Temp")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	created := m.Selected()
	if created == patterns.DefaultSetID {
		t.Fatalf("expected new set selected")
	}
	m.Update(key("d"))
	if m.Selected() != patterns.DefaultSetID {
		t.Fatalf("expected reselect of first set, got %q", m.Selected())
	}
	if _, err := lib.Get(created); err == nil {
		t.Fatalf("expected set deleted")
	}
	if last := (*picks)[len(*picks)-1]; last != patterns.DefaultSetID {
		t.Fatalf("expected persisted reselect, got %q", last)
	}
}

func TestShareThenImport(t *testing.T) {
	m, lib, _ := newTestModel(t, patterns.DefaultSetID)
	m.Update(key("s"))
	if !strings.HasPrefix(m.status, "https://example.test/import?set=") {
		t.Fatalf("unexpected share status %q", m.status)
	}
	link := m.status
	before := len(lib.Sets())

	m.Update(key("i"))
	typeInput(m, link)
	if m.errMsg != "" {
		t.Fatalf("import failed: %s", m.errMsg)
	}
	sets := lib.Sets()
	if len(sets) != before+1 {
		t.Fatalf("expected one more set, got %d", len(sets))
	}
	if sets[len(sets)-1].Name != "Basic 1 (1)" {
		t.Fatalf("unexpected imported name %q", sets[len(sets)-1].Name)
	}
}

func TestImportMalformedToken(t *testing.T) {
	m, lib, _ := newTestModel(t, patterns.DefaultSetID)
	before := len(lib.Sets())
	m.Update(key("i"))
	typeInput(m, "!!!")
	if !strings.Contains(m.errMsg, patterns.ErrNoImportableSet.Error()) {
		t.Fatalf("expected import error, got %q", m.errMsg)
	}
	if len(lib.Sets()) != before {
		t.Fatalf("expected no partial import")
	}
}

func TestGenerateImportsRandomSet(t *testing.T) {
	m, lib, _ := newTestModel(t, patterns.DefaultSetID)
	m.Update(key("g"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	set, ok := m.current()
	if !ok || set.Name != "Random beginner" {
		t.Fatalf("expected generated set under cursor, got %+v", set)
	}
	got, err := lib.Get(set.ID)
	if err != nil || len(got.Patterns) == 0 {
		t.Fatalf("expected stored generated set: %v", err)
	}
}

func TestEscapeCancelsInput(t *testing.T) {
	m, lib, _ := newTestModel(t, patterns.DefaultSetID)
	before := len(lib.Sets())
	m.Update(key("n"))
	m.Update(key("X"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.inputMode != inputNone {
		t.Fatalf("expected browse mode")
	}
	if len(lib.Sets()) != before {
		t.Fatalf("expected no set created")
	}
}

func TestViewRendersTableAndFooter(t *testing.T) {
	m, _, _ := newTestModel(t, patterns.DefaultSetID)
	view := m.View()
	for _, want := range []string{"Pattern sets", "Basic 1", "Hooks & Uppercuts", "q: quit"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}
