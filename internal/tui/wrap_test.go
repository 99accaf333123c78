package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/punchcall/internal/model"
)

func TestBuildStyledPatternsHighlightsCurrent(t *testing.T) {
	patterns := []model.Pattern{{1, 2}, {3}}
	runes := buildStyledPatterns(patterns, model.Pattern{3})
	if len(runes) != 5 {
		t.Fatalf("expected 5 runes, got %d", len(runes))
	}
	if runes[0].s != pendingStyle.Render("1") {
		t.Fatalf("expected pending style for other pattern")
	}
	if !runes[3].isSpace {
		t.Fatalf("expected separator space")
	}
	if runes[4].s != currentWordStyle.Render("3") {
		t.Fatalf("expected highlight for current pattern")
	}
}

func TestBuildStyledPatternsNoCurrent(t *testing.T) {
	runes := buildStyledPatterns([]model.Pattern{{1}}, nil)
	if len(runes) != 1 || runes[0].s != pendingStyle.Render("1") {
		t.Fatalf("expected single pending rune, got %+v", runes)
	}
}

func TestWrapStyledRunesBreaksAtSpaces(t *testing.T) {
	patterns := []model.Pattern{{1, 2}, {3, 4}, {5, 6}}
	runes := buildStyledPatterns(patterns, nil)
	out := wrapStyledRunes(runes, 8)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
}

func TestWrapStyledRunesZeroWidth(t *testing.T) {
	runes := buildStyledPatterns([]model.Pattern{{1}, {2}}, nil)
	if wrapStyledRunes(runes, 0) != renderStyledRunes(runes) {
		t.Fatalf("expected unwrapped output")
	}
}
