package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/session"
	"github.com/verte-zerg/punchcall/internal/signal"
)

func TestRenderFooterFormats(t *testing.T) {
	cfg := model.DefaultTrainingConfig()
	cfg.PlaybackSpeed = 1.5
	m := &Model{
		cfg:        cfg,
		set:        model.PatternSet{Name: "Basic 1"},
		snap:       session.Snapshot{Callouts: 12},
		lastSignal: signal.End,
	}
	out := m.renderFooter()
	if out == "" {
		t.Fatalf("expected footer output")
	}
	if !containsAll(out, []string{"Set Basic 1", "Speed 1.5x", "Voice tone", "Callouts 12", "Signal end"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestRenderFooterPrefersRunningSetName(t *testing.T) {
	m := &Model{
		cfg:  model.DefaultTrainingConfig(),
		set:  model.PatternSet{Name: "Basic 1"},
		snap: session.Snapshot{SetName: "Hooks & Uppercuts"},
	}
	out := m.renderFooter()
	if !strings.Contains(out, "Set Hooks & Uppercuts") {
		t.Fatalf("expected running set name, got %s", out)
	}
	if strings.Contains(out, "Signal") {
		t.Fatalf("expected no signal segment, got %s", out)
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{0: "00:00", 5: "00:05", 90: "01:30", 300: "05:00", -3: "00:00"}
	for in, want := range cases {
		if got := formatClock(in); got != want {
			t.Fatalf("formatClock(%d) = %q, want %q", in, got, want)
		}
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
