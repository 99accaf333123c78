package listing

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/punchcall/internal/model"
)

func TestTableAlignsColumns(t *testing.T) {
	tbl := newTable(column{title: "Name"}, column{title: "Patterns", right: true}, column{title: "Kind"})
	tbl.add("Basic 1", "12", "default")
	tbl.add("Hooks & Uppercuts", "8", "user")

	lines := tbl.lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Name               Patterns  Kind" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Basic 1                  12  default" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Hooks & Uppercuts         8  user" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
	if got := tbl.span(); got != 17+2+8+2+7+2 {
		t.Fatalf("unexpected span %d", got)
	}
}

func TestAddColumnFillsRows(t *testing.T) {
	tbl := newTable(column{title: "ID"})
	tbl.add("a")
	tbl.add("b")
	tbl.addColumn(column{title: "Preview"}, []string{"1-2"})
	lines := tbl.lines()
	if lines[1] != "a   1-2" || lines[2] != "b" {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestDisplayWidthCountsWideRunes(t *testing.T) {
	if got := displayWidth("拳"); got != 2 {
		t.Fatalf("expected width 2, got %d", got)
	}
	if got := padCell("拳", 4, false); got != "拳  " {
		t.Fatalf("unexpected padding %q", got)
	}
}

func TestPreviewPatternsCutsAtPatternBoundary(t *testing.T) {
	list := []model.Pattern{{1, 2}, {1, 2, 3}, {2, 3}}
	cases := []struct {
		budget int
		want   string
	}{
		{0, "1-2 1-2-3 2-3"},
		{13, "1-2 1-2-3 2-3"},
		{12, "1-2 1-2-3 +1"},
		{8, "1-2 +2"},
		{2, "+3"},
	}
	for _, tc := range cases {
		if got := previewPatterns(list, tc.budget); got != tc.want {
			t.Fatalf("budget %d: got %q, want %q", tc.budget, got, tc.want)
		}
	}
	if got := previewPatterns(nil, 10); got != "" {
		t.Fatalf("expected empty preview, got %q", got)
	}
}

func TestWriteSetsMarksSelection(t *testing.T) {
	sets := []model.PatternSet{
		{ID: "default-basic-1", Name: "Basic 1", IsDefault: true, Patterns: []model.Pattern{{1}, {1, 2}}},
		{ID: "abc", Name: "Mine", Patterns: []model.Pattern{{3, 2}}},
	}
	var buf bytes.Buffer
	if err := WriteSets(&buf, sets, "abc"); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if strings.HasPrefix(lines[1], "*") {
		t.Fatalf("default set should not be marked: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "*") || !strings.Contains(lines[2], "3-2") {
		t.Fatalf("expected selected user set row, got %q", lines[2])
	}
	if !strings.Contains(lines[1], "default") || !strings.Contains(lines[1], "1 1-2") {
		t.Fatalf("unexpected default row %q", lines[1])
	}
}

func TestWriteSetListsPatterns(t *testing.T) {
	var buf bytes.Buffer
	set := model.PatternSet{ID: "abc", Name: "Mine", Patterns: []model.Pattern{{1, 2}, {3}}}
	if err := WriteSet(&buf, set); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "Mine (abc, user)\n#  Pattern\n1  1-2\n2  3\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant\n%q", buf.String(), want)
	}

	buf.Reset()
	if err := WriteSet(&buf, model.PatternSet{ID: "x", Name: "Empty"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "no patterns") {
		t.Fatalf("expected empty notice, got %q", buf.String())
	}
}
