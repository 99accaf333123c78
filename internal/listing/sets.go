package listing

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/punchcall/internal/model"
)

const terminalWidthBackup = 100

// WriteSets prints one row per set. The selected set is marked with '*'.
// On a terminal the pattern preview is cut at a pattern boundary so rows
// fit the screen, with "+N" counting the patterns left out.
func WriteSets(w io.Writer, sets []model.PatternSet, selectedID string) error {
	t := newTable(
		column{},
		column{title: "ID"},
		column{title: "Name"},
		column{title: "Kind"},
		column{title: "Patterns", right: true},
	)
	for _, set := range sets {
		mark := ""
		if set.ID == selectedID {
			mark = "*"
		}
		t.add(mark, set.ID, set.Name, kindOf(set), strconv.Itoa(len(set.Patterns)))
	}

	budget := 0
	if width := writerWidth(w); width > 0 {
		budget = max(width-t.span(), len("Preview"))
	}
	previews := make([]string, len(sets))
	for i, set := range sets {
		previews[i] = previewPatterns(set.Patterns, budget)
	}
	t.addColumn(column{title: "Preview"}, previews)
	return writeLines(w, t.lines())
}

// WriteSet prints the set header followed by its numbered patterns.
func WriteSet(w io.Writer, set model.PatternSet) error {
	lines := []string{
		fmt.Sprintf("%s (%s, %s)", set.Name, set.ID, kindOf(set)),
	}
	if len(set.Patterns) == 0 {
		return writeLines(w, append(lines, "no patterns"))
	}
	t := newTable(column{title: "#", right: true}, column{title: "Pattern"})
	for i, p := range set.Patterns {
		t.add(strconv.Itoa(i+1), p.String())
	}
	return writeLines(w, append(lines, t.lines()...))
}

func kindOf(set model.PatternSet) string {
	if set.IsDefault {
		return "default"
	}
	return "user"
}

// previewPatterns joins whole patterns with spaces. A positive budget caps
// the width; patterns that do not fit are summarized as "+N".
func previewPatterns(patterns []model.Pattern, budget int) string {
	var b strings.Builder
	for i, p := range patterns {
		text := p.String()
		if b.Len() > 0 {
			text = " " + text
		}
		width := b.Len() + len(text)
		if left := len(patterns) - i - 1; left > 0 {
			width += len(" +" + strconv.Itoa(left))
		}
		if budget > 0 && width > budget {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("+" + strconv.Itoa(len(patterns)-i))
			break
		}
		b.WriteString(text)
	}
	return b.String()
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// writerWidth returns the terminal width for terminal writers and 0 otherwise.
func writerWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
