// Package listing renders pattern sets as plain-text tables for the CLI.
package listing

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const columnGap = "  "

type column struct {
	title string
	right bool
}

// table lays out cells in columns sized to their widest cell.
type table struct {
	cols []column
	rows [][]string
}

func newTable(cols ...column) *table {
	return &table{cols: cols}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// addColumn appends a column and one cell per existing row.
func (t *table) addColumn(col column, cells []string) {
	t.cols = append(t.cols, col)
	for i := range t.rows {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		t.rows[i] = append(t.rows[i], cell)
	}
}

func (t *table) widths() []int {
	widths := make([]int, len(t.cols))
	for i, col := range t.cols {
		widths[i] = displayWidth(col.title)
	}
	for _, row := range t.rows {
		for i := range widths {
			if i < len(row) {
				widths[i] = max(widths[i], displayWidth(row[i]))
			}
		}
	}
	return widths
}

// span is the width taken by all columns including the gaps after them,
// i.e. the offset at which a following column starts.
func (t *table) span() int {
	total := 0
	for _, w := range t.widths() {
		total += w + len(columnGap)
	}
	return total
}

func (t *table) lines() []string {
	if len(t.cols) == 0 {
		return nil
	}
	widths := t.widths()
	titles := make([]string, len(t.cols))
	for i, col := range t.cols {
		titles[i] = col.title
	}
	lines := make([]string, 0, len(t.rows)+1)
	lines = append(lines, t.formatRow(titles, widths))
	for _, row := range t.rows {
		lines = append(lines, t.formatRow(row, widths))
	}
	return lines
}

func (t *table) formatRow(row []string, widths []int) string {
	var b strings.Builder
	for i, col := range t.cols {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteString(columnGap)
		}
		b.WriteString(padCell(cell, widths[i], col.right))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := displayWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := strings.Repeat(" ", width-valueWidth)
	if rightAlign {
		return padding + value
	}
	return value + padding
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
