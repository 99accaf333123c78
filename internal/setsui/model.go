// Package setsui provides the Bubble Tea pattern-set browser.
package setsui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/patterns"
)

type inputKind int

const (
	inputNone inputKind = iota
	inputCreate
	inputRename
	inputAddPattern
	inputRemovePattern
	inputImport
	inputGenerate
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	cardTitle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValue   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	modalStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Options configures the browser.
type Options struct {
	// ShareBase prefixes share tokens to form links. Empty shows bare tokens.
	ShareBase string
	// OnSelect persists a new selection.
	OnSelect  func(id string) error
	Generator *patterns.Generator
}

// Model implements the Bubble Tea set browser.
type Model struct {
	lib      *patterns.Library
	opts     Options
	selected string
	sets     []model.PatternSet

	table   table.Model
	preview viewport.Model

	width  int
	height int

	input     textinput.Model
	inputMode inputKind

	status string
	errMsg string
}

// NewModel constructs a set browser over lib with selected highlighted.
func NewModel(lib *patterns.Library, selected string, opts Options) *Model {
	if opts.Generator == nil {
		opts.Generator = patterns.NewGenerator()
	}
	m := &Model{
		lib:      lib,
		opts:     opts,
		selected: selected,
		preview:  viewport.New(0, 0),
		input:    newInput(),
	}
	m.table = table.New(
		table.WithColumns(setColumns(0)),
		table.WithFocused(true),
		table.WithHeight(5),
	)
	m.table.SetStyles(tableStyles())
	m.refresh()
	m.moveCursorTo(selected)
	return m
}

// Selected returns the selected set id.
func (m *Model) Selected() string {
	return m.selected
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.inputMode != inputNone {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errMsg = ""
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "enter":
		m.selectCurrent()
		return m, nil
	case "n":
		return m.startInput(inputCreate, "")
	case "r":
		if set, ok := m.current(); ok {
			return m.startInput(inputRename, set.Name)
		}
		return m, nil
	case "a":
		return m.startInput(inputAddPattern, "")
	case "x":
		return m.startInput(inputRemovePattern, "")
	case "i":
		return m.startInput(inputImport, "")
	case "g":
		return m.startInput(inputGenerate, "beginner")
	case "d":
		m.deleteCurrent()
		return m, nil
	case "s":
		m.shareCurrent()
		return m, nil
	case "home":
		m.table.GotoTop()
	case "G", "end":
		m.table.GotoBottom()
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		m.renderPreview()
		return m, cmd
	}
	m.renderPreview()
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.inputMode = inputNone
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		kind := m.inputMode
		value := strings.TrimSpace(m.input.Value())
		m.inputMode = inputNone
		m.input.Blur()
		m.applyInput(kind, value)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) startInput(kind inputKind, value string) (tea.Model, tea.Cmd) {
	m.inputMode = kind
	m.input.Prompt = inputPrompt(kind)
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.status = ""
	return m, m.input.Focus()
}

func (m *Model) applyInput(kind inputKind, value string) {
	ctx := context.Background()
	set, hasSet := m.current()
	var err error
	switch kind {
	case inputCreate:
		var created model.PatternSet
		created, err = m.lib.Create(ctx, value, nil)
		if err == nil {
			m.status = fmt.Sprintf("Created %q", created.Name)
			m.refresh()
			m.moveCursorTo(created.ID)
		}
	case inputRename:
		if !hasSet {
			return
		}
		err = m.lib.Rename(ctx, set.ID, value)
		if err == nil {
			m.status = fmt.Sprintf("Renamed to %q", value)
		}
	case inputAddPattern, inputRemovePattern:
		if !hasSet {
			return
		}
		var p model.Pattern
		p, err = model.ParsePattern(value)
		if err != nil {
			break
		}
		if kind == inputAddPattern {
			err = m.lib.AddPattern(ctx, set.ID, p)
		} else {
			err = m.lib.RemovePattern(ctx, set.ID, p)
		}
		if err == nil {
			m.status = fmt.Sprintf("Updated %q", set.Name)
		}
	case inputImport:
		var decoded model.PatternSet
		decoded, err = patterns.DecodeShare(patterns.ShareTokenFromLink(value))
		if err == nil {
			m.importSet(ctx, decoded)
			return
		}
	case inputGenerate:
		var generated model.PatternSet
		generated, err = m.opts.Generator.GenerateSet(value, "")
		if err == nil {
			m.importSet(ctx, generated)
			return
		}
	}
	if err != nil {
		m.errMsg = err.Error()
	}
	m.refresh()
}

func (m *Model) importSet(ctx context.Context, set model.PatternSet) {
	imported, err := m.lib.Import(ctx, set)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.status = fmt.Sprintf("Imported %q with %d patterns", imported.Name, len(imported.Patterns))
	m.refresh()
	m.moveCursorTo(imported.ID)
}

func (m *Model) selectCurrent() {
	set, ok := m.current()
	if !ok {
		return
	}
	if err := m.setSelected(set.ID); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.status = fmt.Sprintf("Selected %q", set.Name)
	m.refresh()
}

func (m *Model) deleteCurrent() {
	set, ok := m.current()
	if !ok {
		return
	}
	next, err := m.lib.Delete(context.Background(), set.ID, m.selected)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	if next != m.selected {
		if err := m.setSelected(next); err != nil {
			m.errMsg = err.Error()
		}
	}
	m.status = fmt.Sprintf("Deleted %q", set.Name)
	m.refresh()
}

func (m *Model) shareCurrent() {
	set, ok := m.current()
	if !ok {
		return
	}
	token, err := patterns.EncodeShare(set)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.status = patterns.ShareLink(m.opts.ShareBase, token)
}

func (m *Model) setSelected(id string) error {
	if m.opts.OnSelect != nil {
		if err := m.opts.OnSelect(id); err != nil {
			return err
		}
	}
	m.selected = id
	return nil
}

func (m *Model) current() (model.PatternSet, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.sets) {
		return model.PatternSet{}, false
	}
	return m.sets[idx], true
}

func (m *Model) moveCursorTo(id string) {
	for i, set := range m.sets {
		if set.ID == id {
			m.table.SetCursor(i)
			break
		}
	}
	m.renderPreview()
}

func (m *Model) refresh() {
	m.sets = m.lib.Sets()
	rows := make([]table.Row, 0, len(m.sets))
	for _, set := range m.sets {
		mark := " "
		if set.ID == m.selected {
			mark = "*"
		}
		kind := "user"
		if set.IsDefault {
			kind = "default"
		}
		rows = append(rows, table.Row{mark, set.Name, kind, strconv.Itoa(len(set.Patterns))})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(maxInt(0, len(rows)-1))
	}
	m.renderPreview()
}

func (m *Model) renderPreview() {
	set, ok := m.current()
	if !ok {
		m.preview.SetContent("No pattern sets.")
		return
	}
	lines := []string{
		cardTitle.Render("Patterns in ") + cardValue.Render(set.Name),
	}
	if len(set.Patterns) == 0 {
		lines = append(lines, headerStyle.Render("Empty. Press a to add a pattern."))
	}
	for i, p := range set.Patterns {
		lines = append(lines, fmt.Sprintf("%3d  %s", i+1, p))
	}
	m.preview.SetContent(strings.Join(lines, "\n"))
	m.preview.GotoTop()
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	tableHeight := maxInt(3, bodyHeight/2)
	m.table.SetColumns(setColumns(m.width))
	m.table.SetWidth(m.width)
	m.table.SetHeight(tableHeight)
	m.preview.Width = m.width
	m.preview.Height = maxInt(1, bodyHeight-tableHeight-1)
	m.input.Width = maxInt(10, modalInnerWidth(m.width)-lipgloss.Width(m.input.Prompt))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(titleStyle.Render("X"))
	footerHeight = 2
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.inputMode != inputNone {
		return fitLines(m.renderModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(titleStyle.Render("Pattern sets"), m.width, headerHeight)
	body := fitLines(m.table.View()+"\n\n"+m.preview.View(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("enter: select  n: new  r: rename  a/x: add/remove pattern  d: delete  s: share  i: import  g: generate  q: quit")
	switch {
	case m.errMsg != "":
		return help + "\n" + errorStyle.Render(truncateLine(m.errMsg, m.width))
	case m.status != "":
		return help + "\n" + statusStyle.Render(m.status)
	}
	return help
}

func (m *Model) renderModal() string {
	body := []string{
		cardValue.Render(inputTitle(m.inputMode)),
		m.input.View(),
		headerStyle.Render("Enter to apply / Esc to cancel"),
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func inputTitle(kind inputKind) string {
	switch kind {
	case inputCreate:
		return "New Set"
	case inputRename:
		return "Rename Set"
	case inputAddPattern:
		return "Add Pattern"
	case inputRemovePattern:
		return "Remove Pattern"
	case inputImport:
		return "Import Shared Set"
	case inputGenerate:
		return "Generate Random Set"
	default:
		return ""
	}
}

func inputPrompt(kind inputKind) string {
	switch kind {
	case inputCreate, inputRename:
		return "Name: "
	case inputAddPattern, inputRemovePattern:
		return "Pattern (1-2-3): "
	case inputImport:
		return "Link or token: "
	case inputGenerate:
		return "Preset (" + strings.Join(patterns.PresetNames(), "/") + "): "
	default:
		return "> "
	}
}

func newInput() textinput.Model {
	input := textinput.New()
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func setColumns(width int) []table.Column {
	name := maxInt(20, width-4-9-9-6)
	return []table.Column{
		{Title: "", Width: 1},
		{Title: "Name", Width: name},
		{Title: "Kind", Width: 8},
		{Title: "Patterns", Width: 8},
	}
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 80))
}

func modalInnerWidth(width int) int {
	w := modalWidth(width)
	w -= 6 // 2 border + 4 padding
	if w < 10 {
		return 10
	}
	return w
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
