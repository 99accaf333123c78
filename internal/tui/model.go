// Package tui provides the Bubble Tea session interface.
package tui

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/session"
	"github.com/verte-zerg/punchcall/internal/signal"
)

const speedStep = 0.1

// Engine is the part of the session engine driven by the interface.
type Engine interface {
	Subscribe(buffer int) <-chan session.Event
	Unsubscribe(sub <-chan session.Event)
	Start(cfg model.TrainingConfig, set model.PatternSet) error
	Pause()
	Resume()
	Stop()
	SetPlaybackSpeed(v float64) float64
	Snapshot() session.Snapshot
}

// Options configures optional collaborators.
type Options struct {
	Logger *slog.Logger
	// Save persists configuration changes made from the keyboard.
	Save func(model.TrainingConfig) error
}

// Model implements the Bubble Tea session UI.
type Model struct {
	engine Engine
	cfg    model.TrainingConfig
	set    model.PatternSet
	save   func(model.TrainingConfig) error
	logger *slog.Logger

	events     <-chan session.Event
	snap       session.Snapshot
	lastSignal signal.Kind
	summary    string
	errMsg     string

	width  int
	height int

	keys keyMap
	help help.Model
	bar  progress.Model
}

type eventMsg struct {
	event session.Event
	ok    bool
}

var (
	patternStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	phaseStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	restStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#6EA8FE")).Bold(true)
	clockStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	pausedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0")).Italic(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a session TUI model and subscribes it to engine events.
func NewModel(engine Engine, cfg model.TrainingConfig, set model.PatternSet, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bar := progress.New(progress.WithSolidFill("#C89A3A"), progress.WithoutPercentage(), progress.WithWidth(40))
	m := &Model{
		engine: engine,
		cfg:    cfg,
		set:    set.Clone(),
		save:   opts.Save,
		logger: logger,
		events: engine.Subscribe(64),
		keys:   newKeyMap(),
		help:   help.New(),
		bar:    bar,
	}
	m.snap = engine.Snapshot()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// Close detaches the model from the engine.
func (m *Model) Close() {
	m.engine.Unsubscribe(m.events)
}

func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return eventMsg{event: ev, ok: ok}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = clampInt(msg.Width-8, 10, 60)
		return m, nil
	case eventMsg:
		if !msg.ok {
			return m, nil
		}
		m.handleEvent(msg.event)
		return m, waitForEvent(m.events)
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleEvent(ev session.Event) {
	m.snap = m.engine.Snapshot()
	switch ev.Type {
	case session.EventSignal:
		if ev.Played {
			m.lastSignal = ev.Signal
		}
	case session.EventPhase:
		if ev.State.Phase == model.PhaseComplete {
			m.summary = completionSummary(m.cfg.Rounds, m.snap.Callouts)
		}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		m.toggle()
	case key.Matches(msg, m.keys.Stop):
		m.engine.Stop()
	case key.Matches(msg, m.keys.Faster):
		m.changeSpeed(speedStep)
	case key.Matches(msg, m.keys.Slower):
		m.changeSpeed(-speedStep)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	m.snap = m.engine.Snapshot()
	return m, nil
}

func (m *Model) toggle() {
	state := m.engine.Snapshot().State
	switch {
	case state.Phase == model.PhaseSetup || state.Phase == model.PhaseComplete:
		m.summary = ""
		m.lastSignal = ""
		if err := m.engine.Start(m.cfg, m.set); err != nil {
			m.errMsg = err.Error()
			return
		}
		m.errMsg = ""
	case state.IsPaused:
		m.engine.Resume()
	default:
		m.engine.Pause()
	}
}

func (m *Model) changeSpeed(delta float64) {
	next := math.Round((m.cfg.PlaybackSpeed+delta)*10) / 10
	m.cfg.PlaybackSpeed = m.engine.SetPlaybackSpeed(next)
	if m.save == nil {
		return
	}
	if err := m.save(m.cfg); err != nil {
		m.logger.Error("failed to save playback speed", slog.Any("error", err))
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	content := m.renderBody()
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	helpView := m.help.View(m.keys)
	if m.height < 4 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bottom := footer + "\n" + helpView
	bodyHeight := m.height - lipgloss.Height(bottom)
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLines := lipgloss.Place(m.width, lipgloss.Height(bottom), lipgloss.Center, lipgloss.Bottom, bottom)
	return body + "\n" + footerLines
}

func (m *Model) renderBody() string {
	state := m.snap.State
	lines := []string{m.renderPhase(state)}
	switch state.Phase {
	case model.PhaseSetup, model.PhaseComplete:
		lines = append(lines, "", pendingStyle.Render(m.setupLine()))
		if m.summary != "" {
			lines = append(lines, "", phaseStyle.Render(m.summary))
		}
	default:
		lines = append(lines,
			clockStyle.Render(formatClock(state.TimeRemainingSeconds)),
			m.bar.ViewAs(m.phaseProgress(state)),
			"",
			patternStyle.Render(formatCallout(state.CurrentPattern)),
		)
		if state.IsPaused {
			lines = append(lines, pausedStyle.Render("paused"))
		}
	}
	width := int(float64(m.width) * 0.70)
	if width > 0 && len(m.set.Patterns) > 0 {
		runes := buildStyledPatterns(m.set.Patterns, state.CurrentPattern)
		lines = append(lines, "", wrapStyledRunes(runes, width))
	}
	if m.errMsg != "" {
		lines = append(lines, "", errorStyle.Render(m.errMsg))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderPhase(state model.SessionState) string {
	rounds := m.cfg.Rounds
	if m.snap.Config.Rounds > 0 && state.Phase != model.PhaseSetup {
		rounds = m.snap.Config.Rounds
	}
	switch state.Phase {
	case model.PhaseCountdown:
		return phaseStyle.Render("Get ready")
	case model.PhaseRound:
		return phaseStyle.Render(fmt.Sprintf("Round %d/%d", state.CurrentRound, rounds))
	case model.PhaseRest:
		return restStyle.Render(fmt.Sprintf("Rest · next round %d/%d", state.CurrentRound+1, rounds))
	case model.PhaseComplete:
		return phaseStyle.Render("Complete")
	default:
		return phaseStyle.Render("Ready")
	}
}

func (m *Model) setupLine() string {
	return fmt.Sprintf("%d × %s rounds, %s rest", m.cfg.Rounds, formatClock(m.cfg.RoundSeconds), formatClock(m.cfg.RestSeconds))
}

func (m *Model) phaseProgress(state model.SessionState) float64 {
	cfg := m.snap.Config
	total := 0
	switch state.Phase {
	case model.PhaseCountdown:
		total = session.CountdownSeconds
	case model.PhaseRound:
		total = cfg.RoundSeconds
	case model.PhaseRest:
		total = cfg.RestSeconds
	}
	if total <= 0 {
		return 0
	}
	done := float64(total-state.TimeRemainingSeconds) / float64(total)
	return math.Max(0, math.Min(1, done))
}

func (m *Model) renderFooter() string {
	name := m.set.Name
	if m.snap.SetName != "" {
		name = m.snap.SetName
	}
	segments := []string{
		fmt.Sprintf("Set %s", name),
		fmt.Sprintf("Speed %.1fx", m.cfg.PlaybackSpeed),
		fmt.Sprintf("Voice %s", m.cfg.Voice),
		fmt.Sprintf("Callouts %d", m.snap.Callouts),
	}
	if m.lastSignal != "" {
		segments = append(segments, fmt.Sprintf("Signal %s", m.lastSignal))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func completionSummary(rounds, callouts int) string {
	return fmt.Sprintf("Done: %d rounds · %d callouts", rounds, callouts)
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func formatCallout(p model.Pattern) string {
	if len(p) == 0 {
		return "·"
	}
	parts := make([]string, len(p))
	for i, unit := range p {
		parts[i] = fmt.Sprintf("%d", unit)
	}
	return strings.Join(parts, "  ")
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
