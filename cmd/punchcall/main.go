// Package main provides the CLI entrypoint for punchcall.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	ossignal "os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/punchcall/internal/audio"
	"github.com/verte-zerg/punchcall/internal/config"
	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/prefs"
	"github.com/verte-zerg/punchcall/internal/tui"
)

var trainingFlagNames = []string{
	"rounds", "round-seconds", "rest-seconds", "set",
	"base-delay", "delay-variance", "speed", "voice", "overlap",
}

var (
	sessionRounds        int
	sessionRoundSeconds  int
	sessionRestSeconds   int
	sessionSet           string
	sessionBaseDelay     float64
	sessionDelayVariance float64
	sessionSpeed         float64
	sessionVoice         string
	sessionOverlap       int
	sessionMute          bool
)

func main() {
	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "punchcall",
		Short:         "Interval-training callout timer",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runSessionCmd,
	}
	addTrainingFlags(rootCmd)

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVoicesCmd())
	rootCmd.AddCommand(newSetsCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func addTrainingFlags(cmd *cobra.Command) {
	def := model.DefaultTrainingConfig()
	cmd.Flags().IntVar(&sessionRounds, "rounds", def.Rounds, "number of rounds (1-20)")
	cmd.Flags().IntVar(&sessionRoundSeconds, "round-seconds", def.RoundSeconds, "round length in seconds (30-300, step 15)")
	cmd.Flags().IntVar(&sessionRestSeconds, "rest-seconds", def.RestSeconds, "rest length in seconds (10-120)")
	cmd.Flags().StringVar(&sessionSet, "set", def.SelectedPatternSetID, "pattern set id or name")
	cmd.Flags().Float64Var(&sessionBaseDelay, "base-delay", def.BaseDelay, "seconds between callouts")
	cmd.Flags().Float64Var(&sessionDelayVariance, "delay-variance", def.DelayVariance, "random extra delay in seconds")
	cmd.Flags().Float64Var(&sessionSpeed, "speed", def.PlaybackSpeed, "callout playback speed (0.5-2.0)")
	cmd.Flags().StringVar(&sessionVoice, "voice", def.Voice, "voice pack (see: punchcall voices)")
	cmd.Flags().IntVar(&sessionOverlap, "overlap", def.AudioOverlap, "callout overlap in ms (0 sequential, >=1000 simultaneous)")
	cmd.Flags().BoolVar(&sessionMute, "mute", false, "do not play audio")
}

func runSessionCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, set, err := a.sessionConfig(cmd)
	if err != nil {
		return err
	}
	rt := a.newRuntime(cfg, sessionMute)
	defer rt.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go rt.engine.Run(runCtx, time.Second)

	m := tui.NewModel(rt.engine, cfg, set, tui.Options{
		Logger: a.logger,
		Save: func(c model.TrainingConfig) error {
			return prefs.Save(runCtx, a.kv, c)
		},
	})
	defer m.Close()
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(runCtx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// sessionConfig layers built-in defaults, the TOML [training] table, the
// persisted snapshot and changed flags, then resolves the pattern set.
// Changed flags are saved back to the snapshot.
func (a *app) sessionConfig(cmd *cobra.Command) (model.TrainingConfig, model.PatternSet, error) {
	ctx := cmd.Context()
	cfg, err := a.storedConfig(ctx)
	if err != nil {
		return model.TrainingConfig{}, model.PatternSet{}, err
	}
	applyIntConfig(cmd, "rounds", &sessionRounds, &cfg.Rounds)
	applyIntConfig(cmd, "round-seconds", &sessionRoundSeconds, &cfg.RoundSeconds)
	applyIntConfig(cmd, "rest-seconds", &sessionRestSeconds, &cfg.RestSeconds)
	applyStringConfig(cmd, "set", &sessionSet, &cfg.SelectedPatternSetID)
	applyFloatConfig(cmd, "base-delay", &sessionBaseDelay, &cfg.BaseDelay)
	applyFloatConfig(cmd, "delay-variance", &sessionDelayVariance, &cfg.DelayVariance)
	applyFloatConfig(cmd, "speed", &sessionSpeed, &cfg.PlaybackSpeed)
	applyStringConfig(cmd, "voice", &sessionVoice, &cfg.Voice)
	applyIntConfig(cmd, "overlap", &sessionOverlap, &cfg.AudioOverlap)

	cfg = model.TrainingConfig{
		Rounds:               sessionRounds,
		RoundSeconds:         sessionRoundSeconds,
		RestSeconds:          sessionRestSeconds,
		SelectedPatternSetID: sessionSet,
		BaseDelay:            sessionBaseDelay,
		DelayVariance:        sessionDelayVariance,
		PlaybackSpeed:        sessionSpeed,
		Voice:                sessionVoice,
		AudioOverlap:         sessionOverlap,
	}

	set, err := a.resolveSet(cfg.SelectedPatternSetID, cmd.Flags().Changed("set"))
	if err != nil {
		return model.TrainingConfig{}, model.PatternSet{}, err
	}
	cfg.SelectedPatternSetID = set.ID

	if err := cfg.Validate(); err != nil {
		return model.TrainingConfig{}, model.PatternSet{}, err
	}
	if err := a.checkVoice(cfg.Voice); err != nil {
		return model.TrainingConfig{}, model.PatternSet{}, err
	}
	if flagsChanged(cmd) {
		if err := prefs.Save(ctx, a.kv, cfg); err != nil {
			return model.TrainingConfig{}, model.PatternSet{}, fmt.Errorf("failed to save config: %w", err)
		}
	}
	return cfg, set, nil
}

func flagsChanged(cmd *cobra.Command) bool {
	for _, name := range trainingFlagNames {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (a *app) checkVoice(voice string) error {
	voices, err := audio.ListVoices(a.fileCfg.VoicesDir())
	if err != nil {
		return err
	}
	for _, v := range voices {
		if v == voice {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (available: %s)", audio.ErrUnknownVoice, voice, strings.Join(voices, ", "))
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newVoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List voice packs",
		Args:  cobra.NoArgs,
		RunE:  runVoicesCmd,
	}
}

func runVoicesCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	dir := fileCfg.VoicesDir()
	voices, err := audio.ListVoices(dir)
	if err != nil {
		return err
	}
	for _, voice := range voices {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), voice); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if len(voices) == 1 {
		logErrf("No voice packs installed. Add WAV files as %s\n", filepath.Join(dir, "<voice>", "<unit>.wav"))
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	def := model.DefaultTrainingConfig()
	return fmt.Sprintf(`# punchcall configuration
# Uncomment a value to enable it. CLI flags override config values.

[training]
# rounds = %d             # Number of rounds (1-20)
# round-seconds = %d     # Round length in seconds (30-300, step 15)
# rest-seconds = %d       # Rest length in seconds (10-120)
# set = %q  # Pattern set id or name
# base-delay = %.1f       # Seconds between callouts
# delay-variance = %.1f   # Random extra delay in seconds
# speed = %.1f            # Callout playback speed (0.5-2.0)
# voice = %q           # Voice pack
# overlap = %d             # Callout overlap in ms

[audio]
# backend = %q        # "pulse" or "null"
# voices-dir = %q
# midi-port = ""          # Mirror signals to this MIDI output

[store]
# backend = "sqlite"      # "sqlite" or "badger"
# path = %q

[remote]
# listen = %q

[log]
# level = "info"
# file = %q
`,
		def.Rounds,
		def.RoundSeconds,
		def.RestSeconds,
		def.SelectedPatternSetID,
		def.BaseDelay,
		def.DelayVariance,
		def.PlaybackSpeed,
		def.Voice,
		def.AudioOverlap,
		config.AudioPulse,
		config.DefaultVoicesDir(),
		config.DefaultDBPath(),
		config.DefaultListen,
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
