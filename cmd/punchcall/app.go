package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/verte-zerg/punchcall/internal/audio"
	"github.com/verte-zerg/punchcall/internal/clock"
	"github.com/verte-zerg/punchcall/internal/config"
	"github.com/verte-zerg/punchcall/internal/cue"
	"github.com/verte-zerg/punchcall/internal/logging"
	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/patterns"
	"github.com/verte-zerg/punchcall/internal/prefs"
	"github.com/verte-zerg/punchcall/internal/session"
	"github.com/verte-zerg/punchcall/internal/signal"
	"github.com/verte-zerg/punchcall/internal/store"
)

// app holds what every command needs: config, logger, store and library.
type app struct {
	fileCfg config.FileConfig
	logger  *slog.Logger
	kv      store.KV
	lib     *patterns.Library
	logFile io.Closer
}

// openApp loads the config file, builds the logger and opens the store.
// With toFile the logger writes to the log file, since the terminal belongs
// to the TUI.
func openApp(ctx context.Context, toFile bool) (*app, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	a := &app{fileCfg: fileCfg}

	var logOut io.Writer = os.Stderr
	if toFile {
		f, err := logging.OpenFile(fileCfg.LogFile())
		if err != nil {
			return nil, err
		}
		a.logFile = f
		logOut = f
	}
	a.logger, err = logging.New(logOut, fileCfg.LogLevel())
	if err != nil {
		a.Close()
		return nil, err
	}
	slog.SetDefault(a.logger)

	a.kv, err = store.OpenBackend(fileCfg.StoreBackend(), fileCfg.StorePath())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.lib, err = patterns.Load(ctx, a.kv)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load pattern sets: %w", err)
	}
	return a, nil
}

func (a *app) Close() {
	if a.kv != nil {
		if cerr := a.kv.Close(); cerr != nil {
			logErrf("failed to close store: %v\n", cerr)
		}
	}
	if a.logFile != nil {
		if cerr := a.logFile.Close(); cerr != nil {
			// Best-effort close of the log file.
			_ = cerr
		}
	}
}

// storedConfig returns built-in defaults overlaid with the TOML [training]
// table and then the persisted snapshot.
func (a *app) storedConfig(ctx context.Context) (model.TrainingConfig, error) {
	base := model.DefaultTrainingConfig()
	a.fileCfg.Training.Apply(&base)
	cfg, err := prefs.Load(ctx, a.kv, base)
	if err != nil {
		return base, fmt.Errorf("failed to load saved config: %w", err)
	}
	return cfg, nil
}

// selection returns the id of the selected set, falling back to the first
// set when the stored one no longer exists.
func (a *app) selection(ctx context.Context) (string, error) {
	cfg, err := a.storedConfig(ctx)
	if err != nil {
		return "", err
	}
	set, err := a.resolveSet(cfg.SelectedPatternSetID, false)
	if err != nil {
		return "", err
	}
	return set.ID, nil
}

func (a *app) saveSelection(ctx context.Context, id string) error {
	cfg, err := a.storedConfig(ctx)
	if err != nil {
		return err
	}
	cfg.SelectedPatternSetID = id
	if err := prefs.Save(ctx, a.kv, cfg); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	return nil
}

// resolveSet finds ref by id or name. A stale reference that was not given
// explicitly falls back to the first set.
func (a *app) resolveSet(ref string, explicit bool) (model.PatternSet, error) {
	set, err := a.lib.Find(ref)
	if err == nil {
		return set, nil
	}
	if explicit || !errors.Is(err, patterns.ErrSetNotFound) {
		return model.PatternSet{}, err
	}
	sets := a.lib.Sets()
	if len(sets) == 0 {
		return model.PatternSet{}, err
	}
	a.logger.Warn("selected pattern set not found, using first set",
		slog.String("set", ref), slog.String("fallback", sets[0].Name))
	return sets[0], nil
}

// runtime is the audio and session stack of one command.
type runtime struct {
	engine  *session.Engine
	closers []func() error
	logger  *slog.Logger
}

func (a *app) newRuntime(cfg model.TrainingConfig, mute bool) *runtime {
	rt := &runtime{logger: a.logger}
	clk := clock.Real()

	var sink audio.Sink = audio.NullSink{Logger: a.logger}
	if !mute && a.fileCfg.AudioBackend() == config.AudioPulse {
		pulse, err := audio.NewPulseSink(a.logger)
		if err != nil {
			a.logger.Warn("audio unavailable, continuing muted", slog.Any("error", err))
		} else {
			sink = pulse
			rt.closers = append(rt.closers, pulse.Close)
		}
	}

	signalOpts := []signal.Option{signal.WithLogger(a.logger)}
	if port := a.fileCfg.MIDIPort(); port != "" {
		out, err := signal.NewMIDIOutput(port)
		if err != nil {
			a.logger.Warn("midi mirror disabled", slog.Any("error", err))
		} else {
			signalOpts = append(signalOpts, signal.WithMirror(out))
			rt.closers = append(rt.closers, out.Close)
		}
	}

	resolver := audio.NewResolver(a.fileCfg.VoicesDir())
	speaker := cue.New(clk, sink, resolver, a.logger)
	signals := signal.New(clk, sink, signalOpts...)
	rt.engine = session.New(clk, speaker, signals, cfg, session.WithLogger(a.logger))
	return rt
}

func (rt *runtime) Close() {
	rt.engine.Close()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("failed to close audio output", slog.Any("error", err))
		}
	}
}
