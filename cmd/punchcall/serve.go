package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/punchcall/internal/config"
	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/prefs"
	"github.com/verte-zerg/punchcall/internal/remote"
	"github.com/verte-zerg/punchcall/internal/telemetry"
)

var serveListen string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a headless session controlled over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from config, then "+config.DefaultListen+")")
	addTrainingFlags(cmd)
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	shutdown, err := telemetry.InitTracing(ctx)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			a.logger.Warn("failed to flush traces", slog.Any("error", err))
		}
	}()

	cfg, _, err := a.sessionConfig(cmd)
	if err != nil {
		return err
	}
	rt := a.newRuntime(cfg, sessionMute)
	defer rt.Close()

	listen := a.fileCfg.Listen()
	if cmd.Flags().Changed("listen") {
		listen = serveListen
	}

	go rt.engine.Run(ctx, time.Second)
	srv := remote.New(rt.engine, a.lib, cfg, remote.Options{
		Logger: a.logger,
		Save: func(c model.TrainingConfig) error {
			return prefs.Save(context.Background(), a.kv, c)
		},
	})
	if err := srv.ListenAndServe(ctx, listen); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}
