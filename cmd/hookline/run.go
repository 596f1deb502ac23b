package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dshills/hookline/internal/config"
	"github.com/dshills/hookline/internal/script"
	"github.com/dshills/hookline/internal/session"
	"github.com/dshills/hookline/internal/watch"
)

func newRunCmd() *cobra.Command {
	var watchFiles bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot the game with mods and call its entry function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			if !watchFiles {
				return runOnce(cmd.Context(), cfg, logger)
			}
			return runWatch(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().BoolVarP(&watchFiles, "watch", "w", false, "restart when game or mod files change")
	return cmd
}

// runOnce boots a session, runs the entry and closes the session. The Lua
// state is used only on the calling goroutine.
func runOnce(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	s, err := session.Boot(cfg, session.WithLogger(logger))
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.Run(ctx)
	if err != nil {
		return err
	}
	for i, r := range results {
		logger.Info("entry returned", "index", i, "value", script.FromLua(r))
	}
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	paths := append([]string{cfg.Mods.Dir, cfgFile}, cfg.Game.Scripts...)
	paths = append(paths, cfg.Bootstrap.Scripts...)

	w, err := watch.New(paths, watch.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	changes := make(chan struct{}, 1)
	go func() {
		_ = w.Run(ctx, func([]string) {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
	}()

	for {
		sctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- runOnce(sctx, cfg, logger) }()

		restart := false
		select {
		case <-ctx.Done():
		case <-changes:
			restart = true
		case err := <-done:
			logSessionEnd(logger, err)
			done = nil
			select {
			case <-ctx.Done():
			case <-changes:
				restart = true
			}
		}

		cancel()
		if done != nil {
			logSessionEnd(logger, <-done)
		}
		if !restart {
			return nil
		}

		logger.Info("restarting session")
		if next, err := loadConfig(); err != nil {
			logger.Error("config reload failed; keeping previous config", "err", err)
		} else {
			cfg = next
		}
	}
}

func logSessionEnd(logger *log.Logger, err error) {
	switch {
	case err == nil:
		logger.Info("session finished; waiting for changes")
	case errors.Is(err, context.Canceled):
		logger.Debug("session cancelled")
	default:
		logger.Error("session failed", "err", err)
	}
}
