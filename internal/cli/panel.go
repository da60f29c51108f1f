package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/runnerr0/histfeed/internal/config"
	"github.com/runnerr0/histfeed/internal/logging"
	"github.com/runnerr0/histfeed/internal/panel"
)

// Execute implements the go-flags Commander interface for PanelCommand.
// Logs go to the configured log file; the terminal belongs to the panel.
func (c *PanelCommand) Execute(args []string) error {
	if !hasTTY() {
		return errors.New("panel needs an interactive terminal; use the history command instead")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	logPath, err := cfg.LogPath()
	if err != nil {
		return fmt.Errorf("resolve log path: %w", err)
	}
	var out io.Writer = io.Discard
	if logPath != "" {
		f, err := logging.OpenFile(logPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	initLogging(c.globals, cfg, out)

	dbPath, err := resolveDBPath(c.globals, cfg)
	if err != nil {
		return fmt.Errorf("resolve db path: %w", err)
	}
	store, db, err := openStore(ctx, dbPath, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	feed := newFeed(store, cfg, logging.WithCommand("panel"), nil)
	log := logging.WithCommand("panel").With().Str("session", feed.Session()).Logger()
	log.Info().Str("db", dbPath).Str("version", c.version).Msg("panel started")

	err = panel.Run(ctx, store, feed, panelOptions(cfg, log))
	log.Info().Err(err).Msg("panel closed")
	return err
}

// panelOptions maps the feed config onto panel timings. Zero values keep
// the defaults.
func panelOptions(cfg *config.Config, log zerolog.Logger) panel.Options {
	opts := panel.DefaultOptions()
	if d := cfg.Feed.SelectionDebounce(); d > 0 {
		opts.SelectionDebounce = d
	}
	if d := cfg.Feed.SearchDebounce(); d > 0 {
		opts.SearchDebounce = d
	}
	if d := cfg.Feed.ScrollThrottle(); d > 0 {
		opts.ScrollThrottle = d
	}
	if cfg.Feed.ScrollThresholdPx > 0 {
		opts.ScrollThreshold = cfg.Feed.ScrollThresholdPx
	}
	opts.Logger = log
	return opts
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
