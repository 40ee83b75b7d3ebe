package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/copylog/copylog/internal/cache"
	"github.com/copylog/copylog/internal/config"
	"github.com/copylog/copylog/internal/lockfile"
	"github.com/copylog/copylog/internal/timeparsing"
	"github.com/copylog/copylog/internal/tracker"
	"github.com/copylog/copylog/internal/ui"
)

type syncFlags struct {
	dryRun     bool
	skipVerify bool
	interval   time.Duration
}

func newSyncCmd(a *app) *cobra.Command {
	var flags syncFlags
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy worklogs from the source server to the target server",
		Long: `Copy the source user's worklogs for every configured project pair.

For each source issue updated since the configured date, the matching target
issue is looked up by summary (and created when missing), then each worklog
is logged on it unless an equivalent worklog already exists.

Only one sync runs per config directory at a time.

Examples:
  copylog sync                  # Copy once
  copylog sync --dry-run        # Show what would be copied
  copylog sync --interval 30m   # Copy every 30 minutes until interrupted`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Resolve and compare without creating issues or worklogs")
	cmd.Flags().BoolVar(&flags.skipVerify, "skip-verify", false, "Skip the credential check before syncing")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "Repeat the sync at this interval, reloading edited config files")
	return cmd
}

func (a *app) runSync(cmd *cobra.Command, flags syncFlags) error {
	if err := prepare(a.cfg, passwordPrompt()); err != nil {
		return err
	}

	lock, err := lockfile.Acquire(a.cfg.ResolvePath(lockfile.FileName), lockfile.Info{Command: "sync", Version: Version})
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	if flags.interval <= 0 {
		return a.syncOnce(cmd, a.cfg, flags)
	}
	return a.syncLoop(cmd, flags)
}

// syncOnce runs one full batch with cfg and prints its summary.
func (a *app) syncOnce(cmd *cobra.Command, cfg *config.Config, flags syncFlags) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	since, err := timeparsing.SinceOperand(cfg.Since, time.Now().In(loc))
	if err != nil {
		return &config.ConfigError{Err: err}
	}

	source, err := a.openTracker("source", cfg.From)
	if err != nil {
		return err
	}
	target, err := a.openTracker("target", cfg.To)
	if err != nil {
		return err
	}

	c, err := cache.Open(a.ctx, cache.Options{
		Driver: cfg.Cache.Driver,
		Path:   cfg.ResolvePath(cfg.Cache.Path),
		DSN:    cfg.Cache.DSN,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = c.Close() }()

	engine := tracker.NewEngine(source, target, c, loc, a.logger)
	engine.Finder.Limit = cfg.Limit
	if cfg.IssueTypeID != "" {
		engine.Resolver.IssueTypeID = cfg.IssueTypeID
	}
	engine.OnMessage = func(msg string) {
		a.progress(cmd, "%s", ui.RenderMuted(msg))
	}

	a.logger.Info("sync started", "projects", len(cfg.Projects), "since", since, "dry_run", flags.dryRun)
	result, syncErr := engine.Sync(a.ctx, tracker.SyncOptions{
		Projects:   cfg.Projects,
		Since:      since,
		SourceUser: cfg.From.Username,
		TargetUser: cfg.To.Username,
		DryRun:     flags.dryRun,
		SkipVerify: flags.skipVerify,
	})
	if result != nil && (syncErr == nil || len(result.Pairs) > 0) {
		if err := a.printSyncResult(cmd, result); err != nil {
			return err
		}
	}
	if syncErr != nil {
		return syncErr
	}
	a.logger.Info("sync finished",
		"copied", result.Stats.Copied,
		"skipped", result.Stats.Skipped,
		"errors", result.Stats.Errors,
		"pairs_failed", result.Stats.PairsFailed)
	return nil
}

func (a *app) printSyncResult(cmd *cobra.Command, result *tracker.SyncResult) error {
	if a.jsonOutput {
		return outputJSON(cmd.OutOrStdout(), result)
	}
	if a.quiet && result.Success {
		return nil
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), ui.SyncSummary(result))
	return err
}

// syncLoop repeats syncOnce every interval until the context is cancelled.
// Edited config files are reloaded before the next run; an invalid edit
// keeps the previous settings.
func (a *app) syncLoop(cmd *cobra.Command, flags syncFlags) error {
	watcher, err := config.NewWatcher(a.cfg.Dir, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()
	go func() { _ = watcher.Run(a.ctx) }()

	ticker := time.NewTicker(flags.interval)
	defer ticker.Stop()

	cfg := a.cfg
	for {
		if err := a.syncOnce(cmd, cfg, flags); err != nil {
			if a.ctx.Err() != nil {
				return nil
			}
			var authErr *tracker.AuthError
			if errors.As(err, &authErr) {
				return err
			}
			a.logger.Error("sync run failed", "error", err)
		}

		a.progress(cmd, "%s", ui.RenderMuted(fmt.Sprintf("next sync at %s", time.Now().Add(flags.interval).Format("15:04:05"))))
		select {
		case <-a.ctx.Done():
			return nil
		case <-ticker.C:
		}

		if watcher.Changed() {
			cfg = a.reloadConfig(cfg)
		}
	}
}

// reloadConfig reads the config directory again. Passwords that were
// prompted for are kept when the endpoint is unchanged.
func (a *app) reloadConfig(current *config.Config) *config.Config {
	next, err := config.Load(current.Dir)
	if err == nil {
		keepPassword(&next.From, current.From)
		keepPassword(&next.To, current.To)
		err = prepare(next, nil)
	}
	if err != nil {
		a.logger.Warn("config reload failed, keeping previous settings", "error", err)
		return current
	}
	a.logger.Info("config reloaded", "files", next.Files)
	return next
}

func keepPassword(next *config.Endpoint, current config.Endpoint) {
	if next.Password == "" && next.URL == current.URL && next.Username == current.Username {
		next.Password = current.Password
	}
}
