package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copylog/copylog/internal/cache"
	"github.com/copylog/copylog/internal/lockfile"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the lookup cache",
	}
	cmd.AddCommand(newCachePurgeCmd(a))
	return cmd
}

func newCachePurgeCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove expired cache entries",
		Long: `Remove expired entries from the sqlite or mysql cache. With --all every
entry is removed, so the next sync queries the servers for everything.

The memory and none drivers keep nothing between runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			lock, err := lockfile.Acquire(cfg.ResolvePath(lockfile.FileName), lockfile.Info{Command: "cache purge", Version: Version})
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			c, err := cache.Open(a.ctx, cache.Options{
				Driver: cfg.Cache.Driver,
				Path:   cfg.ResolvePath(cfg.Cache.Path),
				DSN:    cfg.Cache.DSN,
			}, a.logger)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer func() { _ = c.Close() }()

			purger, ok := c.(cache.Purger)
			if !ok {
				a.progress(cmd, "cache driver %q keeps nothing to purge", cfg.Cache.Driver)
				if a.jsonOutput {
					return outputJSON(cmd.OutOrStdout(), map[string]int64{"removed": 0})
				}
				return nil
			}

			var removed int64
			if all {
				removed, err = purger.Clear(a.ctx)
			} else {
				removed, err = purger.Purge(a.ctx)
			}
			if err != nil {
				return fmt.Errorf("purge cache: %w", err)
			}

			a.logger.Info("cache purged", "driver", cfg.Cache.Driver, "removed", removed, "all", all)
			if a.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]int64{"removed": removed})
			}
			if !a.quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries\n", removed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Remove every entry, not only expired ones")
	return cmd
}
