package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/copylog/copylog/internal/cache"
)

// Engine copies worklogs from a source tracker to a target tracker, one
// project pair at a time. It runs sequentially; a failure in one worklog
// or one pair never aborts the rest of the batch.
type Engine struct {
	Source IssueTracker
	Target IssueTracker
	Cache  cache.Cache
	Logger *slog.Logger

	Finder     *Finder
	Resolver   *Resolver
	Reconciler *Reconciler

	// Callbacks for UI feedback (optional).
	OnMessage func(msg string)
	OnWarning func(msg string)
}

// NewEngine wires a finder on source and a resolver and reconciler on
// target. loc is the reference timezone for duplicate detection.
func NewEngine(source, target IssueTracker, c cache.Cache, loc *time.Location, logger *slog.Logger) *Engine {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Source:     source,
		Target:     target,
		Cache:      c,
		Logger:     logger,
		Finder:     NewFinder(source, c, logger),
		Resolver:   NewResolver(target, c, logger),
		Reconciler: NewReconciler(target, c, loc, logger),
	}
}

// Verify checks the credentials of both trackers.
func (e *Engine) Verify(ctx context.Context, sourceUser, targetUser string) error {
	if err := e.Source.VerifyCredentials(ctx, sourceUser); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := e.Target.VerifyCredentials(ctx, targetUser); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	return nil
}

// Sync processes every configured project pair in source key order.
// The returned error is non-nil only for failures that stop the whole
// run: rejected credentials or a cancelled context.
func (e *Engine) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	result := &SyncResult{Success: true, DryRun: opts.DryRun}

	if !opts.SkipVerify {
		if err := e.Verify(ctx, opts.SourceUser, opts.TargetUser); err != nil {
			result.Success = false
			return result, err
		}
	}

	mappings, errs := ParseMappings(opts.Projects)
	for _, err := range errs {
		e.warn(result, "Skipping project mapping: %v", err)
		result.Success = false
	}

	for _, m := range mappings {
		if err := ctx.Err(); err != nil {
			result.Success = false
			return result, err
		}
		pair := e.syncPair(ctx, m, opts)
		result.add(pair)
		if pair.Error != "" {
			e.warn(result, "%s: %s", m, pair.Error)
		}
	}

	return result, ctx.Err()
}

func (e *Engine) syncPair(ctx context.Context, m ProjectMapping, opts SyncOptions) PairResult {
	pair := PairResult{Mapping: m}
	logger := e.Logger.With("source", m.Source, "target", m.TargetProject)
	e.msg("Copying %s", m)

	logs, err := e.Finder.Find(ctx, m.Source, opts.SourceUser, opts.Since)
	if err != nil {
		logger.Error("failed to find worklogs", "error", err)
		pair.Error = err.Error()
		return pair
	}
	pair.Found = len(logs)

	for i := range logs {
		if ctx.Err() != nil {
			pair.Error = ctx.Err().Error()
			return pair
		}
		wl := &logs[i]
		if wl.Issue == nil {
			logger.Warn("worklog without parent issue", "id", wl.ID)
			pair.Errors++
			continue
		}

		target, created, err := e.Resolver.Resolve(ctx, m, wl.Issue, !opts.DryRun)
		if err != nil {
			var ice *IssueCreationError
			if errors.As(err, &ice) {
				logger.Error("failed to create target issue", "source_issue", wl.Issue.Key, "error", err)
			} else {
				logger.Error("failed to resolve target issue", "source_issue", wl.Issue.Key, "error", err)
			}
			pair.Errors++
			continue
		}
		if created {
			pair.IssuesCreated++
			e.msg("  Created %s for %s", target.Key, wl.Issue.Key)
		}
		if target == nil {
			// Dry run and no target issue yet: it would be created and
			// the worklog copied.
			e.msg("  Would create issue %q and copy %s", TargetSummary(wl.Issue), wl)
			pair.Copied++
			continue
		}

		outcome, err := e.Reconciler.Reconcile(ctx, target, wl, opts.TargetUser, opts.DryRun)
		if err != nil {
			logger.Error("failed to copy worklog", "source_issue", wl.Issue.Key, "target_issue", target.Key, "error", err)
			pair.Errors++
			continue
		}
		switch outcome {
		case OutcomeSkipped:
			pair.Skipped++
		case OutcomeCopied:
			pair.Copied++
			e.msg("  Copied %s to %s", wl, target.Key)
		case OutcomeWouldCopy:
			pair.Copied++
			e.msg("  Would copy %s to %s", wl, target.Key)
		}
	}

	logger.Info("pair done", "found", pair.Found, "copied", pair.Copied, "skipped", pair.Skipped, "errors", pair.Errors)
	return pair
}

func (e *Engine) msg(format string, args ...interface{}) {
	if e.OnMessage != nil {
		e.OnMessage(fmt.Sprintf(format, args...))
	}
}

func (e *Engine) warn(result *SyncResult, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	result.Warnings = append(result.Warnings, msg)
	if e.OnWarning != nil {
		e.OnWarning(msg)
	}
}
