package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/copylog/copylog/internal/cache"
	"github.com/copylog/copylog/internal/types"
)

// SameWork reports whether two worklogs describe the same work: equal
// comment, equal duration, started on the same calendar day in loc.
// Worklog ids are never compared; they differ across servers.
func SameWork(a, b *types.Worklog, loc *time.Location) bool {
	if a.Comment != b.Comment {
		return false
	}
	if a.TimeSpentSeconds != b.TimeSpentSeconds {
		return false
	}
	return a.Day(loc) == b.Day(loc)
}

// Reconciler copies a worklog onto a target issue unless an equivalent
// entry by the same author is already there.
type Reconciler struct {
	Tracker  IssueTracker
	Cache    cache.Cache
	Logger   *slog.Logger
	Location *time.Location // reference timezone for day comparison
}

// NewReconciler creates a reconciler writing to t.
func NewReconciler(t IssueTracker, c cache.Cache, loc *time.Location, logger *slog.Logger) *Reconciler {
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{
		Tracker:  t,
		Cache:    c,
		Logger:   logger.With("component", "reconciler"),
		Location: loc,
	}
}

// Existing returns the worklogs on a target issue.
func (r *Reconciler) Existing(ctx context.Context, issueKey string) ([]types.Worklog, error) {
	key := IssueWorklogsKey(issueKey)
	var cached []types.Worklog
	if cache.GetJSON(ctx, r.Cache, key, &cached) {
		return cached, nil
	}
	logs, err := r.Tracker.GetFullWorklog(ctx, issueKey)
	if err != nil {
		return nil, &RemoteQueryError{Op: fmt.Sprintf("get worklogs of %s", issueKey), Err: err}
	}
	if err := cache.PutJSON(ctx, r.Cache, key, logs, IssueWorklogTTL); err != nil {
		r.Logger.Warn("failed to cache worklogs", "key", key, "error", err)
	}
	return logs, nil
}

// Duplicate returns the entry among existing that author logged for the
// same work as candidate, or nil.
func (r *Reconciler) Duplicate(existing []types.Worklog, candidate *types.Worklog, author string) *types.Worklog {
	for i := range existing {
		if existing[i].Author.Name != author {
			continue
		}
		if SameWork(&existing[i], candidate, r.Location) {
			return &existing[i]
		}
	}
	return nil
}

// Reconcile copies candidate onto target unless author already logged the
// same work there. With dryRun nothing is written and OutcomeWouldCopy is
// returned in place of OutcomeCopied.
func (r *Reconciler) Reconcile(ctx context.Context, target *types.Issue, candidate *types.Worklog, author string, dryRun bool) (Outcome, error) {
	existing, err := r.Existing(ctx, target.Key)
	if err != nil {
		return 0, err
	}
	if dup := r.Duplicate(existing, candidate, author); dup != nil {
		r.Logger.Debug("worklog already copied", "issue", target.Key, "existing", dup.ID, "candidate", candidate.ID)
		return OutcomeSkipped, nil
	}
	if dryRun {
		return OutcomeWouldCopy, nil
	}

	var remaining int
	if candidate.Issue != nil {
		remaining = candidate.Issue.Progress.Remaining()
	}
	in := types.WorklogInput{
		Comment:          candidate.Comment,
		TimeSpentSeconds: candidate.TimeSpentSeconds,
		Started:          candidate.Started,
	}
	created, err := r.Tracker.CreateWorklog(ctx, target.Key, in, types.NewEstimate(remaining))
	if err != nil {
		return 0, fmt.Errorf("create worklog on %s: %w", target.Key, err)
	}
	if err := r.Cache.Delete(ctx, IssueWorklogsKey(target.Key)); err != nil {
		r.Logger.Warn("failed to invalidate worklog cache", "issue", target.Key, "error", err)
	}
	r.Logger.Info("copied worklog", "issue", target.Key, "id", created.ID, "seconds", in.TimeSpentSeconds)
	return OutcomeCopied, nil
}
