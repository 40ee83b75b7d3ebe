package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/copylog/copylog/internal/cache"
	"github.com/copylog/copylog/internal/types"
)

// Finder collects the recent worklogs one author logged in a project.
type Finder struct {
	Tracker IssueTracker
	Cache   cache.Cache
	Logger  *slog.Logger
	Limit   int // issues scanned per query, DefaultSearchLimit if zero
}

// NewFinder creates a finder reading from t.
func NewFinder(t IssueTracker, c cache.Cache, logger *slog.Logger) *Finder {
	return &Finder{
		Tracker: t,
		Cache:   c,
		Logger:  logger.With("component", "finder"),
		Limit:   DefaultSearchLimit,
	}
}

// Find returns the worklogs author logged on issues of project updated
// since the given query operand. Each entry carries its parent issue.
// Only issues with time logged are scanned.
func (f *Finder) Find(ctx context.Context, project, author, since string) ([]types.Worklog, error) {
	key := WorklogsKey(project, author)
	var cached []types.Worklog
	if cache.GetJSON(ctx, f.Cache, key, &cached) {
		f.Logger.Debug("worklogs served from cache", "project", project, "author", author, "count", len(cached))
		return cached, nil
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	query := UpdatedSinceQuery(project, since)
	issues, err := f.Tracker.Search(ctx, query, limit)
	if err != nil {
		return nil, &RemoteQueryError{Op: fmt.Sprintf("search %s", project), Err: err}
	}
	f.Logger.Debug("searched issues", "query", query, "count", len(issues))

	found := []types.Worklog{}
	for i := range issues {
		issue := issues[i]
		if issue.TimeSpent == 0 {
			continue
		}
		logs, err := f.Tracker.GetFullWorklog(ctx, issue.Key)
		if err != nil {
			return nil, &RemoteQueryError{Op: fmt.Sprintf("get worklogs of %s", issue.Key), Err: err}
		}
		for _, wl := range logs {
			if wl.Author.Name != author {
				continue
			}
			wl.Issue = &issue
			found = append(found, wl)
		}
	}

	if err := cache.PutJSON(ctx, f.Cache, key, found, WorklogSearchTTL); err != nil {
		f.Logger.Warn("failed to cache worklogs", "key", key, "error", err)
	}
	f.Logger.Info("found worklogs", "project", project, "author", author, "issues", len(issues), "worklogs", len(found))
	return found, nil
}
