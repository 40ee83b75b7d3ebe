package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/copylog/copylog/internal/cache"
	"github.com/copylog/copylog/internal/types"
)

// DefaultIssueTypeID is the issue type used for created target issues.
const DefaultIssueTypeID = "3"

// Resolver finds the target issue mirroring a source issue, creating it
// when none exists.
type Resolver struct {
	Tracker     IssueTracker
	Cache       cache.Cache
	Logger      *slog.Logger
	IssueTypeID string

	// versions maps project key to version name to version id. Filled
	// lazily, once per project.
	versions map[string]map[string]string
}

// NewResolver creates a resolver writing to t.
func NewResolver(t IssueTracker, c cache.Cache, logger *slog.Logger) *Resolver {
	return &Resolver{
		Tracker:     t,
		Cache:       c,
		Logger:      logger.With("component", "resolver"),
		IssueTypeID: DefaultIssueTypeID,
		versions:    make(map[string]map[string]string),
	}
}

// TargetSummary is the summary a mirrored issue carries: the source key in
// brackets followed by the source summary.
func TargetSummary(source *types.Issue) string {
	return fmt.Sprintf("[%s] %s", source.Key, source.Summary)
}

// SourceBase returns the server root of an issue self link.
func SourceBase(self string) string {
	base, _, _ := strings.Cut(self, "/rest/api")
	return base
}

// Lookup returns the first issue in project matching summary, or nil.
func (r *Resolver) Lookup(ctx context.Context, summary, project string) (*types.Issue, error) {
	key := IssueKey(project, summary)
	var cached types.Issue
	if cache.GetJSON(ctx, r.Cache, key, &cached) {
		return &cached, nil
	}

	issues, err := r.Tracker.Search(ctx, SummaryQuery(project, summary), 1)
	if err != nil {
		return nil, &RemoteQueryError{Op: fmt.Sprintf("look up %q in %s", summary, project), Err: err}
	}
	if len(issues) == 0 {
		return nil, nil
	}
	issue := issues[0]
	r.remember(ctx, key, &issue)
	return &issue, nil
}

// Resolve returns the target issue for source under mapping. When none
// exists and create is true it is created; the second result reports
// whether that happened. With create false a missing issue yields nil.
func (r *Resolver) Resolve(ctx context.Context, mapping ProjectMapping, source *types.Issue, create bool) (*types.Issue, bool, error) {
	summary := TargetSummary(source)
	issue, err := r.Lookup(ctx, summary, mapping.TargetProject)
	if err != nil || issue != nil || !create {
		return issue, false, err
	}

	issue, err = r.create(ctx, mapping, summary, source)
	if err != nil {
		return nil, false, err
	}
	return issue, true, nil
}

func (r *Resolver) create(ctx context.Context, mapping ProjectMapping, summary string, source *types.Issue) (*types.Issue, error) {
	fail := func(err error) error {
		return &IssueCreationError{Project: mapping.TargetProject, Summary: summary, Err: err}
	}

	project, err := r.project(ctx, mapping.TargetProject)
	if err != nil {
		return nil, fail(err)
	}
	if project == nil {
		return nil, fail(fmt.Errorf("project %s not found", mapping.TargetProject))
	}

	in := types.IssueInput{
		ProjectID:   project.ID,
		Summary:     summary,
		IssueTypeID: r.IssueTypeID,
		Description: fmt.Sprintf("CopyLog %s/browse/%s", SourceBase(source.Self), source.Key),
	}
	if mapping.TargetVersion != "" {
		id, err := r.versionID(ctx, mapping.TargetProject, mapping.TargetVersion)
		if err != nil {
			return nil, fail(err)
		}
		if id == "" {
			r.Logger.Warn("version not found, creating issue without it",
				"project", mapping.TargetProject, "version", mapping.TargetVersion)
		} else {
			in.FixVersionIDs = []string{id}
		}
	}

	issue, err := r.Tracker.CreateIssue(ctx, in)
	if err != nil {
		return nil, fail(err)
	}
	r.Logger.Info("created issue", "key", issue.Key, "summary", summary)

	// A fresh issue may not be searchable yet; remember it so the next
	// worklog of the same source issue does not create it again.
	if issue.Summary == "" {
		issue.Summary = summary
	}
	r.remember(ctx, IssueKey(mapping.TargetProject, summary), issue)
	return issue, nil
}

func (r *Resolver) remember(ctx context.Context, key string, issue *types.Issue) {
	if err := cache.PutJSON(ctx, r.Cache, key, issue, IssueLookupTTL); err != nil {
		r.Logger.Warn("failed to cache issue", "key", key, "error", err)
	}
}

func (r *Resolver) project(ctx context.Context, key string) (*types.Project, error) {
	ck := ProjectKey(key)
	var cached types.Project
	if cache.GetJSON(ctx, r.Cache, ck, &cached) {
		return &cached, nil
	}
	project, err := r.Tracker.GetProject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", key, err)
	}
	if project != nil {
		if err := cache.PutJSON(ctx, r.Cache, ck, project, ProjectTTL); err != nil {
			r.Logger.Warn("failed to cache project", "key", ck, "error", err)
		}
	}
	return project, nil
}

// versionID maps a version name to its id, fetching the project's
// versions on first use. Returns "" for unknown names.
func (r *Resolver) versionID(ctx context.Context, project, name string) (string, error) {
	if r.versions == nil {
		r.versions = make(map[string]map[string]string)
	}
	byName, ok := r.versions[project]
	if !ok {
		versions, err := r.Tracker.GetProjectVersions(ctx, project)
		if err != nil {
			return "", fmt.Errorf("get versions of %s: %w", project, err)
		}
		byName = make(map[string]string, len(versions))
		for _, v := range versions {
			byName[v.Name] = v.ID
		}
		r.versions[project] = byName
	}
	return byName[name], nil
}
