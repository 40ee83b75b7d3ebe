package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/copylog/copylog/internal/tracker"
	"github.com/copylog/copylog/internal/types"
)

func init() {
	tracker.Register("jira", func() tracker.IssueTracker {
		return &Tracker{}
	})
}

var _ tracker.IssueTracker = (*Tracker)(nil)

// Tracker implements tracker.IssueTracker for Jira Server.
type Tracker struct {
	client *Client
}

func (t *Tracker) Name() string { return "jira" }

func (t *Tracker) Init(ctx context.Context, ep tracker.Endpoint) error {
	if ep.URL == "" {
		return fmt.Errorf("Jira URL not configured")
	}
	if ep.Password == "" {
		return fmt.Errorf("Jira password not configured for %s", ep.URL)
	}
	t.client = NewClient(ep.URL, ep.Username, ep.Password)
	return nil
}

func (t *Tracker) BaseURL() string {
	if t.client == nil {
		return ""
	}
	return t.client.URL
}

func (t *Tracker) VerifyCredentials(ctx context.Context, username string) error {
	_, err := t.client.GetUser(ctx, username)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return &tracker.AuthError{URL: t.client.URL, Username: username, Err: err}
		}
	}
	return fmt.Errorf("verify %s at %s: %w", username, t.client.URL, err)
}

func (t *Tracker) Search(ctx context.Context, query string, limit int) ([]types.Issue, error) {
	issues, err := t.client.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return convertIssues(issues), nil
}

func (t *Tracker) SearchAll(ctx context.Context, query string) ([]types.Issue, error) {
	issues, err := t.client.SearchIssues(ctx, query)
	if err != nil {
		return nil, err
	}
	return convertIssues(issues), nil
}

func (t *Tracker) GetIssue(ctx context.Context, key string) (*types.Issue, error) {
	issue, err := t.client.GetIssue(ctx, key)
	if err != nil {
		return nil, err
	}
	converted := jiraToIssue(issue)
	return &converted, nil
}

func (t *Tracker) GetFullWorklog(ctx context.Context, issueKey string) ([]types.Worklog, error) {
	logs, err := t.client.GetWorklogs(ctx, issueKey)
	if err != nil {
		return nil, err
	}
	result := make([]types.Worklog, 0, len(logs))
	for i := range logs {
		wl, err := jiraToWorklog(&logs[i])
		if err != nil {
			return nil, fmt.Errorf("worklog %s on %s: %w", logs[i].ID, issueKey, err)
		}
		result = append(result, wl)
	}
	return result, nil
}

func (t *Tracker) GetProject(ctx context.Context, key string) (*types.Project, error) {
	p, err := t.client.GetProject(ctx, key)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &types.Project{ID: p.ID, Key: p.Key, Name: p.Name}, nil
}

func (t *Tracker) GetProjectVersions(ctx context.Context, key string) ([]types.Version, error) {
	versions, err := t.client.GetProjectVersions(ctx, key)
	if err != nil {
		return nil, err
	}
	result := make([]types.Version, 0, len(versions))
	for _, v := range versions {
		result = append(result, types.Version{ID: v.ID, Name: v.Name})
	}
	return result, nil
}

func (t *Tracker) CreateIssue(ctx context.Context, in types.IssueInput) (*types.Issue, error) {
	fields := map[string]interface{}{
		"project":     map[string]string{"id": in.ProjectID},
		"summary":     in.Summary,
		"issuetype":   map[string]string{"id": in.IssueTypeID},
		"description": in.Description,
	}
	if len(in.FixVersionIDs) > 0 {
		versions := make([]map[string]string, 0, len(in.FixVersionIDs))
		for _, id := range in.FixVersionIDs {
			versions = append(versions, map[string]string{"id": id})
		}
		fields["fixVersions"] = versions
	}

	created, err := t.client.CreateIssue(ctx, fields)
	if err != nil {
		return nil, err
	}

	// Fetch the new issue to return its fields.
	full, err := t.client.GetIssue(ctx, created.Key)
	if err != nil {
		issue := jiraToIssue(created)
		issue.Summary = in.Summary
		return &issue, nil
	}
	issue := jiraToIssue(full)
	return &issue, nil
}

func (t *Tracker) CreateWorklog(ctx context.Context, issueKey string, in types.WorklogInput, adj *types.EstimateAdjustment) (*types.Worklog, error) {
	wl := Worklog{
		Comment:          in.Comment,
		TimeSpentSeconds: in.TimeSpentSeconds,
		Started:          FormatTimestamp(in.Started),
	}
	var mode, estimate string
	if adj != nil {
		mode, estimate = adj.Mode, adj.NewEstimate
	}

	created, err := t.client.AddWorklog(ctx, issueKey, wl, mode, estimate)
	if err != nil {
		return nil, err
	}
	result, err := jiraToWorklog(created)
	if err != nil {
		// The worklog exists; report what was sent.
		result = types.Worklog{
			ID:               created.ID,
			Comment:          in.Comment,
			TimeSpentSeconds: in.TimeSpentSeconds,
			Started:          in.Started,
		}
	}
	return &result, nil
}

func convertIssues(issues []Issue) []types.Issue {
	result := make([]types.Issue, 0, len(issues))
	for i := range issues {
		result = append(result, jiraToIssue(&issues[i]))
	}
	return result
}

// jiraToIssue converts a Jira API Issue to the shared issue record.
func jiraToIssue(ji *Issue) types.Issue {
	issue := types.Issue{
		ID:         ji.ID,
		Key:        ji.Key,
		Self:       ji.Self,
		Summary:    ji.Fields.Summary,
		ProjectKey: projectKeyFromIssue(ji),
	}
	if ji.Fields.TimeSpent != nil {
		issue.TimeSpent = *ji.Fields.TimeSpent
	}
	if ji.Fields.Progress != nil {
		issue.Progress = types.Progress{Progress: ji.Fields.Progress.Progress, Total: ji.Fields.Progress.Total}
	}
	for _, v := range ji.Fields.FixVersions {
		issue.FixVersions = append(issue.FixVersions, types.Version{ID: v.ID, Name: v.Name})
	}
	return issue
}

func jiraToWorklog(jw *Worklog) (types.Worklog, error) {
	started, err := ParseTimestamp(jw.Started)
	if err != nil {
		return types.Worklog{}, err
	}
	return types.Worklog{
		ID:               jw.ID,
		Comment:          jw.Comment,
		TimeSpent:        jw.TimeSpent,
		TimeSpentSeconds: jw.TimeSpentSeconds,
		Started:          started,
		Author: types.User{
			Name:        jw.Author.Name,
			Key:         jw.Author.Key,
			DisplayName: jw.Author.DisplayName,
		},
	}, nil
}

// projectKeyFromIssue extracts the project key from a Jira issue.
func projectKeyFromIssue(ji *Issue) string {
	if ji.Fields.Project != nil {
		return ji.Fields.Project.Key
	}
	// Fall back to extracting from issue key (e.g., "PROJ-123" → "PROJ")
	if idx := strings.LastIndex(ji.Key, "-"); idx > 0 {
		return ji.Key[:idx]
	}
	return ""
}
