package tracker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/copylog/copylog/internal/types"
)

var manila = time.FixedZone("UTC+8", 8*3600)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type createdWorklog struct {
	IssueKey string
	Input    types.WorklogInput
	Adjust   *types.EstimateAdjustment
}

// fakeTracker implements IssueTracker in memory for testing.
type fakeTracker struct {
	user     string // author of created worklogs
	projects map[string]types.Project
	versions map[string][]types.Version
	issues   []types.Issue
	worklogs map[string][]types.Worklog

	// unsearchable hides issue keys from text search (index lag).
	// hideCreated adds every created issue to it.
	unsearchable map[string]bool
	hideCreated  bool

	searchErr        error
	worklogErr       map[string]error
	createIssueErr   error
	createWorklogErr error
	verifyErr        error

	calls         map[string]int
	queries       []string
	createdIssues []types.IssueInput
	createdLogs   []createdWorklog
	nextIssueID   int
	nextWorklogID int
}

func newFakeTracker(user string) *fakeTracker {
	return &fakeTracker{
		user:         user,
		projects:     make(map[string]types.Project),
		versions:     make(map[string][]types.Version),
		worklogs:     make(map[string][]types.Worklog),
		unsearchable: make(map[string]bool),
		worklogErr:   make(map[string]error),
		calls:        make(map[string]int),
		nextIssueID:  100,
	}
}

func (f *fakeTracker) addProject(id, key string) {
	f.projects[key] = types.Project{ID: id, Key: key}
}

func (f *fakeTracker) addIssue(issue types.Issue, logs ...types.Worklog) {
	if issue.ProjectKey == "" {
		issue.ProjectKey, _, _ = strings.Cut(issue.Key, "-")
	}
	f.issues = append(f.issues, issue)
	f.worklogs[issue.Key] = append(f.worklogs[issue.Key], logs...)
}

func (f *fakeTracker) Name() string { return "fake" }
func (f *fakeTracker) Init(context.Context, Endpoint) error { return nil }
func (f *fakeTracker) BaseURL() string { return "https://fake.test" }

func (f *fakeTracker) VerifyCredentials(_ context.Context, username string) error {
	f.calls["VerifyCredentials"]++
	if f.verifyErr != nil {
		return &AuthError{URL: f.BaseURL(), Username: username, Err: f.verifyErr}
	}
	return nil
}

func queryProject(query string) string {
	var project string
	_, _ = fmt.Sscanf(query, "project = %s", &project)
	return project
}

func (f *fakeTracker) Search(_ context.Context, query string, limit int) ([]types.Issue, error) {
	f.calls["Search"]++
	f.queries = append(f.queries, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	project := queryProject(query)
	textSearch := strings.Contains(query, "text ~")

	var out []types.Issue
	for _, issue := range f.issues {
		if issue.ProjectKey != project {
			continue
		}
		if textSearch && (f.unsearchable[issue.Key] || SummaryQuery(project, issue.Summary) != query) {
			continue
		}
		out = append(out, issue)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeTracker) SearchAll(ctx context.Context, query string) ([]types.Issue, error) {
	return f.Search(ctx, query, 0)
}

func (f *fakeTracker) GetIssue(_ context.Context, key string) (*types.Issue, error) {
	for i := range f.issues {
		if f.issues[i].Key == key {
			issue := f.issues[i]
			return &issue, nil
		}
	}
	return nil, fmt.Errorf("issue %s not found", key)
}

func (f *fakeTracker) GetFullWorklog(_ context.Context, key string) ([]types.Worklog, error) {
	f.calls["GetFullWorklog"]++
	if err := f.worklogErr[key]; err != nil {
		return nil, err
	}
	logs := make([]types.Worklog, len(f.worklogs[key]))
	copy(logs, f.worklogs[key])
	return logs, nil
}

func (f *fakeTracker) GetProject(_ context.Context, key string) (*types.Project, error) {
	f.calls["GetProject"]++
	p, ok := f.projects[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeTracker) GetProjectVersions(_ context.Context, key string) ([]types.Version, error) {
	f.calls["GetProjectVersions"]++
	return f.versions[key], nil
}

func (f *fakeTracker) CreateIssue(_ context.Context, in types.IssueInput) (*types.Issue, error) {
	f.calls["CreateIssue"]++
	if f.createIssueErr != nil {
		return nil, f.createIssueErr
	}
	var projectKey string
	for key, p := range f.projects {
		if p.ID == in.ProjectID {
			projectKey = key
		}
	}
	f.nextIssueID++
	issue := types.Issue{
		ID:         fmt.Sprintf("%d", 10000+f.nextIssueID),
		Key:        fmt.Sprintf("%s-%d", projectKey, f.nextIssueID),
		Summary:    in.Summary,
		ProjectKey: projectKey,
	}
	f.createdIssues = append(f.createdIssues, in)
	f.issues = append(f.issues, issue)
	if f.hideCreated {
		f.unsearchable[issue.Key] = true
	}
	return &issue, nil
}

func (f *fakeTracker) CreateWorklog(_ context.Context, key string, in types.WorklogInput, adj *types.EstimateAdjustment) (*types.Worklog, error) {
	f.calls["CreateWorklog"]++
	if f.createWorklogErr != nil {
		return nil, f.createWorklogErr
	}
	f.nextWorklogID++
	wl := types.Worklog{
		ID:               fmt.Sprintf("w%d", f.nextWorklogID),
		Comment:          in.Comment,
		TimeSpentSeconds: in.TimeSpentSeconds,
		Started:          in.Started,
		Author:           types.User{Name: f.user},
	}
	f.worklogs[key] = append(f.worklogs[key], wl)
	f.createdLogs = append(f.createdLogs, createdWorklog{IssueKey: key, Input: in, Adjust: adj})
	return &wl, nil
}

// worklog builds an entry by author started at the given local time.
func worklog(id, author, comment string, seconds int, started time.Time) types.Worklog {
	return types.Worklog{
		ID:               id,
		Comment:          comment,
		TimeSpentSeconds: seconds,
		Started:          started,
		Author:           types.User{Name: author},
	}
}
