package tracker

import (
	"context"

	"github.com/copylog/copylog/internal/types"
)

// Endpoint holds the connection settings for one tracker instance.
type Endpoint struct {
	Type     string // registry name, e.g. "jira"
	URL      string
	Username string
	Password string
}

// IssueTracker is the interface every tracker integration implements.
// copylog reads worklogs from one instance and writes them to another,
// so all methods are scoped to a single server.
type IssueTracker interface {
	// Name returns the lowercase identifier for this tracker (e.g., "jira").
	Name() string

	// Init configures the tracker for an endpoint. Called once before
	// any other method.
	Init(ctx context.Context, ep Endpoint) error

	// BaseURL returns the server root, without a trailing slash.
	BaseURL() string

	// VerifyCredentials checks that the configured credentials are
	// accepted and that username exists. Returns *AuthError otherwise.
	VerifyCredentials(ctx context.Context, username string) error

	// Search runs a query and returns at most limit issues.
	Search(ctx context.Context, query string, limit int) ([]types.Issue, error)

	// SearchAll runs a query and returns every matching issue.
	SearchAll(ctx context.Context, query string) ([]types.Issue, error)

	// GetIssue fetches a single issue by key.
	GetIssue(ctx context.Context, key string) (*types.Issue, error)

	// GetFullWorklog returns every worklog on an issue. The returned
	// entries have no parent issue attached.
	GetFullWorklog(ctx context.Context, issueKey string) ([]types.Worklog, error)

	// GetProject looks up a project by key.
	// Returns nil, nil if the project doesn't exist.
	GetProject(ctx context.Context, key string) (*types.Project, error)

	// GetProjectVersions lists the versions defined on a project.
	GetProjectVersions(ctx context.Context, key string) ([]types.Version, error)

	// CreateIssue creates an issue and returns it with its key populated.
	CreateIssue(ctx context.Context, in types.IssueInput) (*types.Issue, error)

	// CreateWorklog adds a worklog to an issue. adj may be nil to let the
	// tracker apply its default estimate handling.
	CreateWorklog(ctx context.Context, issueKey string, in types.WorklogInput, adj *types.EstimateAdjustment) (*types.Worklog, error)
}
