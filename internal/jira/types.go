// Package jira provides the Jira REST v2 client copylog reads and writes
// worklogs with, and its tracker.IssueTracker adapter.
package jira

import "fmt"

// Issue represents a Jira issue from the REST API.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the fields of a Jira issue copylog requests.
type IssueFields struct {
	Summary     string         `json:"summary"`
	TimeSpent   *int           `json:"timespent"` // seconds, null when nothing is logged
	Progress    *ProgressField `json:"progress"`
	Project     *ProjectField  `json:"project"`
	FixVersions []VersionField `json:"fixVersions"`
}

// ProgressField is the aggregate time tracking of an issue.
type ProgressField struct {
	Progress int `json:"progress"`
	Total    int `json:"total"`
}

// ProjectField represents a Jira project.
type ProjectField struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// VersionField represents a project version.
type VersionField struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// UserField represents a Jira server user.
type UserField struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
}

// Worklog represents a worklog entry.
type Worklog struct {
	ID               string    `json:"id"`
	Comment          string    `json:"comment"`
	TimeSpent        string    `json:"timeSpent"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	Started          string    `json:"started"`
	Author           UserField `json:"author"`
}

// SearchResult represents a Jira JQL search response.
type SearchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// WorklogPage represents an issue worklog response.
type WorklogPage struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Worklogs   []Worklog `json:"worklogs"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API returned %d: %s", e.StatusCode, e.Body)
}
