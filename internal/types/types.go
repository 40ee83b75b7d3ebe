// Package types defines the value records copylog moves between trackers.
package types

import (
	"fmt"
	"time"
)

// Issue is a reference to an issue on either tracker.
type Issue struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Self        string    `json:"self,omitempty"`
	Summary     string    `json:"summary"`
	ProjectKey  string    `json:"project_key,omitempty"`
	TimeSpent   int       `json:"time_spent"` // seconds logged on the issue
	Progress    Progress  `json:"progress"`
	FixVersions []Version `json:"fix_versions,omitempty"`
}

// Progress is the aggregate time tracking of an issue, in seconds.
type Progress struct {
	Progress int `json:"progress"`
	Total    int `json:"total"`
}

// Remaining returns the estimate left on the issue in whole minutes.
// Overlogged issues report zero.
func (p Progress) Remaining() int {
	left := p.Total - p.Progress
	if left <= 0 {
		return 0
	}
	return left / 60
}

// User identifies a worklog author.
type User struct {
	Name        string `json:"name"`
	Key         string `json:"key,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Worklog is a single time-tracking entry. Entries are never mutated
// after they are fetched.
type Worklog struct {
	ID               string    `json:"id"`
	Comment          string    `json:"comment"`
	TimeSpent        string    `json:"time_spent,omitempty"` // display form, e.g. "1h 30m"
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	Started          time.Time `json:"started"`
	Author           User      `json:"author"`
	Issue            *Issue    `json:"issue,omitempty"`
}

// Day returns the calendar day the entry was started on in loc.
func (w *Worklog) Day(loc *time.Location) string {
	return w.Started.In(loc).Format("2006-01-02")
}

// String implements fmt.Stringer for log output.
func (w *Worklog) String() string {
	key := ""
	if w.Issue != nil {
		key = w.Issue.Key
	}
	return fmt.Sprintf("%s %ds %s %q", key, w.TimeSpentSeconds, w.Started.Format(time.RFC3339), w.Comment)
}

// Project is a tracker project.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// Version is a project release a target issue may be filed under.
type Version struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IssueInput holds the fields needed to create a target issue.
type IssueInput struct {
	ProjectID     string
	Summary       string
	Description   string
	IssueTypeID   string
	FixVersionIDs []string
}

// WorklogInput holds the fields copied onto a target issue.
type WorklogInput struct {
	Comment          string
	TimeSpentSeconds int
	Started          time.Time
}

// EstimateAdjustment controls how the tracker updates the remaining
// estimate when a worklog is added.
type EstimateAdjustment struct {
	Mode        string // "new", "leave", "manual" or "auto"
	NewEstimate string // e.g. "90m", used when Mode is "new"
}

// NewEstimate returns an adjustment that sets the remaining estimate to
// the given number of minutes.
func NewEstimate(minutes int) *EstimateAdjustment {
	return &EstimateAdjustment{Mode: "new", NewEstimate: fmt.Sprintf("%dm", minutes)}
}
