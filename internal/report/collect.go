package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/copylog/copylog/internal/tracker"
	"github.com/copylog/copylog/internal/types"
)

// Row is one worklog line of a report.
type Row struct {
	Started   time.Time
	IssueKey  string
	TimeSpent string
	Seconds   int
	Comment   string
	WorklogID string
}

// Section holds the rows of one project, ordered by start time.
type Section struct {
	Project string
	Rows    []Row
}

// Report is everything one author logged for a job.
type Report struct {
	Job      string
	Author   string
	Sections []Section // ordered by project key
}

// TotalSeconds sums the time of every row.
func (r *Report) TotalSeconds() int {
	total := 0
	for _, s := range r.Sections {
		for _, row := range s.Rows {
			total += row.Seconds
		}
	}
	return total
}

// Window is the inclusive range of start times a report covers.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies within the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.From.Format(time.RFC3339), w.To.Format(time.RFC3339))
}

// WorklogQuery selects the issues of projects with any time logged.
func WorklogQuery(projects []string) string {
	return fmt.Sprintf("project in (%s) AND timespent > 0", strings.Join(projects, ", "))
}

// AuthorID identifies a worklog author: the user key, or the user name on
// trackers that have no keys.
func AuthorID(u types.User) string {
	if u.Key != "" {
		return u.Key
	}
	return u.Name
}

// Collector gathers report rows from one tracker.
type Collector struct {
	Tracker tracker.IssueTracker
	Logger  *slog.Logger
}

// NewCollector creates a collector reading from t.
func NewCollector(t tracker.IssueTracker, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{Tracker: t, Logger: logger.With("component", "report")}
}

// Collect returns one report per author of job that logged time within w,
// ordered by author.
func (c *Collector) Collect(ctx context.Context, job Job, w Window) ([]*Report, error) {
	query := WorklogQuery(job.Projects)
	issues, err := c.Tracker.SearchAll(ctx, query)
	if err != nil {
		return nil, &tracker.RemoteQueryError{Op: fmt.Sprintf("search %s", query), Err: err}
	}
	c.Logger.Debug("searched issues", "job", job.Name, "query", query, "count", len(issues))

	// author -> project -> rows
	byAuthor := make(map[string]map[string][]Row)
	for _, issue := range issues {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logs, err := c.Tracker.GetFullWorklog(ctx, issue.Key)
		if err != nil {
			return nil, &tracker.RemoteQueryError{Op: fmt.Sprintf("get worklogs of %s", issue.Key), Err: err}
		}
		project := issueProject(issue)
		for _, wl := range logs {
			author := AuthorID(wl.Author)
			if !job.WantsAuthor(author) || !w.Contains(wl.Started) {
				continue
			}
			if byAuthor[author] == nil {
				byAuthor[author] = make(map[string][]Row)
			}
			byAuthor[author][project] = append(byAuthor[author][project], Row{
				Started:   wl.Started,
				IssueKey:  issue.Key,
				TimeSpent: wl.TimeSpent,
				Seconds:   wl.TimeSpentSeconds,
				Comment:   wl.Comment,
				WorklogID: wl.ID,
			})
		}
	}

	reports := make([]*Report, 0, len(byAuthor))
	for author, projects := range byAuthor {
		r := &Report{Job: job.Name, Author: author}
		for project, rows := range projects {
			sort.SliceStable(rows, func(i, j int) bool { return rows[i].Started.Before(rows[j].Started) })
			r.Sections = append(r.Sections, Section{Project: project, Rows: rows})
		}
		sort.Slice(r.Sections, func(i, j int) bool { return r.Sections[i].Project < r.Sections[j].Project })
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Author < reports[j].Author })

	c.Logger.Info("collected worklogs", "job", job.Name, "issues", len(issues), "authors", len(reports), "window", w.String())
	return reports, nil
}

// issueProject returns the project key of an issue, falling back to the
// prefix of its key.
func issueProject(issue types.Issue) string {
	if issue.ProjectKey != "" {
		return issue.ProjectKey
	}
	project, _, _ := strings.Cut(issue.Key, "-")
	return project
}
