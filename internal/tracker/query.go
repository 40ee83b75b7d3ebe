package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/copylog/copylog/internal/cache"
)

// Cache lifetimes.
const (
	WorklogSearchTTL = 5 * time.Hour
	IssueLookupTTL   = 60 * time.Second
	IssueWorklogTTL  = 60 * time.Second
	ProjectTTL       = 60 * time.Second
)

// DefaultSearchLimit caps how many recently updated issues the finder scans.
const DefaultSearchLimit = 150

// textEscaper escapes characters the text search treats as operators.
// The doubled backslash survives both the quoted string and the search syntax.
var textEscaper = strings.NewReplacer(
	`?`, `\\?`,
	`-`, `\\-`,
	`[`, `\\[`,
	`]`, `\\]`,
	`"`, `\"`,
)

// EscapeText prepares free text for a `text ~ "..."` clause.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// UpdatedSinceQuery selects the issues of project updated since the given
// operand, most recent first.
func UpdatedSinceQuery(project, since string) string {
	return fmt.Sprintf("project = %s AND updated >= %s ORDER BY updated DESC", project, since)
}

// SummaryQuery selects issues of project whose text matches summary.
func SummaryQuery(project, summary string) string {
	return fmt.Sprintf(`project = %s AND text ~ "%s"`, project, EscapeText(summary))
}

// WorklogsKey caches a finder result.
func WorklogsKey(project, author string) string {
	return fmt.Sprintf("%s_worklogs_%s", project, author)
}

// IssueKey caches a resolved target issue.
func IssueKey(project, summary string) string {
	return fmt.Sprintf("%s_issue_%s", project, cache.Hash(summary))
}

// IssueWorklogsKey caches the worklogs of one issue.
func IssueWorklogsKey(issueKey string) string {
	return issueKey + "_worklogs"
}

// ProjectKey caches a project lookup.
func ProjectKey(key string) string {
	return "project_" + key
}
