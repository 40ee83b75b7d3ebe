package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/copylog/copylog/internal/report"
	"github.com/copylog/copylog/internal/tracker"
)

// maxWarningWidth caps warning lines in summaries.
const maxWarningWidth = 160

// SyncSummary renders the outcome of a sync run, one line per project pair.
func SyncSummary(result *tracker.SyncResult) string {
	var b strings.Builder

	title := "Sync"
	if result.DryRun {
		title = "Sync (dry run)"
	}
	b.WriteString(RenderCategory(title))
	b.WriteString("\n")

	for _, p := range result.Pairs {
		var status string
		switch {
		case p.Error != "":
			status = RenderFailIcon()
		case p.Errors > 0:
			status = RenderWarnIcon()
		case p.Copied == 0 && p.IssuesCreated == 0:
			status = RenderSkipIcon()
		default:
			status = RenderPassIcon()
		}
		fmt.Fprintf(&b, "  %s %s  %s\n", status, p.Mapping, pairCounts(p))
		if p.Error != "" {
			fmt.Fprintf(&b, "      %s\n", RenderFail(truncate(p.Error, maxWarningWidth)))
		}
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "  %s %s\n", RenderWarnIcon(), RenderWarn(truncate(w, maxWarningWidth)))
		}
	}

	s := result.Stats
	b.WriteString(RenderSeparator())
	b.WriteString("\n")
	verb := "copied"
	if result.DryRun {
		verb = "to copy"
	}
	totals := fmt.Sprintf("%d pairs, %d worklogs found, %d %s, %d already present, %d issues created, %d errors",
		s.Pairs, s.Found, s.Copied, verb, s.Skipped, s.IssuesCreated, s.Errors)
	if result.Success {
		b.WriteString(RenderPass(totals))
	} else {
		b.WriteString(RenderFail(totals))
	}
	b.WriteString("\n")
	return b.String()
}

func pairCounts(p tracker.PairResult) string {
	return RenderMuted(fmt.Sprintf("found %d, copied %d, skipped %d, created %d, errors %d",
		p.Found, p.Copied, p.Skipped, p.IssuesCreated, p.Errors))
}

// ReportSummary lists the files written by a report run with each
// author's total hours.
func ReportSummary(outputs []report.Output) string {
	var b strings.Builder
	b.WriteString(RenderCategory("Reports"))
	b.WriteString("\n")
	if len(outputs) == 0 {
		b.WriteString(RenderMuted("  no worklogs in range"))
		b.WriteString("\n")
		return b.String()
	}
	for _, o := range outputs {
		hours := time.Duration(o.TotalSeconds) * time.Second
		fmt.Fprintf(&b, "  %s %s %s  %s\n", RenderPassIcon(), o.Job, RenderAccent(o.Author),
			RenderMuted(fmt.Sprintf("%.2fh  %s", hours.Hours(), o.Path)))
	}
	return b.String()
}

// truncate shortens text to width runes, marking the cut with "...".
func truncate(text string, width int) string {
	if utf8.RuneCountInString(text) <= width {
		return text
	}
	if width <= 3 {
		return "..."
	}
	return string([]rune(text)[:width-3]) + "..."
}
