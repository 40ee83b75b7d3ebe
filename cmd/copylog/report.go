package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/copylog/copylog/internal/config"
	"github.com/copylog/copylog/internal/report"
	"github.com/copylog/copylog/internal/timeparsing"
	"github.com/copylog/copylog/internal/tracker"
	"github.com/copylog/copylog/internal/ui"
)

type reportFlags struct {
	jobsFile string
	from     string
	to       string
	outDir   string
}

func newReportCmd(a *app) *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write per-author CSV worklog reports",
		Long: `Write one CSV file per job and author listing the worklogs logged in a
date range, grouped by project, with totals in seconds, minutes and hours.

Jobs are read from a TOML file:

  [[job]]
  name = "alpha"
  side = "from"          # "from" or "to" server
  projects = ["SS", "OPS"]
  authors = ["rroble"]

The range defaults to the current month. Dates accept 2024-08-01, -7d or
phrases such as "last monday". A date-only --to includes that whole day.

Examples:
  copylog report
  copylog report --from 2024-08-01 --to 2024-08-31 --out /tmp/reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReport(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.jobsFile, "jobs", "", "TOML jobs file (default: report.jobs_file)")
	cmd.Flags().StringVar(&flags.from, "from", "", "First day of the range (default: start of this month)")
	cmd.Flags().StringVar(&flags.to, "to", "", "Last day of the range (default: end of this month)")
	cmd.Flags().StringVar(&flags.outDir, "out", "", "Directory for CSV files (default: report.out_dir)")
	return cmd
}

func (a *app) runReport(cmd *cobra.Command, flags reportFlags) error {
	cfg := a.cfg
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	window, err := reportWindow(flags.from, flags.to, time.Now().In(loc))
	if err != nil {
		return err
	}

	jobsFile := flags.jobsFile
	if jobsFile == "" {
		jobsFile = cfg.ResolvePath(cfg.Report.JobsFile)
	}
	jobs, err := report.LoadJobs(jobsFile)
	if err != nil {
		return err
	}
	outDir := flags.outDir
	if outDir == "" {
		outDir = cfg.ResolvePath(cfg.Report.OutDir)
	}

	if err := cfg.FillPasswords(passwordPrompt()); err != nil {
		return err
	}
	trackers, err := a.reportTrackers(cfg, jobs)
	if err != nil {
		return err
	}

	a.progress(cmd, "%s", ui.RenderMuted(fmt.Sprintf("Collecting %d job(s) for %s", len(jobs), window)))
	outputs, err := report.Run(a.ctx, jobs, trackers, window, outDir, a.logger)
	if err != nil {
		return err
	}

	if a.jsonOutput {
		return outputJSON(cmd.OutOrStdout(), outputs)
	}
	if !a.quiet {
		fmt.Fprint(cmd.OutOrStdout(), ui.ReportSummary(outputs))
	}
	return nil
}

// reportTrackers opens one tracker per side the jobs read from.
func (a *app) reportTrackers(cfg *config.Config, jobs []report.Job) (map[string]tracker.IssueTracker, error) {
	endpoints := map[string]config.Endpoint{report.SideFrom: cfg.From, report.SideTo: cfg.To}
	roles := map[string]string{report.SideFrom: "source", report.SideTo: "target"}

	trackers := make(map[string]tracker.IssueTracker)
	for _, job := range jobs {
		if trackers[job.Side] != nil {
			continue
		}
		t, err := a.openTracker(roles[job.Side], endpoints[job.Side])
		if err != nil {
			return nil, err
		}
		trackers[job.Side] = t
	}
	return trackers, nil
}

// reportWindow resolves the --from and --to flags against now. Empty
// flags select the month containing now.
func reportWindow(from, to string, now time.Time) (report.Window, error) {
	start := timeparsing.StartOfMonth(now)
	end := timeparsing.EndOfDay(start.AddDate(0, 1, -1))

	if from != "" {
		t, err := timeparsing.ParseRelativeTime(from, now)
		if err != nil {
			return report.Window{}, fmt.Errorf("--from: %w", err)
		}
		start = t
	}
	if to != "" {
		t, err := timeparsing.ParseRelativeTime(to, now)
		if err != nil {
			return report.Window{}, fmt.Errorf("--to: %w", err)
		}
		if timeparsing.IsDateOnly(to) {
			t = timeparsing.EndOfDay(t)
		}
		end = t
	}

	if end.Before(start) {
		return report.Window{}, fmt.Errorf("--from %s is after --to %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return report.Window{From: start, To: end}, nil
}
