package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/copylog/copylog/internal/tracker"
)

// maxParallelJobs caps how many jobs query the trackers at once.
const maxParallelJobs = 4

// Output is a report file written by Run.
type Output struct {
	Job          string `json:"job"`
	Author       string `json:"author"`
	Path         string `json:"path"`
	TotalSeconds int    `json:"total_seconds"`
}

// Run executes jobs concurrently, each against the tracker of its side,
// and writes every report into outDir. The first failing job cancels the
// others. Outputs are returned in job order.
func Run(ctx context.Context, jobs []Job, trackers map[string]tracker.IssueTracker, w Window, outDir string, logger *slog.Logger) ([]Output, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, job := range jobs {
		if trackers[job.Side] == nil {
			return nil, fmt.Errorf("job %s: no tracker for side %q", job.Name, job.Side)
		}
	}

	results := make([][]Output, len(jobs))
	var mu sync.Mutex // guards file creation in outDir

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelJobs)
	for i, job := range jobs {
		t := trackers[job.Side]
		g.Go(func() error {
			reports, err := NewCollector(t, logger).Collect(ctx, job, w)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.Name, err)
			}

			mu.Lock()
			defer mu.Unlock()
			for _, r := range reports {
				path, err := WriteFile(outDir, r)
				if err != nil {
					return fmt.Errorf("job %s: %w", job.Name, err)
				}
				logger.Info("wrote report", "job", job.Name, "author", r.Author, "path", path)
				results[i] = append(results[i], Output{
					Job:          job.Name,
					Author:       r.Author,
					Path:         path,
					TotalSeconds: r.TotalSeconds(),
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Output
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
