// Package report extracts the worklogs a set of authors logged in a date
// range and writes one CSV file per author, grouped by project.
package report

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Sides a job can read from.
const (
	SideFrom = "from"
	SideTo   = "to"
)

// Job describes one report run: which tracker to read, which projects to
// scan and whose worklogs to keep.
type Job struct {
	Name     string   `toml:"name"`
	Side     string   `toml:"side"`
	Projects []string `toml:"projects"`
	Authors  []string `toml:"authors"`
}

// Validate checks that the job can run.
func (j Job) Validate() error {
	var problems []string
	if strings.TrimSpace(j.Name) == "" {
		problems = append(problems, "name is required")
	} else if strings.ContainsAny(j.Name, `/\`) {
		problems = append(problems, fmt.Sprintf("name %q must not contain path separators", j.Name))
	}
	if j.Side != SideFrom && j.Side != SideTo {
		problems = append(problems, fmt.Sprintf("side must be %q or %q, got %q", SideFrom, SideTo, j.Side))
	}
	if len(j.Projects) == 0 {
		problems = append(problems, "at least one project is required")
	}
	if len(j.Authors) == 0 {
		problems = append(problems, "at least one author is required")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// WantsAuthor reports whether id is one of the job's authors.
func (j Job) WantsAuthor(id string) bool {
	return slices.Contains(j.Authors, id)
}

// jobsFile is the layout of reports.toml.
type jobsFile struct {
	Jobs []Job `toml:"job"`
}

// LoadJobs reads the [[job]] tables of a TOML file. Unknown keys and
// invalid jobs are errors.
func LoadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}
	return ParseJobs(string(data))
}

// ParseJobs decodes jobs from TOML text.
func ParseJobs(data string) ([]Job, error) {
	var f jobsFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("parse jobs file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parse jobs file: unknown keys: %s", strings.Join(keys, ", "))
	}
	if len(f.Jobs) == 0 {
		return nil, errors.New("jobs file defines no [[job]]")
	}

	seen := make(map[string]bool, len(f.Jobs))
	for i := range f.Jobs {
		job := &f.Jobs[i]
		job.Side = strings.ToLower(strings.TrimSpace(job.Side))
		for p := range job.Projects {
			job.Projects[p] = strings.ToUpper(strings.TrimSpace(job.Projects[p]))
		}
		if err := job.Validate(); err != nil {
			return nil, fmt.Errorf("job %d (%s): %w", i+1, job.Name, err)
		}
		if seen[job.Name] {
			return nil, fmt.Errorf("job %q is defined twice", job.Name)
		}
		seen[job.Name] = true
	}
	return f.Jobs, nil
}
