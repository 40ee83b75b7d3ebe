package tracker

import (
	"fmt"
	"sort"
	"strings"
)

// ProjectMapping pairs a source project with the target project (and
// optional fix version) its worklogs are copied to.
type ProjectMapping struct {
	Source        string `json:"source"`
	TargetProject string `json:"target_project"`
	TargetVersion string `json:"target_version,omitempty"`
}

// String renders the mapping the way it is written in config.
func (m ProjectMapping) String() string {
	if m.TargetVersion == "" {
		return fmt.Sprintf("%s -> %s", m.Source, m.TargetProject)
	}
	return fmt.Sprintf("%s -> %s > %s", m.Source, m.TargetProject, m.TargetVersion)
}

// ParseTargetSpec splits "PROJ > v1.2" into project key and version name.
// Both parts are trimmed; the version is empty when no ">" is present.
func ParseTargetSpec(source, spec string) (ProjectMapping, error) {
	m := ProjectMapping{Source: strings.TrimSpace(source)}
	project, version, _ := strings.Cut(spec, ">")
	m.TargetProject = strings.TrimSpace(project)
	m.TargetVersion = strings.TrimSpace(version)
	if m.Source == "" {
		return m, fmt.Errorf("empty source project")
	}
	if m.TargetProject == "" {
		return m, fmt.Errorf("no target project for %s in %q", m.Source, spec)
	}
	return m, nil
}

// ParseMappings converts the configured project map into mappings ordered
// by source key. Invalid entries are returned as errors alongside the
// valid mappings.
func ParseMappings(projects map[string]string) ([]ProjectMapping, []error) {
	sources := make([]string, 0, len(projects))
	for src := range projects {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	var mappings []ProjectMapping
	var errs []error
	for _, src := range sources {
		m, err := ParseTargetSpec(src, projects[src])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		mappings = append(mappings, m)
	}
	return mappings, errs
}

// SyncOptions specifies how a sync run should behave.
type SyncOptions struct {
	Projects   map[string]string // source project key -> "TARGET > version"
	Since      string            // query operand, e.g. `"2024-01-01"` or -7d
	SourceUser string            // author whose worklogs are copied
	TargetUser string            // author the copies are logged as
	DryRun     bool              // resolve and compare without creating anything
	SkipVerify bool              // skip the credential check before syncing
}

// Outcome is the reconciler's decision for one worklog.
type Outcome int

const (
	OutcomeCopied Outcome = iota
	OutcomeSkipped
	OutcomeWouldCopy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCopied:
		return "copied"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeWouldCopy:
		return "would copy"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}
