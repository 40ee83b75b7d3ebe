// Package tracker synchronizes worklogs between two issue tracker
// instances. It defines the interface tracker integrations implement and
// the finder, resolver, reconciler and engine built on it.
package tracker

// SyncStats tracks statistics for a sync run.
type SyncStats struct {
	Pairs         int `json:"pairs"`          // Project pairs processed
	PairsFailed   int `json:"pairs_failed"`   // Pairs abandoned after a query error
	Found         int `json:"found"`          // Source worklogs considered
	IssuesCreated int `json:"issues_created"` // Target issues created
	Copied        int `json:"copied"`         // Worklogs created on the target
	Skipped       int `json:"skipped"`        // Worklogs already present on the target
	Errors        int `json:"errors"`         // Worklogs that failed
}

// PairResult is the outcome of one project pair.
type PairResult struct {
	Mapping       ProjectMapping `json:"mapping"`
	Found         int            `json:"found"`
	IssuesCreated int            `json:"issues_created"`
	Copied        int            `json:"copied"`
	Skipped       int            `json:"skipped"`
	Errors        int            `json:"errors"`
	Error         string         `json:"error,omitempty"` // Set when the pair was abandoned
}

// SyncResult represents the result of a complete sync run.
type SyncResult struct {
	Success  bool         `json:"success"`            // No pair or worklog failed
	DryRun   bool         `json:"dry_run,omitempty"`  // Nothing was created
	Stats    SyncStats    `json:"stats"`              // Accumulated statistics
	Pairs    []PairResult `json:"pairs"`              // Per-pair breakdown
	Warnings []string     `json:"warnings,omitempty"` // Non-fatal warnings
}

func (r *SyncResult) add(p PairResult) {
	r.Pairs = append(r.Pairs, p)
	r.Stats.Pairs++
	r.Stats.Found += p.Found
	r.Stats.IssuesCreated += p.IssuesCreated
	r.Stats.Copied += p.Copied
	r.Stats.Skipped += p.Skipped
	r.Stats.Errors += p.Errors
	if p.Error != "" {
		r.Stats.PairsFailed++
	}
	if p.Error != "" || p.Errors > 0 {
		r.Success = false
	}
}
