package jira

import (
	"errors"
	"fmt"
	"time"
)

// worklogLayout is how Jira Server writes and expects worklog start times,
// e.g. 2024-01-10T09:05:00.000+0800.
const worklogLayout = "2006-01-02T15:04:05.000-0700"

// acceptedLayouts are tried in order when reading timestamps. Older
// servers and proxies drop the milliseconds or write a Z suffix.
var acceptedLayouts = []string{
	worklogLayout,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
}

// ParseTimestamp reads a Jira timestamp, keeping its offset.
func ParseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", ts)
}

// FormatTimestamp renders t for the worklog endpoint in t's own offset.
// The target server stores the offset, so same-day checks stay stable.
func FormatTimestamp(t time.Time) string {
	return t.Format(worklogLayout)
}
