package timeparsing

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// queryRelativeRe matches the relative dates the tracker query language
// evaluates itself. There "m" means minutes; write -1M for months.
var queryRelativeRe = regexp.MustCompile(`^-\d+[wdhm]$`)

// queryFunctionRe matches query functions such as startOfWeek() or
// startOfMonth(-1).
var queryFunctionRe = regexp.MustCompile(`^[a-zA-Z]+\([^()"]*\)$`)

// SinceOperand turns the configured sync window into the right-hand side of
// an "updated >=" clause. Quoted values, tracker relative dates and query
// functions pass through; anything else is resolved against now and
// rendered as a quoted date.
func SinceOperand(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`):
		return s, nil
	case queryRelativeRe.MatchString(s), queryFunctionRe.MatchString(s):
		return s, nil
	}

	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return "", fmt.Errorf("since: %w", err)
	}
	return QueryDate(t.In(now.Location())), nil
}

// QueryDate renders t as a quoted query date, keeping the time of day only
// when it is not midnight.
func QueryDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 {
		return `"` + t.Format("2006-01-02") + `"`
	}
	return `"` + t.Format("2006-01-02 15:04") + `"`
}
