// Package timeparsing resolves the date expressions copylog accepts for the
// sync window and report bounds.
//
// Expressions are tried in layers:
//  1. Compact duration (-7d, -2w, +6h)
//  2. Absolute date or timestamp (2024-01-31, 2024-01-31 09:00, RFC3339)
//  3. Natural language (yesterday, 3 days ago, next monday)
package timeparsing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// compactDurationRe matches compact duration patterns: [+-]?(\d+)([hdwmMy])
// Examples: +6h, -1d, +2w, 3m, -1M, 1y
var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmMy])$`)

// ParseCompactDuration parses compact duration syntax relative to now.
//
// Units: h = hours, d = days, w = weeks, m or M = months, y = years. A missing
// sign means forward in time.
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	matches := compactDurationRe.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}

	amount, err := strconv.Atoi(matches[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration amount: %q", matches[2])
	}
	if matches[1] == "-" {
		amount = -amount
	}

	return applyDuration(now, amount, matches[3]), nil
}

func applyDuration(base time.Time, amount int, unit string) time.Time {
	switch unit {
	case "h":
		return base.Add(time.Duration(amount) * time.Hour)
	case "d":
		return base.AddDate(0, 0, amount)
	case "w":
		return base.AddDate(0, 0, amount*7)
	case "m", "M":
		return base.AddDate(0, amount, 0)
	case "y":
		return base.AddDate(amount, 0, 0)
	default:
		return base
	}
}

// IsCompactDuration returns true if the string matches compact duration syntax.
func IsCompactDuration(s string) bool {
	return compactDurationRe.MatchString(s)
}

// dateOnlyLayouts are accepted absolute dates without a time of day.
var dateOnlyLayouts = []string{"2006-01-02", "2006/01/02"}

// timestampLayouts are accepted absolute timestamps. Layouts without an
// offset are read in the location of the reference time.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
}

var absoluteLayouts = append(append([]string{}, dateOnlyLayouts...), timestampLayouts...)

// ParseAbsolute parses a date or timestamp. Values without an offset are
// interpreted in loc.
func ParseAbsolute(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an absolute date: %q", s)
}

// IsDateOnly reports whether s is a calendar date without a time of day.
func IsDateOnly(s string) bool {
	for _, layout := range dateOnlyLayouts {
		if _, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return true
		}
	}
	return false
}

// ParseRelativeTime parses s with each layer in turn. Relative expressions
// are resolved against now and absolute ones are read in now's location.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date expression")
	}

	if t, err := ParseCompactDuration(s, now); err == nil {
		return t, nil
	}
	if t, err := ParseAbsolute(s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := ParseNaturalLanguage(s, now); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("cannot parse %q: use a date like 2024-01-31, a duration like -7d or a phrase like \"3 days ago\"", s)
}

// EndOfDay returns the last instant of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
}

// StartOfMonth returns midnight on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
