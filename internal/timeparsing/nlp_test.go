package timeparsing

import (
	"testing"
	"time"
)

// Wednesday, January 15, 2025, 10:00.
var wednesday = time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

func TestParseNaturalLanguage(t *testing.T) {
	tests := []struct {
		input    string
		wantDate string
		wantHour int // -1 means don't check hour
		wantErr  bool
	}{
		{input: "tomorrow", wantDate: "2025-01-16", wantHour: -1},
		{input: "yesterday", wantDate: "2025-01-14", wantHour: -1},
		{input: "next monday", wantDate: "2025-01-20", wantHour: -1},
		{input: "tomorrow at 9am", wantDate: "2025-01-16", wantHour: 9},
		{input: "in 3 days", wantDate: "2025-01-18", wantHour: -1},
		{input: "3 days ago", wantDate: "2025-01-12", wantHour: -1},
		{input: "not a date at all", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNaturalLanguage(tt.input, wednesday)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNaturalLanguage(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if d := got.Format("2006-01-02"); d != tt.wantDate {
				t.Errorf("ParseNaturalLanguage(%q) date = %s, want %s", tt.input, d, tt.wantDate)
			}
			if tt.wantHour >= 0 && got.Hour() != tt.wantHour {
				t.Errorf("ParseNaturalLanguage(%q) hour = %d, want %d", tt.input, got.Hour(), tt.wantHour)
			}
		})
	}
}

func TestParseRelativeTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantDate string
		wantHour int
		wantErr  bool
	}{
		{name: "compact", input: "-1d", wantDate: "2025-01-14", wantHour: 10},
		{name: "compact hours", input: "+6h", wantDate: "2025-01-15", wantHour: 16},
		{name: "date only", input: "2025-02-01", wantDate: "2025-02-01", wantHour: 0},
		{name: "date and time", input: " 2025-02-01 14:30 ", wantDate: "2025-02-01", wantHour: 14},
		{name: "phrase", input: "tomorrow", wantDate: "2025-01-16", wantHour: -1},
		{name: "empty", input: "  ", wantErr: true},
		{name: "garbage", input: "not-a-date", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.input, wednesday)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRelativeTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if d := got.Format("2006-01-02"); d != tt.wantDate {
				t.Errorf("ParseRelativeTime(%q) date = %s, want %s", tt.input, d, tt.wantDate)
			}
			if tt.wantHour >= 0 && got.Hour() != tt.wantHour {
				t.Errorf("ParseRelativeTime(%q) hour = %d, want %d", tt.input, got.Hour(), tt.wantHour)
			}
		})
	}
}

// A compact duration keeps the time of day; it is never read as a phrase.
func TestParseRelativeTimeLayerPrecedence(t *testing.T) {
	got, err := ParseRelativeTime("+1d", wednesday)
	if err != nil {
		t.Fatalf("ParseRelativeTime(+1d) failed: %v", err)
	}
	if want := wednesday.AddDate(0, 0, 1); !got.Equal(want) {
		t.Errorf("ParseRelativeTime(+1d) = %v, want %v", got, want)
	}
}
