package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DateLayout renders the start time of a row, offset included.
const DateLayout = "2006-01-02T15:04:05.000-0700"

var unsafeName = strings.NewReplacer("/", "_", `\`, "_", ":", "_", " ", "_")

// FileName is the CSV file a report is written to: {job}_{author}.csv.
func FileName(r *Report) string {
	return unsafeName.Replace(r.Job) + "_" + unsafeName.Replace(r.Author) + ".csv"
}

// WriteCSV writes r: for each project a one-cell header row followed by its
// worklog rows, then the total in seconds, minutes and hours.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	for _, s := range r.Sections {
		if err := cw.Write([]string{s.Project}); err != nil {
			return err
		}
		for _, row := range s.Rows {
			record := []string{
				row.Started.Format(DateLayout),
				row.IssueKey,
				row.TimeSpent,
				strconv.Itoa(row.Seconds),
				row.Comment,
				row.WorklogID,
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}

	total := float64(r.TotalSeconds())
	totals := [][]string{
		{"", "", "", formatNumber(total), "seconds"},
		{"", "", "", formatNumber(total / 60), "minutes"},
		{"", "", "", formatNumber(total / 3600), "hours"},
	}
	if err := cw.WriteAll(totals); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile writes r into dir, creating dir if needed, and returns the path.
func WriteFile(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, FileName(r))
	f, err := os.Create(path) // #nosec G304 -- name is sanitized by FileName
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := WriteCSV(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// formatNumber prints whole numbers without a fraction and others with
// as many digits as needed.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
