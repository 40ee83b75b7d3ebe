package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := New(Options{Level: slog.LevelWarn, Console: &buf})
	defer func() { _ = closer.Close() }()

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=value") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestFileSinkReceivesInfo(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "copylog.log")
	logger, closer := New(Options{Level: slog.LevelError, Console: &buf, File: path, JSON: true})

	logger.With("component", "engine").Info("copied worklog", "issue", "AIL-7")
	logger.Debug("too verbose")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if buf.Len() != 0 {
		t.Errorf("console got %q, want nothing below error", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"msg":"copied worklog"`) || !strings.Contains(got, `"component":"engine"`) {
		t.Errorf("log file = %q, want JSON info record with component", got)
	}
	if strings.Contains(got, "too verbose") {
		t.Errorf("log file contains debug record: %q", got)
	}
}

func TestFileFollowsVerboseConsole(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "copylog.log")
	logger, closer := New(Options{Level: slog.LevelDebug, Console: &buf, File: path})

	logger.WithGroup("req").Debug("query", "jql", "project = SS")
	_ = closer.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "req.jql=") {
		t.Errorf("log file = %q, want grouped debug record", data)
	}
	if !strings.Contains(buf.String(), "req.jql=") {
		t.Errorf("console = %q, want grouped debug record", buf.String())
	}
}

func TestGetEnvDefaults(t *testing.T) {
	t.Setenv("COPYLOG_LOG_MAX_SIZE", "oops")
	if got := getEnvInt("COPYLOG_LOG_MAX_SIZE", 50); got != 50 {
		t.Errorf("getEnvInt() = %d, want default 50", got)
	}
	t.Setenv("COPYLOG_LOG_MAX_SIZE", "5")
	if got := getEnvInt("COPYLOG_LOG_MAX_SIZE", 50); got != 5 {
		t.Errorf("getEnvInt() = %d, want 5", got)
	}
	t.Setenv("COPYLOG_LOG_COMPRESS", "false")
	if getEnvBool("COPYLOG_LOG_COMPRESS", true) {
		t.Error("getEnvBool() = true, want false")
	}
}
