package ui

import (
	"os"
	"testing"
)

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		cliColor      string
		cliColorForce string
		wantColor     bool
	}{
		{name: "NO_COLOR disables color", noColor: "1", wantColor: false},
		{name: "CLICOLOR=0 disables color", cliColor: "0", wantColor: false},
		{name: "CLICOLOR_FORCE enables color without a TTY", cliColorForce: "1", wantColor: true},
		{name: "NO_COLOR wins over CLICOLOR_FORCE", noColor: "1", cliColorForce: "1", wantColor: false},
		{name: "no TTY under go test", wantColor: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, "NO_COLOR", "CLICOLOR", "CLICOLOR_FORCE")
			if tt.noColor != "" {
				t.Setenv("NO_COLOR", tt.noColor)
			}
			if tt.cliColor != "" {
				t.Setenv("CLICOLOR", tt.cliColor)
			}
			if tt.cliColorForce != "" {
				t.Setenv("CLICOLOR_FORCE", tt.cliColorForce)
			}

			if got := ShouldUseColor(); got != tt.wantColor {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.wantColor)
			}
		})
	}
}

func TestShouldUseEmoji(t *testing.T) {
	t.Setenv("COPYLOG_NO_EMOJI", "1")
	if ShouldUseEmoji() {
		t.Error("COPYLOG_NO_EMOJI should disable emoji")
	}

	unsetEnv(t, "COPYLOG_NO_EMOJI")
	if ShouldUseEmoji() {
		t.Error("stdout is not a TTY under go test")
	}
}

func TestStatusIconsFallBackToASCII(t *testing.T) {
	t.Setenv("COPYLOG_NO_EMOJI", "1")
	if got := icon(IconPass, "ok"); got != "ok" {
		t.Errorf("icon() = %q, want ASCII fallback", got)
	}
}

func TestTerminalWidthFallback(t *testing.T) {
	if got := TerminalWidth(100); got != 100 && !IsTerminal() {
		t.Errorf("TerminalWidth(100) = %d without a TTY", got)
	}
}

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
