package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/copylog/copylog/internal/config"
)

// ErrPromptCancelled is returned when the operator aborts a prompt.
var ErrPromptCancelled = errors.New("prompt cancelled")

// PasswordPrompt returns a prompt for missing endpoint passwords, or nil
// when copylog is not attached to a terminal. Setting ACCESSIBLE switches
// from the form to a plain line prompt.
func PasswordPrompt() config.PasswordPrompt {
	if !IsInteractive() {
		return nil
	}
	if os.Getenv("ACCESSIBLE") != "" {
		return plainPasswordPrompt
	}
	return formPasswordPrompt
}

func promptTitle(side string, ep config.Endpoint) string {
	return fmt.Sprintf("Password for %s at %s (%s)", ep.Username, ep.URL, side)
}

func formPasswordPrompt(side string, ep config.Endpoint) (string, error) {
	var password string
	input := huh.NewInput().
		Title(promptTitle(side, ep)).
		EchoMode(huh.EchoModePassword).
		Value(&password).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("password is required")
			}
			return nil
		})

	if err := huh.NewForm(huh.NewGroup(input)).WithOutput(os.Stderr).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrPromptCancelled
		}
		return "", fmt.Errorf("password prompt: %w", err)
	}
	return password, nil
}

func plainPasswordPrompt(side string, ep config.Endpoint) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", promptTitle(side, ep))
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
