package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/copylog/copylog/internal/config"
	"github.com/copylog/copylog/internal/logging"
	"github.com/copylog/copylog/internal/telemetry"
	"github.com/copylog/copylog/internal/tracker"
	"github.com/copylog/copylog/internal/ui"
)

// skipConfigAnnotation marks commands that run without config.json.
const skipConfigAnnotation = "copylog/skip-config"

// passwordPrompt asks for missing passwords on a terminal.
var passwordPrompt = ui.PasswordPrompt

// app holds the state shared by every command of one invocation.
type app struct {
	// Flags
	configDir  string
	jsonOutput bool
	verbose    bool
	quiet      bool

	ctx    context.Context
	cancel context.CancelFunc

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	telemetry bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "copylog",
		Short: "Copy Jira worklogs between servers without duplicates",
		Long: `copylog reads the worklogs one user logged on a source Jira server and
logs them again, on matching issues, on a target Jira server. Worklogs that
are already present on the target are skipped, so runs can be repeated.

Configuration is read from config.json and config.local.json in --config-dir.

Examples:
  copylog sync --dry-run
  copylog sync --interval 30m
  copylog report --from 2024-08-01 --to 2024-08-31
  copylog config show`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.preRun,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", ".", "Directory holding config.json and config.local.json")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output in JSON format")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose/debug output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-essential output (errors only)")

	root.AddCommand(
		newSyncCmd(a),
		newReportCmd(a),
		newVerifyCmd(a),
		newConfigCmd(a),
		newCacheCmd(a),
		newVersionCmd(a),
	)
	return root
}

// preRun sets up the signal context, reads the configuration and builds
// the logger. Commands annotated with skipConfigAnnotation get a console
// logger only.
func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	// Phase 1: cancellation on SIGINT/SIGTERM.
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	a.ctx, a.cancel = signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)

	// Phase 2: configuration.
	if cmd.Annotations[skipConfigAnnotation] == "true" || cmd.Name() == "help" {
		a.logger, a.logCloser = logging.New(logging.Options{Level: a.logLevel(""), Console: cmd.ErrOrStderr()})
		return nil
	}
	cfg, err := config.Load(a.configDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// Phase 3: logging and telemetry.
	a.logger, a.logCloser = logging.New(logging.Options{
		Level:   a.logLevel(cfg.Log.Level),
		Console: cmd.ErrOrStderr(),
		File:    cfg.ResolvePath(cfg.Log.File),
	})
	if err := telemetry.Init(a.ctx, "copylog", Version); err != nil {
		a.logger.Warn("telemetry disabled", "error", err)
	} else {
		a.telemetry = true
	}
	a.logger.Debug("config loaded", "files", cfg.Files)
	return nil
}

// logLevel applies -v and -q on top of the configured level.
func (a *app) logLevel(configured string) slog.Level {
	switch {
	case a.verbose:
		return slog.LevelDebug
	case a.quiet:
		return slog.LevelError
	default:
		return logging.ParseLevel(configured)
	}
}

// close releases everything preRun set up. Safe to call more than once.
func (a *app) close() {
	if a.telemetry {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := telemetry.Shutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn("telemetry flush failed", "error", err)
		}
		cancel()
		a.telemetry = false
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
		a.logCloser = nil
	}
	if a.cancel != nil {
		a.cancel()
	}
}

// prepare validates the configuration and fills in missing passwords.
func prepare(cfg *config.Config, prompt config.PasswordPrompt) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.FillPasswords(prompt); err != nil {
		return err
	}
	_, err := cfg.Location()
	return err
}

// openTracker connects to one endpoint. role ("source" or "target") labels
// its telemetry.
func (a *app) openTracker(role string, ep config.Endpoint) (tracker.IssueTracker, error) {
	t, err := tracker.Open(a.ctx, tracker.Endpoint{
		Type:     ep.Type,
		URL:      ep.URL,
		Username: ep.Username,
		Password: ep.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s tracker: %w", role, err)
	}
	return telemetry.WrapTracker(t, role), nil
}

// progress prints a status line to stderr unless output is quiet or JSON.
func (a *app) progress(cmd *cobra.Command, format string, args ...interface{}) {
	if a.quiet || a.jsonOutput {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}
