package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copylog/copylog/internal/config"
	"github.com/copylog/copylog/internal/ui"
)

// verifyResult is the outcome of checking one endpoint.
type verifyResult struct {
	Side     string `json:"side"`
	URL      string `json:"url"`
	Username string `json:"username"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the credentials of both servers",
		Long: `Check that both servers accept the configured credentials and know the
configured users. sync runs the same check before copying unless
--skip-verify is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runVerify(cmd)
		},
	}
}

func (a *app) runVerify(cmd *cobra.Command) error {
	if err := prepare(a.cfg, passwordPrompt()); err != nil {
		return err
	}

	sides := []struct {
		side, role string
		ep         config.Endpoint
	}{
		{"from", "source", a.cfg.From},
		{"to", "target", a.cfg.To},
	}

	results := make([]verifyResult, 0, len(sides))
	var firstErr error
	for _, s := range sides {
		res := verifyResult{Side: s.side, URL: s.ep.URL, Username: s.ep.Username, OK: true}
		t, err := a.openTracker(s.role, s.ep)
		if err == nil {
			res.URL = t.BaseURL()
			err = t.VerifyCredentials(a.ctx, s.ep.Username)
		}
		if err != nil {
			res.OK = false
			res.Error = err.Error()
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", s.role, err)
			}
		}
		results = append(results, res)
	}

	if a.jsonOutput {
		if err := outputJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else if !a.quiet {
		out := cmd.OutOrStdout()
		for _, r := range results {
			if r.OK {
				fmt.Fprintf(out, "%s %s  %s at %s\n", ui.RenderPassIcon(), r.Side, r.Username, r.URL)
			} else {
				fmt.Fprintf(out, "%s %s  %s\n", ui.RenderFailIcon(), r.Side, ui.RenderFail(r.Error))
			}
		}
	}
	return firstErr
}
