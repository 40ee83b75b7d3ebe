package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/copylog/copylog/internal/config"
	"github.com/copylog/copylog/internal/ui"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(newConfigShowCmd(a), newConfigKeysCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Long: `Print the configuration after merging config.local.json over config.json
and applying COPYLOG_* environment variables. Passwords and the cache DSN
are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shown := a.cfg.Redacted()
			if a.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]interface{}{
					"files":    shown.Files,
					"values":   shown.Values(),
					"projects": shown.Projects,
				})
			}
			data, err := yaml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, f := range shown.Files {
				fmt.Fprintln(out, ui.RenderMuted("# "+f))
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "keys",
		Short:       "List configuration keys and their environment variables",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys := make([]config.Key, len(config.Keys))
			copy(keys, config.Keys)
			sort.Slice(keys, func(i, j int) bool { return keys[i].Key < keys[j].Key })

			if a.jsonOutput {
				type keyInfo struct {
					Key         string `json:"key"`
					EnvVar      string `json:"env_var,omitempty"`
					Default     string `json:"default,omitempty"`
					Required    bool   `json:"required,omitempty"`
					Description string `json:"description"`
				}
				infos := make([]keyInfo, 0, len(keys))
				for _, k := range keys {
					infos = append(infos, keyInfo{k.Key, k.EnvVar, k.Default, k.Required, k.Description})
				}
				return outputJSON(cmd.OutOrStdout(), infos)
			}

			out := cmd.OutOrStdout()
			for _, k := range keys {
				line := fmt.Sprintf("%-18s %-26s %s", k.Key, k.EnvVar, k.Description)
				if k.Default != "" {
					line += ui.RenderMuted(fmt.Sprintf(" (default %s)", k.Default))
				}
				if k.Required {
					line += ui.RenderAccent(" required")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
