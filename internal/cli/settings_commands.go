package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"imgbatch/internal/settings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or update the saved settings",
	}

	settingsCmd.AddCommand(newSettingsShowCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))

	return settingsCmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, path, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return printJSON(out, map[string]any{
					"config_path": path,
					"exists":      ctx.settingsExists,
					"settings":    st,
				})
			}

			suffix := ""
			if !ctx.settingsExists {
				suffix = " (not created yet; showing defaults)"
			}
			fmt.Fprintf(out, "config: %s%s\n", path, suffix)
			for _, key := range settings.Keys() {
				value, err := st.Get(key)
				if err != nil {
					return err
				}
				if value == "" {
					value = "(empty)"
				}
				fmt.Fprintf(out, "%s: %s\n", key, value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON output")
	return cmd
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Update one setting",
		Long:  "Update one setting. Keys: " + strings.Join(settings.Keys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, path, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			key := strings.ToLower(strings.TrimSpace(args[0]))
			if err := st.Set(key, args[1]); err != nil {
				return err
			}
			saved, err := settings.Save(path, st)
			if err != nil {
				return err
			}
			value, _ := st.Get(key)
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s = %s (%s)\n", key, value, saved)
			return nil
		},
	}
	return cmd
}
