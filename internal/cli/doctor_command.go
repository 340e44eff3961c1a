package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"imgbatch/internal/preflight"
	"imgbatch/internal/settings"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var source string
	var dest string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check folders, codecs, and the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, path, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("source") {
				st.SourceDir = strings.TrimSpace(source)
			}
			if cmd.Flags().Changed("dest") {
				st.DestDir = strings.TrimSpace(dest)
			}
			cfg := st.JobConfig()
			historyPath := st.History.Path
			if expanded, err := settings.ExpandPath(historyPath); err == nil {
				historyPath = expanded
			}

			res := preflight.Doctor(cmd.Context(), preflight.Options{
				SourceDir:      cfg.SourceDir,
				DestDir:        cfg.DestDir,
				ConfigPath:     path,
				HistoryEnabled: st.History.Enabled,
				HistoryPath:    historyPath,
			})

			out := cmd.OutOrStdout()
			if jsonOut {
				if err := printJSON(out, res); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(res.Checks))
				for _, c := range res.Checks {
					status := "ok"
					if !c.OK {
						status = "fail"
					}
					rows = append(rows, []string{c.Name, status, c.Message})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Details"}, rows, nil))
			}
			if !res.OK {
				return errors.New("doctor checks failed")
			}
			if !jsonOut {
				fmt.Fprintln(out, "doctor: all checks passed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Source folder to check instead of the saved one")
	cmd.Flags().StringVar(&dest, "dest", "", "Destination folder to check instead of the saved one")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON output")
	return cmd
}
