package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"imgbatch/internal/history"
	"imgbatch/internal/settings"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversion jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !st.History.Enabled {
				fmt.Fprintln(out, "history is disabled (settings set history.enabled true)")
				return nil
			}
			path, err := settings.ExpandPath(st.History.Path)
			if err != nil {
				return err
			}
			store, err := history.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if records == nil {
					records = []history.Record{}
				}
				return printJSON(out, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "no jobs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderTable(historyHeaders(), historyRows(records), historyAligns()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of jobs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON output")
	return cmd
}

func historyHeaders() []string {
	return []string{"Started", "Job", "Format", "Outcome", "Converted", "Skipped", "Failed", "Deleted", "Source"}
}

func historyAligns() []columnAlignment {
	return []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}
}

func historyRows(records []history.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		id := r.JobID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			id,
			string(r.Config.TargetFormat),
			r.Outcome,
			strconv.Itoa(r.Stats.Converted),
			strconv.Itoa(r.Stats.SkippedExists + r.Stats.SkippedUnrecognized),
			strconv.Itoa(r.Stats.Failed),
			strconv.Itoa(r.Stats.Deleted),
			truncateRunes(r.Config.SourceDir, 40),
		})
	}
	return rows
}
