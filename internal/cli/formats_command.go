package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"imgbatch/internal/model"
)

type formatInfo struct {
	Format    model.Format `json:"format"`
	Name      string       `json:"name"`
	Extension string       `json:"extension"`
}

func newFormatsCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List target formats and the source extensions that are picked up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			formats := listFormats()
			if jsonOut {
				return printJSON(out, map[string]any{
					"targets":               formats,
					"recognized_extensions": model.RecognizedExtensions(),
				})
			}

			rows := make([][]string, 0, len(formats))
			for _, f := range formats {
				rows = append(rows, []string{f.Name, string(f.Format), f.Extension})
			}
			fmt.Fprintln(out, renderTable([]string{"Format", "--format", "Writes"}, rows, nil))
			fmt.Fprintf(out, "source extensions (case-sensitive): %s\n", strings.Join(model.RecognizedExtensions(), " "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON output")
	return cmd
}

func listFormats() []formatInfo {
	upper := cases.Upper(language.Und)
	out := make([]formatInfo, 0, len(model.AllFormats()))
	for _, f := range model.AllFormats() {
		out = append(out, formatInfo{
			Format:    f,
			Name:      upper.String(string(f)),
			Extension: f.Extension(),
		})
	}
	return out
}
