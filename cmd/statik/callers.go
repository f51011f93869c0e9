package main

import (
	"io"

	"github.com/spf13/cobra"

	"statik/internal/analysis"
	"statik/internal/output"
)

var callersFile string

var callersCmd = &cobra.Command{
	Use:   "callers <symbol>",
	Short: "Find all call sites of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer e.Close()

		file := callersFile
		if file != "" {
			file = e.relativePath(file)
		}
		refs, err := analysis.Callers(e.DB, args[0], file)
		if err != nil {
			return err
		}

		result := map[string]interface{}{"symbol": args[0], "callers": refs, "total": len(refs)}
		return e.emit(output.Doc{
			Value: result,
			Text: func(w io.Writer) error {
				for _, ref := range refs {
					output.Line(w, "%s:%d", ref.Path, ref.Line)
				}
				output.Line(w, "%d call sites of %s", len(refs), args[0])
				return nil
			},
			CSV: func() [][]string {
				rows := [][]string{{"path", "line"}}
				for _, ref := range refs {
					rows = append(rows, []string{ref.Path, itoa(ref.Line)})
				}
				return rows
			},
		})
	},
}

func init() {
	callersCmd.Flags().StringVar(&callersFile, "file", "", "Filter to a specific file")
	rootCmd.AddCommand(callersCmd)
}
