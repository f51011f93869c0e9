package main

import (
	"io"

	"github.com/spf13/cobra"

	"statik/internal/analysis"
	"statik/internal/output"
)

var exportsCmd = &cobra.Command{
	Use:   "exports <file>",
	Short: "List exports from a file with used/unused status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer e.Close()

		g, err := e.buildGraph()
		if err != nil {
			return err
		}
		result, err := analysis.Exports(cmd.Context(), g, e.DB, e.relativePath(args[0]))
		if err != nil {
			return err
		}

		return e.emit(output.Doc{
			Value: result,
			Text: func(w io.Writer) error {
				output.Line(w, "%s (%d exports, %s confidence)", result.Path, len(result.Exports), confidenceLabel(result.Confidence))
				for _, exp := range result.Exports {
					status := "used"
					if !exp.Used {
						status = "unused"
					}
					marker := ""
					if exp.Reexport {
						marker = " (re-export)"
					}
					output.Line(w, "  %-8s %s:%d %s%s", status, result.Path, exp.Line, exp.Name, marker)
				}
				return nil
			},
			CSV: func() [][]string {
				rows := [][]string{{"name", "line", "used", "reexport", "typeOnly"}}
				for _, exp := range result.Exports {
					rows = append(rows, []string{exp.Name, itoa(exp.Line), boolStr(exp.Used), boolStr(exp.Reexport), boolStr(exp.TypeOnly)})
				}
				return rows
			},
		})
	},
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func init() {
	rootCmd.AddCommand(exportsCmd)
}
