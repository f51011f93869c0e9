package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"statik/internal/analysis"
	"statik/internal/output"
)

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Detect circular dependencies",
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
		result, err := analysis.Cycles(cmd.Context(), g, e.Opts.RuntimeOnly)
		if err != nil {
			return err
		}

		return e.emit(output.Doc{
			Value: result,
			Text: func(w io.Writer) error {
				if len(result.Cycles) == 0 {
					output.Line(w, "No circular dependencies found (%d files, %s confidence).",
						result.Summary.TotalFiles, confidenceLabel(result.Confidence))
					return nil
				}
				for _, cycle := range result.Cycles {
					output.Line(w, "%s -> %s", strings.Join(cycle.Files, " -> "), cycle.Files[0])
				}
				output.Line(w, "%d cycles involving %d files (%s confidence)",
					result.Summary.CycleCount, result.Summary.FilesInCycles, confidenceLabel(result.Confidence))
				return nil
			},
			CSV: func() [][]string {
				rows := [][]string{{"length", "files"}}
				for _, cycle := range result.Cycles {
					rows = append(rows, []string{itoa(cycle.Length), strings.Join(cycle.Files, " -> ")})
				}
				return rows
			},
		})
	},
}

func init() {
	rootCmd.AddCommand(cyclesCmd)
}
