package main

import (
	"io"
	"sort"

	"github.com/spf13/cobra"

	"statik/internal/analysis"
	"statik/internal/output"
)

var impactCmd = &cobra.Command{
	Use:   "impact <file>",
	Short: "Blast radius / refactoring impact analysis",
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
		result, err := analysis.Impact(cmd.Context(), g, e.relativePath(args[0]), e.Opts.MaxDepth, e.Opts.RuntimeOnly)
		if err != nil {
			return err
		}

		return e.emit(output.Doc{
			Value: result,
			Text: func(w io.Writer) error {
				output.Line(w, "Changing %s affects %d files (max depth %d, %s confidence)",
					result.Target, result.Summary.TotalAffected, result.Summary.MaxDepth, confidenceLabel(result.Confidence))
				depths := make([]int, 0, len(result.ByDepth))
				for depth := range result.ByDepth {
					depths = append(depths, depth)
				}
				sort.Ints(depths)
				for _, depth := range depths {
					output.Line(w, "depth %d:", depth)
					for _, path := range result.ByDepth[depth] {
						output.Line(w, "  %s", path)
					}
				}
				return nil
			},
			CSV: func() [][]string {
				rows := [][]string{{"path", "depth", "confidence"}}
				for _, f := range result.Affected {
					rows = append(rows, []string{f.Path, itoa(f.Depth), confidenceLabel(f.Confidence)})
				}
				return rows
			},
		})
	},
}

func init() {
	rootCmd.AddCommand(impactCmd)
}
