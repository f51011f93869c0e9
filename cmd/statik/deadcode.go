package main

import (
	"io"

	"github.com/spf13/cobra"

	"statik/internal/analysis"
	"statik/internal/output"
)

var deadcodeScope string

var deadcodeCmd = &cobra.Command{
	Use:   "dead-code",
	Short: "Find dead code (orphaned files, unused exports, unreferenced symbols)",
	Long: `Find code nothing reaches: files unreachable from any entry point,
exports never imported anywhere, and non-exported symbols without incoming
references.

Examples:
  statik dead-code
  statik dead-code --scope exports
  statik dead-code --scope files --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := analysis.ParseDeadCodeScope(deadcodeScope)
		if err != nil {
			return err
		}

		e, err := newEngine(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer e.Close()

		g, err := e.buildGraph()
		if err != nil {
			return err
		}
		result, err := analysis.DeadCode(cmd.Context(), g, e.DB, scope)
		if err != nil {
			return err
		}

		return e.emit(output.Doc{
			Value: result,
			Text: func(w io.Writer) error {
				if len(result.DeadFiles) == 0 && len(result.DeadExports) == 0 && len(result.DeadSymbols) == 0 {
					output.Line(w, "No dead code found (%d files, %d entry points, %s confidence).",
						result.Summary.TotalFiles, result.Summary.EntryPoints, confidenceLabel(result.Confidence))
					return nil
				}
				for _, f := range result.DeadFiles {
					output.Line(w, "dead file    %s (%s)", f.Path, confidenceLabel(f.Confidence))
				}
				for _, exp := range result.DeadExports {
					output.Line(w, "dead export  %s:%d %s (%s)", exp.Path, exp.Line, exp.Name, confidenceLabel(exp.Confidence))
				}
				for _, sym := range result.DeadSymbols {
					output.Line(w, "dead symbol  %s:%d %s %s (%s)", sym.Path, sym.Line, sym.Kind, sym.QualifiedName, confidenceLabel(sym.Confidence))
				}
				output.Line(w, "%d dead files, %d dead exports, %d dead symbols (%s confidence)",
					result.Summary.DeadFiles, result.Summary.DeadExports, result.Summary.DeadSymbols, confidenceLabel(result.Confidence))
				for _, lim := range result.Limitations {
					output.Line(w, "note: %d %s", lim.Count, lim.Description)
				}
				return nil
			},
			CSV: func() [][]string {
				rows := [][]string{{"kind", "path", "line", "name", "confidence"}}
				for _, f := range result.DeadFiles {
					rows = append(rows, []string{"file", f.Path, "", "", confidenceLabel(f.Confidence)})
				}
				for _, exp := range result.DeadExports {
					rows = append(rows, []string{"export", exp.Path, itoa(exp.Line), exp.Name, confidenceLabel(exp.Confidence)})
				}
				for _, sym := range result.DeadSymbols {
					rows = append(rows, []string{"symbol", sym.Path, itoa(sym.Line), sym.QualifiedName, confidenceLabel(sym.Confidence)})
				}
				return rows
			},
		})
	},
}

func init() {
	deadcodeCmd.Flags().StringVar(&deadcodeScope, "scope", "all", "Scope: files, exports, symbols, or all")
	rootCmd.AddCommand(deadcodeCmd)
}
