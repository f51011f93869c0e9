package main

import (
	"io"
	"sort"

	"github.com/spf13/cobra"

	"statik/internal/analysis"
	"statik/internal/output"
)

var summaryByDirectory bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Project overview statistics",
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
		result, err := analysis.Summary(cmd.Context(), g, e.DB, summaryByDirectory)
		if err != nil {
			return err
		}

		return e.emit(output.Doc{
			Value: result,
			Text: func(w io.Writer) error {
				output.Line(w, "files: %d  symbols: %d  imports: %d  exports: %d  references: %d",
					result.Files, result.Symbols, result.Imports, result.Exports, result.References)
				output.Line(w, "edges: %d  unresolved: %d  externals: %d  entry points: %d",
					result.Edges, result.Unresolved, result.Externals, result.EntryPoints)

				langs := make([]string, 0, len(result.ByLanguage))
				for lang := range result.ByLanguage {
					langs = append(langs, lang)
				}
				sort.Strings(langs)
				for _, lang := range langs {
					output.Line(w, "  %s: %d files", lang, result.ByLanguage[lang])
				}
				for _, dir := range result.ByDirectory {
					output.Line(w, "  %-24s %d files, %d outgoing, %d incoming", dir.Directory, dir.Files, dir.Edges, dir.Incoming)
				}
				output.Line(w, "confidence: %s", confidenceLabel(result.Confidence))
				return nil
			},
		})
	},
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryByDirectory, "by-directory", false, "Aggregate statistics per top-level directory")
	rootCmd.AddCommand(summaryCmd)
}
