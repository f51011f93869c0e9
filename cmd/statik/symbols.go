package main

import (
	"io"

	"github.com/spf13/cobra"

	"statik/internal/analysis"
	"statik/internal/output"
)

var (
	symbolsFile string
	symbolsKind string
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [name]",
	Short: "List symbols in the project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer e.Close()

		query := analysis.SymbolQuery{File: "", Name: "", Kind: symbolsKind}
		if symbolsFile != "" {
			query.File = e.relativePath(symbolsFile)
		}
		if len(args) == 1 {
			query.Name = args[0]
		}

		symbols, err := analysis.Symbols(e.DB, query)
		if err != nil {
			return err
		}

		result := map[string]interface{}{"symbols": symbols, "total": len(symbols)}
		return e.emit(output.Doc{
			Value: result,
			Text: func(w io.Writer) error {
				for _, s := range symbols {
					output.Line(w, "%s:%d %-12s %-14s %s", s.Path, s.Line, s.Kind, s.Visibility, s.QualifiedName)
				}
				output.Line(w, "%d symbols", len(symbols))
				return nil
			},
			CSV: func() [][]string {
				rows := [][]string{{"path", "line", "kind", "visibility", "qualifiedName"}}
				for _, s := range symbols {
					rows = append(rows, []string{s.Path, itoa(s.Line), string(s.Kind), string(s.Visibility), s.QualifiedName})
				}
				return rows
			},
		})
	},
}

func init() {
	symbolsCmd.Flags().StringVar(&symbolsFile, "file", "", "Filter by file path")
	symbolsCmd.Flags().StringVar(&symbolsKind, "kind", "", "Filter by symbol kind (function, class, method, ...)")
	rootCmd.AddCommand(symbolsCmd)
}
