package main

import (
	"io"

	"github.com/spf13/cobra"

	"statik/internal/analysis"
	"statik/internal/output"
)

var (
	refsKind string
	refsFile string
)

var referencesCmd = &cobra.Command{
	Use:   "references <symbol>",
	Short: "Find all references to a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer e.Close()

		file := refsFile
		if file != "" {
			file = e.relativePath(file)
		}
		refs, err := analysis.References(e.DB, args[0], refsKind, file)
		if err != nil {
			return err
		}

		result := map[string]interface{}{"symbol": args[0], "references": refs, "total": len(refs)}
		return e.emit(output.Doc{
			Value: result,
			Text: func(w io.Writer) error {
				for _, ref := range refs {
					output.Line(w, "%s:%d %s", ref.Path, ref.Line, ref.Kind)
				}
				output.Line(w, "%d references to %s", len(refs), args[0])
				return nil
			},
			CSV: func() [][]string {
				rows := [][]string{{"path", "line", "kind"}}
				for _, ref := range refs {
					rows = append(rows, []string{ref.Path, itoa(ref.Line), string(ref.Kind)})
				}
				return rows
			},
		})
	},
}

func init() {
	referencesCmd.Flags().StringVar(&refsKind, "kind", "", "Filter by reference kind (call, type_usage, inheritance, ...)")
	referencesCmd.Flags().StringVar(&refsFile, "file", "", "Filter to a specific file")
	rootCmd.AddCommand(referencesCmd)
}
