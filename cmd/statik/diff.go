package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"statik/internal/analysis"
	staterr "statik/internal/errors"
	"statik/internal/output"
	"statik/internal/storage"
)

var (
	diffBefore string
	diffCI     bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare export changes between two index snapshots",
	Long: `Compare a baseline index snapshot against the current index and
classify each export change as safe, expanding, breaking, or restructuring.

The baseline may be a plain index.db or a zstd-compressed .db.zst snapshot
written by ` + "`statik index --snapshot`" + `.

With --ci the command exits 1 when any breaking change is found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if diffBefore == "" {
			return staterr.Newf(staterr.ConfigInvalid, "diff requires --before <snapshot>")
		}

		e, err := newEngine(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer e.Close()

		before, cleanup, err := storage.OpenSnapshot(diffBefore, e.Logger)
		if err != nil {
			return staterr.New(staterr.PersistenceIO, "failed to open baseline snapshot", err)
		}
		defer cleanup()

		result, err := analysis.Diff(cmd.Context(), before, e.DB, e.Root)
		if err != nil {
			return err
		}

		if err := e.emit(output.Doc{
			Value: result,
			Text: func(w io.Writer) error {
				for _, change := range result.Changes {
					output.Line(w, "%-13s %s %s (%s)", change.Kind, change.Path, change.Name, change.Detail)
				}
				output.Line(w, "%d breaking, %d expanding, %d restructuring (%d files changed, %d unchanged)",
					result.Summary.Breaking, result.Summary.Expanding, result.Summary.Restructuring,
					result.Summary.FilesChanged, result.Summary.FilesUnchanged)
				return nil
			},
			CSV: func() [][]string {
				rows := [][]string{{"kind", "path", "name", "detail"}}
				for _, change := range result.Changes {
					rows = append(rows, []string{string(change.Kind), change.Path, change.Name, change.Detail})
				}
				return rows
			},
		}); err != nil {
			return err
		}

		if diffCI && result.Summary.Breaking > 0 {
			cleanup()
			e.Close()
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().StringVar(&diffBefore, "before", "", "Path to the baseline index snapshot (.db or .db.zst)")
	diffCmd.Flags().BoolVar(&diffCI, "ci", false, "Exit 1 when breaking changes are found")
	rootCmd.AddCommand(diffCmd)
}
