package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"statik/internal/analysis"
	staterr "statik/internal/errors"
	"statik/internal/output"
)

var (
	depsTransitive bool
	depsDirection  string
	depsBetween    []string
)

var depsCmd = &cobra.Command{
	Use:   "deps [file]",
	Short: "File-level dependency analysis",
	Long: `Show what a file imports and what imports it, optionally transitively.

Examples:
  statik deps src/services/user.ts
  statik deps src/db/pool.ts --direction in --transitive
  statik deps --between "src/ui/**" "src/db/**"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// The flag takes the first glob; the second arrives either
		// comma-joined in the same flag value or as the positional
		// argument (`--between "a/**" "b/**"`, as documented).
		fromGlob, toGlob := "", ""
		switch {
		case len(depsBetween) >= 2:
			fromGlob, toGlob = depsBetween[0], depsBetween[1]
		case len(depsBetween) == 1 && len(args) == 1:
			fromGlob, toGlob = depsBetween[0], args[0]
			args = nil
		case len(depsBetween) == 1:
			return staterr.Newf(staterr.ConfigInvalid, "--between requires two globs: --between <from-glob> <to-glob>")
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

		opts := analysis.DepsOptions{
			Transitive:  depsTransitive,
			MaxDepth:    e.Opts.MaxDepth,
			RuntimeOnly: e.Opts.RuntimeOnly,
		}

		if fromGlob != "" {
			result, err := analysis.Between(cmd.Context(), g, fromGlob, toGlob, opts)
			if err != nil {
				return err
			}
			return e.emit(output.Doc{
				Value: result,
				Text: func(w io.Writer) error {
					for _, edge := range result.Edges {
						output.Line(w, "%s -> %s:%d [%s]", edge.From, edge.To, edge.Line, strings.Join(edge.Names, ", "))
					}
					output.Line(w, "%d edges (%s confidence)", len(result.Edges), confidenceLabel(result.Confidence))
					return nil
				},
				CSV: func() [][]string {
					rows := [][]string{{"from", "to", "line", "names", "confidence"}}
					for _, edge := range result.Edges {
						rows = append(rows, []string{edge.From, edge.To, itoa(edge.Line), strings.Join(edge.Names, " "), confidenceLabel(edge.Confidence)})
					}
					return rows
				},
			})
		}

		if len(args) != 1 {
			return staterr.Newf(staterr.ConfigInvalid, "deps requires a file argument (or --between)")
		}
		direction, err := analysis.ParseDirection(depsDirection)
		if err != nil {
			return err
		}
		opts.Direction = direction

		result, err := analysis.Deps(cmd.Context(), g, e.relativePath(args[0]), opts)
		if err != nil {
			return err
		}
		return e.emit(output.Doc{
			Value: result,
			Text: func(w io.Writer) error {
				output.Line(w, "%s (%s confidence)", result.Target, confidenceLabel(result.Confidence))
				if len(result.Imports) > 0 {
					output.Line(w, "imports (%d direct, %d transitive):", result.Summary.DirectImports, result.Summary.TransitiveImports)
					for _, dep := range result.Imports {
						output.Line(w, "  %*s%s", dep.Depth*2-2, "", dep.Path)
					}
				}
				if len(result.ImportedBy) > 0 {
					output.Line(w, "imported by (%d direct, %d transitive):", result.Summary.DirectImporters, result.Summary.TransitiveImporters)
					for _, dep := range result.ImportedBy {
						output.Line(w, "  %*s%s", dep.Depth*2-2, "", dep.Path)
					}
				}
				return nil
			},
			CSV: func() [][]string {
				rows := [][]string{{"direction", "path", "depth", "names", "confidence"}}
				for _, dep := range result.Imports {
					rows = append(rows, []string{"out", dep.Path, itoa(dep.Depth), strings.Join(dep.ImportedNames, " "), confidenceLabel(dep.Confidence)})
				}
				for _, dep := range result.ImportedBy {
					rows = append(rows, []string{"in", dep.Path, itoa(dep.Depth), strings.Join(dep.ImportedNames, " "), confidenceLabel(dep.Confidence)})
				}
				return rows
			},
		})
	},
}

func init() {
	depsCmd.Flags().BoolVar(&depsTransitive, "transitive", false, "Follow dependencies transitively")
	depsCmd.Flags().StringVar(&depsDirection, "direction", "both", "Direction: in, out, or both")
	depsCmd.Flags().StringSliceVar(&depsBetween, "between", nil, "Show edges between two glob patterns: --between <from-glob> <to-glob>")
	rootCmd.AddCommand(depsCmd)
}
