package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"statik/internal/config"
	staterr "statik/internal/errors"
	"statik/internal/lint"
	"statik/internal/output"
)

var (
	lintConfig            string
	lintRule              string
	lintSeverityThreshold string
	lintFreeze            bool
	lintUpdateBaseline    bool
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check architectural boundary rules",
	Long: `Evaluate the [[rules]] in .statik/rules.toml (or statik.toml) against
the dependency graph.

Exit code is 1 when any error-severity violation survives suppression.

Examples:
  statik lint
  statik lint --rule no-ui-to-db
  statik lint --severity-threshold warning
  statik lint --freeze`,
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold := config.Severity(lintSeverityThreshold)
		switch threshold {
		case config.SeverityError, config.SeverityWarning, config.SeverityInfo:
		default:
			return staterr.Newf(staterr.ConfigInvalid, "invalid severity threshold %q", lintSeverityThreshold)
		}

		e, err := newEngine(cmd.Context(), lintConfig)
		if err != nil {
			return err
		}
		defer e.Close()

		g, err := e.buildGraph()
		if err != nil {
			return err
		}
		suppressions, err := e.DB.AllSuppressions()
		if err != nil {
			return staterr.New(staterr.PersistenceIO, "failed to load suppressions", err)
		}

		freeze := lintFreeze || lintUpdateBaseline
		var baseline *lint.Baseline
		if !freeze {
			baseline, err = lint.LoadBaseline(e.Root)
			if err != nil {
				return err
			}
		}

		result, err := lint.Run(cmd.Context(), g, e.Config, lint.Options{
			RuleFilter:        lintRule,
			SeverityThreshold: threshold,
			Baseline:          baseline,
			Suppressions:      suppressions,
		})
		if err != nil {
			return err
		}

		if freeze {
			frozen := lint.NewBaseline(result.Violations)
			if err := frozen.Save(e.Root); err != nil {
				return err
			}
			e.Logger.Info("Lint baseline written", map[string]interface{}{
				"entries": len(frozen.Entries),
			})
		}

		if err := e.emit(lintDoc(result)); err != nil {
			return err
		}
		if !freeze && result.HasErrors() {
			e.Close()
			os.Exit(1)
		}
		return nil
	},
}

func lintDoc(result *lint.Result) output.Doc {
	return output.Doc{
		Value: result,
		Text: func(w io.Writer) error {
			for _, v := range result.Violations {
				location := v.SourceFile
				if v.Line > 0 {
					location += ":" + itoa(v.Line)
				}
				output.Line(w, "%-7s %s  %s -> %s  %s (%s confidence)",
					v.Severity, v.RuleId, location, v.TargetFile, v.Description, confidenceLabel(v.Confidence))
				if v.FixDirection != "" {
					output.Line(w, "        fix: %s", v.FixDirection)
				}
			}
			output.Line(w, "%d errors, %d warnings, %d infos (%d rules evaluated, %d suppressed)",
				result.Summary.Errors, result.Summary.Warnings, result.Summary.Infos,
				result.Summary.RulesEvaluated, result.Summary.Suppressed)
			return nil
		},
		CSV: func() [][]string {
			rows := [][]string{{"severity", "rule", "source", "target", "line", "confidence"}}
			for _, v := range result.Violations {
				rows = append(rows, []string{string(v.Severity), v.RuleId, v.SourceFile, v.TargetFile, itoa(v.Line), confidenceLabel(v.Confidence)})
			}
			return rows
		},
	}
}

func init() {
	lintCmd.Flags().StringVar(&lintConfig, "config", "", "Path to config file (default: .statik/rules.toml or statik.toml)")
	lintCmd.Flags().StringVar(&lintRule, "rule", "", "Only evaluate a specific rule by ID")
	lintCmd.Flags().StringVar(&lintSeverityThreshold, "severity-threshold", "info", "Minimum severity to report (error, warning, info)")
	lintCmd.Flags().BoolVar(&lintFreeze, "freeze", false, "Save current violations as the baseline")
	lintCmd.Flags().BoolVar(&lintUpdateBaseline, "update-baseline", false, "Refresh the baseline with current violations")
	rootCmd.AddCommand(lintCmd)
}
