package lint

import (
	"context"
	"sort"
	"strconv"

	"statik/internal/analysis"
	"statik/internal/config"
	"statik/internal/graph"
	"statik/internal/model"
)

// Summary counts the surviving violations by severity.
type Summary struct {
	TotalViolations int `json:"totalViolations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Infos           int `json:"infos"`
	RulesEvaluated  int `json:"rulesEvaluated"`
	Suppressed      int `json:"suppressed"`
}

// Result is the lint run output.
type Result struct {
	Violations []Violation         `json:"violations"`
	Summary    Summary             `json:"summary"`
	Confidence analysis.Confidence `json:"confidence"`
}

// HasErrors reports whether any error-severity violation survived; the
// command exits 1 in that case.
func (r *Result) HasErrors() bool {
	return r.Summary.Errors > 0
}

// Options configure one lint run.
type Options struct {
	// RuleFilter evaluates a single rule by id ("" = all).
	RuleFilter string
	// SeverityThreshold drops violations below the given severity.
	SeverityThreshold config.Severity
	// Baseline suppresses (rule, source, target) triples persisted earlier.
	Baseline *Baseline
	// Suppressions holds inline statik-ignore comments by file.
	Suppressions map[model.FileId][]model.Suppression
}

// Run evaluates all configured rules against the graph and applies the
// suppression stack: inline comments first, then source-set lint flags,
// then the baseline.
func Run(ctx context.Context, g *graph.FileGraph, cfg *config.Config, opts Options) (*Result, error) {
	inline := indexSuppressions(g, opts.Suppressions)

	var violations []Violation
	suppressed := 0
	rulesEvaluated := 0

	for i := range cfg.Rules {
		rule := &cfg.Rules[i]
		if opts.RuleFilter != "" && rule.Id != opts.RuleFilter {
			continue
		}
		rulesEvaluated++

		ev := &evaluator{g: g, cfg: cfg, rule: rule}
		found, err := ev.evaluate(ctx)
		if err != nil {
			return nil, err
		}

		for _, v := range found {
			if opts.SeverityThreshold != "" && v.Severity.Order() > opts.SeverityThreshold.Order() {
				continue
			}
			if isSuppressed(g, inline, opts.Baseline, v) {
				suppressed++
				continue
			}
			violations = append(violations, v)
		}
	}

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.Severity.Order() != b.Severity.Order() {
			return a.Severity.Order() < b.Severity.Order()
		}
		if a.RuleId != b.RuleId {
			return a.RuleId < b.RuleId
		}
		if a.SourceFile != b.SourceFile {
			return a.SourceFile < b.SourceFile
		}
		return a.Line < b.Line
	})

	result := &Result{Violations: violations}
	for _, v := range violations {
		switch v.Severity {
		case config.SeverityError:
			result.Summary.Errors++
		case config.SeverityWarning:
			result.Summary.Warnings++
		default:
			result.Summary.Infos++
		}
	}
	result.Summary.TotalViolations = len(violations)
	result.Summary.RulesEvaluated = rulesEvaluated
	result.Summary.Suppressed = suppressed

	// Overall confidence: minimum across violations, floored by the
	// graph-wide unresolved ratio.
	result.Confidence = analysis.GraphConfidence(g)
	for _, v := range violations {
		result.Confidence = result.Confidence.Min(v.Confidence)
	}
	return result, nil
}

// suppressionKey addresses inline suppressions by file path and line.
type suppressionKey struct {
	path string
	line int
}

func indexSuppressions(g *graph.FileGraph, byFile map[model.FileId][]model.Suppression) map[suppressionKey][]string {
	out := make(map[suppressionKey][]string)
	for fileId, sups := range byFile {
		p := g.Path(fileId)
		if p == "" {
			continue
		}
		for _, s := range sups {
			key := suppressionKey{path: p, line: s.Line}
			out[key] = append(out[key], s.RuleId)
		}
	}
	return out
}

// isSuppressed applies the suppression stack in order; each level skips the
// remainder.
func isSuppressed(g *graph.FileGraph, inline map[suppressionKey][]string, baseline *Baseline, v Violation) bool {
	// 1. Inline statik-ignore comment on the violation line.
	for _, ruleId := range inline[suppressionKey{path: v.SourceFile, line: v.Line}] {
		if ruleId == "" || ruleId == v.RuleId {
			return true
		}
	}

	// 2. Source set with lint=false.
	if id, ok := g.FileByPath(v.SourceFile); ok {
		if node := g.Files[id]; node != nil && !node.Lint {
			return true
		}
	}

	// 3. Baseline entry. The triple omits the line so unrelated edits do
	// not break suppression.
	if baseline != nil && baseline.Contains(v.RuleId, v.SourceFile, v.TargetFile) {
		return true
	}
	return false
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
