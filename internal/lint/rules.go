package lint

import (
	"context"
	"path"
	"sort"

	"statik/internal/analysis"
	"statik/internal/config"
	staterr "statik/internal/errors"
	"statik/internal/graph"
	"statik/internal/model"
)

// Violation is one rule breach surviving evaluation.
type Violation struct {
	RuleId        string              `json:"ruleId"`
	Severity      config.Severity     `json:"severity"`
	Description   string              `json:"description"`
	Rationale     string              `json:"rationale,omitempty"`
	FixDirection  string              `json:"fixDirection,omitempty"`
	SourceFile    string              `json:"sourceFile"`
	TargetFile    string              `json:"targetFile"`
	ImportedNames []string            `json:"importedNames,omitempty"`
	Line          int                 `json:"line"`
	Confidence    analysis.Confidence `json:"confidence"`
}

// evaluator walks the graph for one rule definition.
type evaluator struct {
	g    *graph.FileGraph
	cfg  *config.Config
	rule *config.RuleDefinition
}

func (e *evaluator) violation(source, target string, names []string, line int, conf analysis.Confidence, detail string) Violation {
	description := e.rule.Description
	if detail != "" {
		description += " (" + detail + ")"
	}
	return Violation{
		RuleId:        e.rule.Id,
		Severity:      e.rule.Severity,
		Description:   description,
		Rationale:     e.rule.Rationale,
		FixDirection:  e.rule.FixDirection,
		SourceFile:    source,
		TargetFile:    target,
		ImportedNames: names,
		Line:          line,
		Confidence:    conf,
	}
}

// fileFindingConfidence scores a violation anchored to a single file.
func (e *evaluator) fileFindingConfidence(id model.FileId) analysis.Confidence {
	conf := analysis.ConfidenceCertain
	if e.g.UnresolvedCount(id) > 0 {
		conf = conf.Lower(2)
	}
	return conf
}

// eachEdge visits every resolved edge with source/target paths.
func (e *evaluator) eachEdge(fn func(edge graph.Edge, source, target string)) {
	for _, id := range e.g.AllFileIds() {
		source := e.g.Path(id)
		for _, edge := range e.g.Out[id] {
			fn(edge, source, e.g.Path(edge.To))
		}
	}
}

func edgeNameList(edge graph.Edge) []string {
	names, wildcard := edge.NamedImports()
	if wildcard {
		names = append(names, model.WildcardName)
	}
	sort.Strings(names)
	return names
}

// evaluate dispatches on the rule's kind tag. The switch is exhaustive over
// the rule-type tables config validation admits.
func (e *evaluator) evaluate(ctx context.Context) ([]Violation, error) {
	rule := e.rule
	switch {
	case rule.Boundary != nil:
		return e.evalBoundary(rule.Boundary), nil
	case rule.Layer != nil:
		return e.evalLayer(rule.Layer), nil
	case rule.Containment != nil:
		return e.evalContainment(rule.Containment), nil
	case rule.ImportRestriction != nil:
		return e.evalImportRestriction(rule.ImportRestriction), nil
	case rule.FanLimit != nil:
		return e.evalFanLimit(rule.FanLimit), nil
	case rule.TagBoundary != nil:
		return e.evalTagBoundary(rule.TagBoundary), nil
	case rule.CyclePolicy != nil:
		return e.evalCyclePolicy(ctx, rule.CyclePolicy)
	case rule.Stability != nil:
		return e.evalStability(rule.Stability), nil
	case rule.NamingBoundary != nil:
		return e.evalNamingBoundary(rule.NamingBoundary)
	case rule.RestrictedConsumer != nil:
		return e.evalRestrictedConsumer(rule.RestrictedConsumer), nil
	case rule.ExportLimit != nil:
		return e.evalExportLimit(rule.ExportLimit), nil
	case rule.CouplingWeight != nil:
		return e.evalCouplingWeight(rule.CouplingWeight), nil
	case rule.Cohesion != nil:
		return e.evalCohesion(rule.Cohesion), nil
	}
	return nil, staterr.Newf(staterr.ConfigInvalid, "rule %q has no evaluator", rule.Id)
}

func (e *evaluator) evalBoundary(cfg *config.BoundaryRule) []Violation {
	from := NewMatcher(cfg.From)
	deny := NewMatcher(cfg.Deny)
	except := NewMatcher(cfg.Except)

	var out []Violation
	e.eachEdge(func(edge graph.Edge, source, target string) {
		if !from.Match(source) || !deny.Match(target) || except.Match(target) {
			return
		}
		out = append(out, e.violation(source, target, edgeNameList(edge), edge.Line,
			analysis.EdgeConfidence(e.g, edge), ""))
	})
	return out
}

func (e *evaluator) evalLayer(cfg *config.LayerRule) []Violation {
	matchers := make([]*Matcher, len(cfg.Layers))
	for i, layer := range cfg.Layers {
		matchers[i] = NewMatcher(layer.Patterns)
	}
	// First-match layer assignment.
	layerOf := func(p string) int {
		for i, m := range matchers {
			if m.Match(p) {
				return i
			}
		}
		return -1
	}

	var out []Violation
	e.eachEdge(func(edge graph.Edge, source, target string) {
		sourceLayer := layerOf(source)
		if sourceLayer < 0 {
			return
		}
		targetLayer := layerOf(target)
		if targetLayer < 0 {
			return
		}
		// Layers are ordered top-down; a lower layer importing a strictly
		// higher one violates the hierarchy.
		if sourceLayer > targetLayer {
			detail := "layer '" + cfg.Layers[sourceLayer].Name + "' must not import from layer '" + cfg.Layers[targetLayer].Name + "'"
			out = append(out, e.violation(source, target, edgeNameList(edge), edge.Line,
				analysis.EdgeConfidence(e.g, edge), detail))
		}
	})
	return out
}

func (e *evaluator) evalContainment(cfg *config.ContainmentRule) []Violation {
	module := NewMatcher(cfg.Module)
	publicAPI := NewMatcher(cfg.PublicAPI)

	var out []Violation
	e.eachEdge(func(edge graph.Edge, source, target string) {
		if module.Match(source) || !module.Match(target) || publicAPI.Match(target) {
			return
		}
		out = append(out, e.violation(source, target, edgeNameList(edge), edge.Line,
			analysis.EdgeConfidence(e.g, edge), ""))
	})
	return out
}

func (e *evaluator) evalImportRestriction(cfg *config.ImportRestrictionRule) []Violation {
	target := NewMatcher(cfg.Target)
	forbidden := make(map[string]bool, len(cfg.ForbiddenNames))
	for _, n := range cfg.ForbiddenNames {
		forbidden[n] = true
	}
	allowed := make(map[string]bool, len(cfg.AllowedNames))
	for _, n := range cfg.AllowedNames {
		allowed[n] = true
	}

	var out []Violation
	e.eachEdge(func(edge graph.Edge, source, targetPath string) {
		if !target.Match(targetPath) {
			return
		}
		conf := analysis.EdgeConfidence(e.g, edge)

		if cfg.RequireTypeOnly && !edge.TypeOnly {
			out = append(out, e.violation(source, targetPath, edgeNameList(edge), edge.Line,
				conf, "import must be type-only"))
			return
		}

		names, _ := edge.NamedImports()
		if len(cfg.ForbiddenNames) > 0 {
			var hit []string
			for _, n := range names {
				if forbidden[n] {
					hit = append(hit, n)
				}
			}
			if len(hit) > 0 {
				sort.Strings(hit)
				out = append(out, e.violation(source, targetPath, hit, edge.Line,
					conf, "forbidden imports: "+joinNames(hit)))
			}
		}
		if len(cfg.AllowedNames) > 0 {
			var hit []string
			for _, n := range names {
				if !allowed[n] {
					hit = append(hit, n)
				}
			}
			if len(hit) > 0 {
				sort.Strings(hit)
				out = append(out, e.violation(source, targetPath, hit, edge.Line,
					conf, "imports not in allowlist: "+joinNames(hit)))
			}
		}
	})
	return out
}

func (e *evaluator) evalFanLimit(cfg *config.FanLimitRule) []Violation {
	pattern := NewMatcher(cfg.Pattern)
	var out []Violation
	for _, id := range e.g.AllFileIds() {
		p := e.g.Path(id)
		if !pattern.Match(p) {
			continue
		}
		conf := e.fileFindingConfidence(id)
		if cfg.MaxFanOut != nil {
			fanOut := len(e.g.Neighbors(id, true, graph.TraversalOptions{}))
			if fanOut > *cfg.MaxFanOut {
				out = append(out, e.violation(p, p, nil, 0, conf,
					"fan-out "+itoa(fanOut)+" exceeds limit "+itoa(*cfg.MaxFanOut)))
			}
		}
		if cfg.MaxFanIn != nil {
			fanIn := len(e.g.Neighbors(id, false, graph.TraversalOptions{}))
			if fanIn > *cfg.MaxFanIn {
				out = append(out, e.violation(p, p, nil, 0, conf,
					"fan-in "+itoa(fanIn)+" exceeds limit "+itoa(*cfg.MaxFanIn)))
			}
		}
	}
	return out
}

func (e *evaluator) evalTagBoundary(cfg *config.TagBoundaryRule) []Violation {
	tagMatchers := make(map[string]*Matcher, len(e.cfg.Tags))
	for tag, patterns := range e.cfg.Tags {
		tagMatchers[tag] = NewMatcher(patterns)
	}
	tagsOf := func(p string) map[string]bool {
		tags := map[string]bool{}
		for tag, m := range tagMatchers {
			if m.Match(p) {
				tags[tag] = true
			}
		}
		return tags
	}
	intersects := func(tags map[string]bool, list []string) bool {
		for _, t := range list {
			if tags[t] {
				return true
			}
		}
		return false
	}

	var out []Violation
	e.eachEdge(func(edge graph.Edge, source, target string) {
		if !intersects(tagsOf(source), cfg.FromTag) {
			return
		}
		targetTags := tagsOf(target)
		if !intersects(targetTags, cfg.DenyTags) || intersects(targetTags, cfg.ExceptTags) {
			return
		}
		out = append(out, e.violation(source, target, edgeNameList(edge), edge.Line,
			analysis.EdgeConfidence(e.g, edge), ""))
	})
	return out
}

func (e *evaluator) evalCyclePolicy(ctx context.Context, cfg *config.CyclePolicyRule) ([]Violation, error) {
	result, err := analysis.Cycles(ctx, e.g, false)
	if err != nil {
		return nil, err
	}
	var out []Violation
	for _, cycle := range result.Cycles {
		if cycle.Length <= cfg.MaxCycleLength {
			continue
		}
		// Anchor the violation to the cycle's first edge so the baseline
		// identity stays stable across unrelated edits.
		source := cycle.Files[0]
		target := source
		if len(cycle.Files) > 1 {
			target = cycle.Files[1]
		}
		out = append(out, e.violation(source, target, nil, 0,
			result.Confidence, "cycle of length "+itoa(cycle.Length)+" exceeds limit "+itoa(cfg.MaxCycleLength)))
	}
	return out, nil
}

func (e *evaluator) evalStability(cfg *config.StabilityRule) []Violation {
	pattern := NewMatcher(cfg.Pattern)
	var out []Violation
	for _, id := range e.g.AllFileIds() {
		p := e.g.Path(id)
		if !pattern.Match(p) {
			continue
		}
		fanOut := len(e.g.Neighbors(id, true, graph.TraversalOptions{}))
		fanIn := len(e.g.Neighbors(id, false, graph.TraversalOptions{}))
		if fanIn+fanOut == 0 {
			continue
		}
		instability := float64(fanOut) / float64(fanIn+fanOut)
		if instability > cfg.MaxInstability {
			out = append(out, e.violation(p, p, nil, 0, e.fileFindingConfidence(id),
				"instability "+ftoa(instability)+" exceeds limit "+ftoa(cfg.MaxInstability)))
		}
	}
	return out
}

func (e *evaluator) evalNamingBoundary(cfg *config.NamingBoundaryRule) ([]Violation, error) {
	re, err := compileRegex(cfg.MustMatch)
	if err != nil {
		return nil, staterr.Newf(staterr.ConfigInvalid, "rule %q has invalid must_match regex: %v", e.rule.Id, err)
	}
	pattern := NewMatcher(cfg.Pattern)
	var out []Violation
	for _, id := range e.g.AllFileIds() {
		p := e.g.Path(id)
		if !pattern.Match(p) || re.MatchString(p) {
			continue
		}
		out = append(out, e.violation(p, p, nil, 0, analysis.ConfidenceCertain,
			"path does not match "+cfg.MustMatch))
	}
	return out, nil
}

func (e *evaluator) evalRestrictedConsumer(cfg *config.RestrictedConsumerRule) []Violation {
	target := NewMatcher(cfg.Target)
	allowed := NewMatcher(cfg.AllowedConsumers)

	var out []Violation
	e.eachEdge(func(edge graph.Edge, source, targetPath string) {
		if !target.Match(targetPath) || allowed.Match(source) || target.Match(source) {
			return
		}
		out = append(out, e.violation(source, targetPath, edgeNameList(edge), edge.Line,
			analysis.EdgeConfidence(e.g, edge), ""))
	})
	return out
}

func (e *evaluator) evalExportLimit(cfg *config.ExportLimitRule) []Violation {
	pattern := NewMatcher(cfg.Pattern)
	var out []Violation
	for _, id := range e.g.AllFileIds() {
		p := e.g.Path(id)
		if !pattern.Match(p) {
			continue
		}
		count := len(e.g.Files[id].Exports)
		if count > cfg.MaxExports {
			out = append(out, e.violation(p, p, nil, 0, e.fileFindingConfidence(id),
				itoa(count)+" exports exceed limit "+itoa(cfg.MaxExports)))
		}
	}
	return out
}

func (e *evaluator) evalCouplingWeight(cfg *config.CouplingWeightRule) []Violation {
	var out []Violation
	e.eachEdge(func(edge graph.Edge, source, target string) {
		names, _ := edge.NamedImports()
		distinct := map[string]bool{}
		for _, n := range names {
			distinct[n] = true
		}
		if len(distinct) > cfg.MaxNames {
			out = append(out, e.violation(source, target, edgeNameList(edge), edge.Line,
				analysis.EdgeConfidence(e.g, edge),
				itoa(len(distinct))+" imported names exceed limit "+itoa(cfg.MaxNames)))
		}
	})
	return out
}

func (e *evaluator) evalCohesion(cfg *config.CohesionRule) []Violation {
	pattern := NewMatcher(cfg.Pattern)

	type dirStats struct {
		external, total int
		worstConf       analysis.Confidence
	}
	dirs := map[string]*dirStats{}
	for _, id := range e.g.AllFileIds() {
		p := e.g.Path(id)
		if !pattern.Match(p) {
			continue
		}
		dir := path.Dir(p)
		stats := dirs[dir]
		if stats == nil {
			stats = &dirStats{worstConf: analysis.ConfidenceCertain}
			dirs[dir] = stats
		}
		for _, edge := range e.g.Out[id] {
			stats.total++
			if path.Dir(e.g.Path(edge.To)) != dir {
				stats.external++
			}
			stats.worstConf = stats.worstConf.Min(analysis.EdgeConfidence(e.g, edge))
		}
	}

	dirNames := make([]string, 0, len(dirs))
	for dir := range dirs {
		dirNames = append(dirNames, dir)
	}
	sort.Strings(dirNames)

	var out []Violation
	for _, dir := range dirNames {
		stats := dirs[dir]
		if stats.total == 0 {
			continue
		}
		ratio := float64(stats.external) / float64(stats.total)
		if ratio > cfg.MaxExternalRatio {
			out = append(out, e.violation(dir, dir, nil, 0, stats.worstConf,
				"external dependency ratio "+ftoa(ratio)+" exceeds limit "+ftoa(cfg.MaxExternalRatio)))
		}
	}
	return out
}
