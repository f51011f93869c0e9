package analysis

import (
	"context"
	"sort"

	staterr "statik/internal/errors"
	"statik/internal/graph"
	"statik/internal/model"
)

// AffectedFile is one file in the blast radius with its distance from the
// change target.
type AffectedFile struct {
	Path       string     `json:"path"`
	Depth      int        `json:"depth"`
	Confidence Confidence `json:"confidence"`
}

// ImpactResult is the impact analysis output.
type ImpactResult struct {
	Target     string          `json:"target"`
	Affected   []AffectedFile  `json:"affected"`
	ByDepth    map[int][]string `json:"byDepth,omitempty"`
	Confidence Confidence      `json:"confidence"`
	Summary    ImpactSummary   `json:"summary"`
}

// ImpactSummary aggregates the analysis.
type ImpactSummary struct {
	DirectDependents int `json:"directDependents"`
	TotalAffected    int `json:"totalAffected"`
	MaxDepth         int `json:"maxDepth"`
}

// Impact computes the refactoring blast radius of a file: a reverse BFS on
// incoming edges, grouped by depth, optionally capped.
func Impact(ctx context.Context, g *graph.FileGraph, path string, maxDepth int, runtimeOnly bool) (*ImpactResult, error) {
	target, ok := g.FileByPath(path)
	if !ok {
		return nil, staterr.Newf(staterr.FileNotFoundInIndex, "file not in index: %s (run `statik index` first?)", path)
	}
	if maxDepth <= 0 {
		maxDepth = int(^uint(0) >> 1)
	}

	opts := graph.TraversalOptions{RuntimeOnly: runtimeOnly}
	visited := map[model.FileId]bool{target: true}
	frontier := []model.FileId{target}
	result := &ImpactResult{Target: path, ByDepth: make(map[int][]string)}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, staterr.New(staterr.Cancelled, "analysis cancelled", err)
		}
		var next []model.FileId
		for _, current := range frontier {
			for _, importer := range g.Neighbors(current, false, opts) {
				if visited[importer] {
					continue
				}
				visited[importer] = true
				next = append(next, importer)
				if !g.Files[importer].Analysis {
					continue
				}
				result.Affected = append(result.Affected, AffectedFile{
					Path:       g.Path(importer),
					Depth:      depth,
					Confidence: FileConfidence(g, importer),
				})
				result.ByDepth[depth] = append(result.ByDepth[depth], g.Path(importer))
			}
		}
		frontier = next
	}

	sort.Slice(result.Affected, func(i, j int) bool {
		if result.Affected[i].Depth != result.Affected[j].Depth {
			return result.Affected[i].Depth < result.Affected[j].Depth
		}
		return result.Affected[i].Path < result.Affected[j].Path
	})
	maxReached := 0
	for depth, paths := range result.ByDepth {
		sort.Strings(paths)
		if depth > maxReached {
			maxReached = depth
		}
	}

	// Unresolved imports may hide additional dependents.
	result.Confidence = ConfidenceCertain
	if len(g.Unresolved) > 0 {
		result.Confidence = ConfidenceHigh
	}
	result.Summary = ImpactSummary{
		DirectDependents: len(g.Neighbors(target, false, opts)),
		TotalAffected:    len(result.Affected),
		MaxDepth:         maxReached,
	}
	return result, nil
}
