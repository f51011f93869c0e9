package analysis

import (
	"context"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	staterr "statik/internal/errors"
	"statik/internal/graph"
	"statik/internal/model"
)

// Direction selects which adjacency to walk.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// ParseDirection validates a --direction flag value.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "out", "in", "both":
		return Direction(s), nil
	default:
		return "", staterr.Newf(staterr.ConfigInvalid, "invalid direction %q (expected in, out, or both)", s)
	}
}

// DepNode is one reached file with its BFS depth.
type DepNode struct {
	Path          string     `json:"path"`
	Depth         int        `json:"depth"`
	ImportedNames []string   `json:"importedNames,omitempty"`
	Line          int        `json:"line,omitempty"`
	Confidence    Confidence `json:"confidence"`
}

// DepsResult is the dependency walk output.
type DepsResult struct {
	Target     string      `json:"target"`
	Imports    []DepNode   `json:"imports,omitempty"`
	ImportedBy []DepNode   `json:"importedBy,omitempty"`
	Confidence Confidence  `json:"confidence"`
	Summary    DepsSummary `json:"summary"`
}

// DepsSummary aggregates the walk.
type DepsSummary struct {
	DirectImports       int `json:"directImports"`
	TransitiveImports   int `json:"transitiveImports"`
	DirectImporters     int `json:"directImporters"`
	TransitiveImporters int `json:"transitiveImporters"`
}

// DepsOptions configure the walk.
type DepsOptions struct {
	Direction  Direction
	Transitive bool
	MaxDepth   int // 0 = unlimited
	// RuntimeOnly drops type-only edges; mod-declaration edges are always
	// included.
	RuntimeOnly bool
}

// Deps walks the dependency chain of a file.
func Deps(ctx context.Context, g *graph.FileGraph, path string, opts DepsOptions) (*DepsResult, error) {
	target, ok := g.FileByPath(path)
	if !ok {
		return nil, staterr.Newf(staterr.FileNotFoundInIndex, "file not in index: %s (run `statik index` first?)", path)
	}

	travOpts := graph.TraversalOptions{RuntimeOnly: opts.RuntimeOnly}
	result := &DepsResult{Target: path}

	if opts.Direction == DirectionOut || opts.Direction == DirectionBoth {
		nodes, err := walk(ctx, g, target, true, opts, travOpts)
		if err != nil {
			return nil, err
		}
		result.Imports = nodes
	}
	if opts.Direction == DirectionIn || opts.Direction == DirectionBoth {
		nodes, err := walk(ctx, g, target, false, opts, travOpts)
		if err != nil {
			return nil, err
		}
		result.ImportedBy = nodes
	}

	result.Confidence = GraphConfidence(g).Min(FileConfidence(g, target))
	result.Summary = DepsSummary{
		DirectImports:       len(g.Neighbors(target, true, travOpts)),
		TransitiveImports:   len(result.Imports),
		DirectImporters:     len(g.Neighbors(target, false, travOpts)),
		TransitiveImporters: len(result.ImportedBy),
	}
	return result, nil
}

// walk BFSes from start, grouping reached nodes by depth with deterministic
// (path, line) order. The cancellation flag is checked at each frontier.
func walk(ctx context.Context, g *graph.FileGraph, start model.FileId, forward bool, opts DepsOptions, travOpts graph.TraversalOptions) ([]DepNode, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = int(^uint(0) >> 1)
	}
	if !opts.Transitive {
		maxDepth = 1
	}

	visited := map[model.FileId]bool{start: true}
	frontier := []model.FileId{start}
	var result []DepNode

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, staterr.New(staterr.Cancelled, "analysis cancelled", err)
		}

		var next []model.FileId
		for _, current := range frontier {
			for _, neighbor := range g.Neighbors(current, forward, travOpts) {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				next = append(next, neighbor)
				result = append(result, DepNode{
					Path:          g.Path(neighbor),
					Depth:         depth,
					ImportedNames: edgeNames(g, current, neighbor, forward, travOpts),
					Line:          edgeLine(g, current, neighbor, forward, travOpts),
					Confidence:    FileConfidence(g, neighbor),
				})
			}
		}
		frontier = next
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Depth != result[j].Depth {
			return result[i].Depth < result[j].Depth
		}
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Line < result[j].Line
	})
	return result, nil
}

func edgesBetween(g *graph.FileGraph, from, to model.FileId, forward bool, opts graph.TraversalOptions) []graph.Edge {
	edges := g.Out[from]
	if !forward {
		edges = g.In[from]
	}
	var out []graph.Edge
	for _, e := range edges {
		if !opts.Include(e) {
			continue
		}
		neighbor := e.To
		if !forward {
			neighbor = e.From
		}
		if neighbor == to {
			out = append(out, e)
		}
	}
	return out
}

func edgeNames(g *graph.FileGraph, from, to model.FileId, forward bool, opts graph.TraversalOptions) []string {
	seen := map[string]bool{}
	var names []string
	for _, e := range edgesBetween(g, from, to, forward, opts) {
		plain, wildcard := e.NamedImports()
		for _, n := range plain {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
		if wildcard && !seen[model.WildcardName] {
			seen[model.WildcardName] = true
			names = append(names, model.WildcardName)
		}
	}
	sort.Strings(names)
	return names
}

func edgeLine(g *graph.FileGraph, from, to model.FileId, forward bool, opts graph.TraversalOptions) int {
	line := 0
	for _, e := range edgesBetween(g, from, to, forward, opts) {
		if line == 0 || e.Line < line {
			line = e.Line
		}
	}
	return line
}

// BetweenEdge is one edge in a --between listing.
type BetweenEdge struct {
	From       string     `json:"from"`
	To         string     `json:"to"`
	Names      []string   `json:"names,omitempty"`
	Line       int        `json:"line"`
	TypeOnly   bool       `json:"typeOnly,omitempty"`
	Confidence Confidence `json:"confidence"`
}

// BetweenResult lists edges from one glob set into another.
type BetweenResult struct {
	FromGlob   string        `json:"fromGlob"`
	ToGlob     string        `json:"toGlob"`
	Edges      []BetweenEdge `json:"edges"`
	Confidence Confidence    `json:"confidence"`
}

// Between lists all edges whose source matches fromGlob and target matches
// toGlob.
func Between(ctx context.Context, g *graph.FileGraph, fromGlob, toGlob string, opts DepsOptions) (*BetweenResult, error) {
	travOpts := graph.TraversalOptions{RuntimeOnly: opts.RuntimeOnly}
	result := &BetweenResult{FromGlob: fromGlob, ToGlob: toGlob, Confidence: GraphConfidence(g)}

	for _, id := range g.AllFileIds() {
		if err := ctx.Err(); err != nil {
			return nil, staterr.New(staterr.Cancelled, "analysis cancelled", err)
		}
		fromPath := g.Path(id)
		if ok, err := doublestar.Match(fromGlob, fromPath); err != nil || !ok {
			continue
		}
		for _, e := range g.Out[id] {
			if !travOpts.Include(e) {
				continue
			}
			toPath := g.Path(e.To)
			if ok, err := doublestar.Match(toGlob, toPath); err != nil || !ok {
				continue
			}
			names, wildcard := e.NamedImports()
			if wildcard {
				names = append(names, model.WildcardName)
			}
			sort.Strings(names)
			result.Edges = append(result.Edges, BetweenEdge{
				From: fromPath, To: toPath, Names: names, Line: e.Line,
				TypeOnly: e.TypeOnly, Confidence: EdgeConfidence(g, e),
			})
		}
	}

	sort.Slice(result.Edges, func(i, j int) bool {
		a, b := result.Edges[i], result.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Line < b.Line
	})
	return result, nil
}
