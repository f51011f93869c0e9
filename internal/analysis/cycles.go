package analysis

import (
	"context"
	"sort"

	staterr "statik/internal/errors"
	"statik/internal/graph"
	"statik/internal/model"
)

// Cycle is one circular dependency, canonicalized to the
// minimum-lexicographic rotation of its node sequence.
type Cycle struct {
	Files  []string `json:"files"`
	Length int      `json:"length"`
}

// CycleResult is the cycle detection output.
type CycleResult struct {
	Cycles     []Cycle      `json:"cycles"`
	Confidence Confidence   `json:"confidence"`
	Summary    CycleSummary `json:"summary"`
}

// CycleSummary aggregates the detection.
type CycleSummary struct {
	TotalFiles    int `json:"totalFiles"`
	FilesInCycles int `json:"filesInCycles"`
	CycleCount    int `json:"cycleCount"`
	ShortestCycle int `json:"shortestCycle"`
	LongestCycle  int `json:"longestCycle"`
}

// Cycles detects circular dependencies with Tarjan's SCC algorithm. Edges
// with is_mod_declaration are excluded: a parent module declaring a child
// is structure, not a dependency. SCCs of size >= 2 and self-loops are
// cycles, ordered by length ascending then lexicographically.
func Cycles(ctx context.Context, g *graph.FileGraph, runtimeOnly bool) (*CycleResult, error) {
	opts := graph.TraversalOptions{SkipModDecl: true, RuntimeOnly: runtimeOnly}
	sccs, err := tarjanSCC(ctx, g, opts)
	if err != nil {
		return nil, err
	}

	var cycles []Cycle
	filesInCycles := 0
	for _, scc := range sccs {
		if len(scc) == 1 && !hasSelfLoop(g, scc[0], opts) {
			continue
		}
		paths := make([]string, len(scc))
		for i, id := range scc {
			paths[i] = g.Path(id)
		}
		cycles = append(cycles, Cycle{Files: minRotation(paths), Length: len(paths)})
		filesInCycles += len(paths)
	}

	sort.Slice(cycles, func(i, j int) bool {
		if cycles[i].Length != cycles[j].Length {
			return cycles[i].Length < cycles[j].Length
		}
		return lessPathSeq(cycles[i].Files, cycles[j].Files)
	})

	shortest, longest := 0, 0
	if len(cycles) > 0 {
		shortest = cycles[0].Length
		longest = cycles[len(cycles)-1].Length
	}

	// The algorithm is exact on the edges we have; unresolved imports mean
	// there may be cycles we cannot see.
	confidence := ConfidenceCertain
	if len(g.Unresolved) > 0 {
		confidence = ConfidenceHigh
	}

	return &CycleResult{
		Cycles:     cycles,
		Confidence: confidence,
		Summary: CycleSummary{
			TotalFiles:    len(g.Files),
			FilesInCycles: filesInCycles,
			CycleCount:    len(cycles),
			ShortestCycle: shortest,
			LongestCycle:  longest,
		},
	}, nil
}

func hasSelfLoop(g *graph.FileGraph, id model.FileId, opts graph.TraversalOptions) bool {
	for _, e := range g.Out[id] {
		if opts.Include(e) && e.To == id {
			return true
		}
	}
	return false
}

// minRotation returns the rotation of the sequence starting at its
// lexicographically smallest element.
func minRotation(paths []string) []string {
	if len(paths) == 0 {
		return paths
	}
	best := 0
	for i := 1; i < len(paths); i++ {
		if paths[i] < paths[best] {
			best = i
		}
	}
	rotated := make([]string, 0, len(paths))
	rotated = append(rotated, paths[best:]...)
	rotated = append(rotated, paths[:best]...)
	return rotated
}

func lessPathSeq(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// tarjanSCC runs Tarjan's strongly-connected-components algorithm with an
// explicit stack (no recursion, large graphs are fine). The cancellation
// flag is checked per root expansion.
func tarjanSCC(ctx context.Context, g *graph.FileGraph, opts graph.TraversalOptions) ([][]model.FileId, error) {
	type frame struct {
		node      model.FileId
		neighbors []model.FileId
		next      int
	}

	index := make(map[model.FileId]int)
	lowlink := make(map[model.FileId]int)
	onStack := make(map[model.FileId]bool)
	var stack []model.FileId
	var result [][]model.FileId
	counter := 0

	for _, root := range g.AllFileIds() {
		if _, visited := index[root]; visited {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, staterr.New(staterr.Cancelled, "analysis cancelled", err)
		}

		var frames []frame
		push := func(v model.FileId) {
			index[v] = counter
			lowlink[v] = counter
			counter++
			stack = append(stack, v)
			onStack[v] = true
			frames = append(frames, frame{node: v, neighbors: g.Neighbors(v, true, opts)})
		}
		push(root)

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			if f.next < len(f.neighbors) {
				w := f.neighbors[f.next]
				f.next++
				if _, visited := index[w]; !visited {
					push(w)
				} else if onStack[w] && index[w] < lowlink[f.node] {
					lowlink[f.node] = index[w]
				}
				continue
			}

			// Frame exhausted: pop and propagate lowlink.
			v := f.node
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[v] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[v]
				}
			}
			if lowlink[v] == index[v] {
				var scc []model.FileId
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == v {
						break
					}
				}
				result = append(result, scc)
			}
		}
	}
	return result, nil
}
