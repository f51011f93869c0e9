package analysis

import (
	"context"
	"sort"

	staterr "statik/internal/errors"
	"statik/internal/graph"
	"statik/internal/model"
	"statik/internal/storage"
)

// DeadCodeScope selects what the analysis reports.
type DeadCodeScope string

const (
	ScopeFiles   DeadCodeScope = "files"
	ScopeExports DeadCodeScope = "exports"
	ScopeSymbols DeadCodeScope = "symbols"
	ScopeAll     DeadCodeScope = "all"
)

// ParseDeadCodeScope validates a --scope flag value.
func ParseDeadCodeScope(s string) (DeadCodeScope, error) {
	switch s {
	case "files", "exports", "symbols", "all":
		return DeadCodeScope(s), nil
	default:
		return "", staterr.Newf(staterr.ConfigInvalid, "invalid scope %q (expected files, exports, symbols, or all)", s)
	}
}

func (s DeadCodeScope) has(scope DeadCodeScope) bool {
	return s == ScopeAll || s == scope
}

// DeadFile is a file unreachable from any entry point.
type DeadFile struct {
	Path       string     `json:"path"`
	Confidence Confidence `json:"confidence"`
}

// DeadExport is an exported name never imported anywhere.
type DeadExport struct {
	Path       string     `json:"path"`
	Name       string     `json:"name"`
	Line       int        `json:"line"`
	Confidence Confidence `json:"confidence"`
}

// DeadSymbol is a non-exported symbol with no incoming references.
type DeadSymbol struct {
	Path          string           `json:"path"`
	Name          string           `json:"name"`
	QualifiedName string           `json:"qualifiedName"`
	Kind          model.SymbolKind `json:"kind"`
	Line          int              `json:"line"`
	Confidence    Confidence       `json:"confidence"`
}

// DeadCodeResult is the dead-code analysis output.
type DeadCodeResult struct {
	DeadFiles   []DeadFile      `json:"deadFiles,omitempty"`
	DeadExports []DeadExport    `json:"deadExports,omitempty"`
	DeadSymbols []DeadSymbol    `json:"deadSymbols,omitempty"`
	Confidence  Confidence      `json:"confidence"`
	Limitations []Limitation    `json:"limitations,omitempty"`
	Summary     DeadCodeSummary `json:"summary"`
}

// DeadCodeSummary aggregates the analysis.
type DeadCodeSummary struct {
	TotalFiles   int `json:"totalFiles"`
	DeadFiles    int `json:"deadFiles"`
	TotalExports int `json:"totalExports"`
	DeadExports  int `json:"deadExports"`
	DeadSymbols  int `json:"deadSymbols,omitempty"`
	EntryPoints  int `json:"entryPoints"`
}

// DeadCode finds unreachable files, unused exports, and unreferenced
// symbols. Precision over recall: entry-point exports are never reported,
// and namespace imports or wildcard exports conservatively keep the whole
// target file alive.
func DeadCode(ctx context.Context, g *graph.FileGraph, db *storage.DB, scope DeadCodeScope) (*DeadCodeResult, error) {
	result := &DeadCodeResult{
		Confidence:  GraphConfidence(g),
		Limitations: Limitations(g),
	}

	entryPoints := g.EntryPoints()
	entrySet := make(map[model.FileId]bool, len(entryPoints))
	for _, id := range entryPoints {
		entrySet[id] = true
	}

	// Mod-declaration edges participate in reachability: a parent module
	// declaring a child keeps the child alive.
	reachable, err := bfsReachable(ctx, g, entryPoints)
	if err != nil {
		return nil, err
	}

	if scope.has(ScopeFiles) {
		for _, id := range g.AllFileIds() {
			node := g.Files[id]
			if entrySet[id] || reachable[id] || !node.Analysis {
				continue
			}
			result.DeadFiles = append(result.DeadFiles, DeadFile{
				Path:       node.Record.Path,
				Confidence: FileConfidence(g, id),
			})
		}
		sort.Slice(result.DeadFiles, func(i, j int) bool {
			return result.DeadFiles[i].Path < result.DeadFiles[j].Path
		})
	}

	var liveNames map[model.FileId]map[string]bool
	var allLive map[model.FileId]bool
	if scope.has(ScopeExports) || scope.has(ScopeSymbols) {
		liveNames, allLive = liveExports(g, entrySet)
	}

	if scope.has(ScopeExports) {
		exportConfidence := ConfidenceCertain
		if len(g.Unresolved) > 0 {
			exportConfidence = ConfidenceHigh
		}
		for _, id := range g.AllFileIds() {
			node := g.Files[id]
			if entrySet[id] || allLive[id] || !node.Analysis {
				continue
			}
			for _, exp := range node.Exports {
				// Re-exports are pass-throughs, not dead declarations.
				if exp.Reexport {
					continue
				}
				if liveNames[id][exp.Name] {
					continue
				}
				result.DeadExports = append(result.DeadExports, DeadExport{
					Path: node.Record.Path, Name: exp.Name, Line: exp.Line,
					Confidence: exportConfidence,
				})
			}
		}
		sort.Slice(result.DeadExports, func(i, j int) bool {
			a, b := result.DeadExports[i], result.DeadExports[j]
			if a.Path != b.Path {
				return a.Path < b.Path
			}
			return a.Name < b.Name
		})
	}

	if scope.has(ScopeSymbols) {
		symbols, err := deadSymbols(ctx, g, db)
		if err != nil {
			return nil, err
		}
		result.DeadSymbols = symbols
	}

	totalExports := 0
	for _, node := range g.Files {
		totalExports += len(node.Exports)
	}
	result.Summary = DeadCodeSummary{
		TotalFiles:   len(g.Files),
		DeadFiles:    len(result.DeadFiles),
		TotalExports: totalExports,
		DeadExports:  len(result.DeadExports),
		DeadSymbols:  len(result.DeadSymbols),
		EntryPoints:  len(entryPoints),
	}
	return result, nil
}

// liveExports computes (file, name) liveness via fixed-point expansion of
// re-export chains. allLive marks files whose every export is live
// (namespace imports, wildcard importers, entry points).
func liveExports(g *graph.FileGraph, entrySet map[model.FileId]bool) (map[model.FileId]map[string]bool, map[model.FileId]bool) {
	liveNames := make(map[model.FileId]map[string]bool)
	allLive := make(map[model.FileId]bool)

	markName := func(id model.FileId, name string) bool {
		if liveNames[id] == nil {
			liveNames[id] = make(map[string]bool)
		}
		if liveNames[id][name] {
			return false
		}
		liveNames[id][name] = true
		return true
	}

	// Seed from direct imports. Namespace/wildcard bindings mark the whole
	// target live (documented recall loss; zero false positives).
	for _, edges := range g.Out {
		for _, e := range edges {
			names, hasWildcard := e.NamedImports()
			for _, n := range names {
				markName(e.To, n)
			}
			if hasWildcard {
				allLive[e.To] = true
			}
		}
	}
	for id := range entrySet {
		allLive[id] = true
	}

	// Re-export chains: barrel -> target edges matched by declaration line.
	type reexportEdge struct {
		barrel, target model.FileId
		name           string // WildcardName for `export *` / `pub use ...::*`
	}
	var chains []reexportEdge
	for id, node := range g.Files {
		for _, exp := range node.Exports {
			if !exp.Reexport {
				continue
			}
			for _, e := range g.Out[id] {
				if e.Line == exp.Line {
					chains = append(chains, reexportEdge{barrel: id, target: e.To, name: exp.Name})
				}
			}
		}
	}

	// Fixed point: repeat until no new live exports arise.
	for changed := true; changed; {
		changed = false
		for _, chain := range chains {
			if chain.name == model.WildcardName {
				if allLive[chain.barrel] && !allLive[chain.target] {
					allLive[chain.target] = true
					changed = true
				}
				for name := range liveNames[chain.barrel] {
					if markName(chain.target, name) {
						changed = true
					}
				}
			} else if allLive[chain.barrel] || liveNames[chain.barrel][chain.name] {
				if markName(chain.target, chain.name) {
					changed = true
				}
			}
		}
	}
	return liveNames, allLive
}

// deadSymbols reports non-exported symbols with no incoming references
// beyond their own declaration.
func deadSymbols(ctx context.Context, g *graph.FileGraph, db *storage.DB) ([]DeadSymbol, error) {
	if err := ctx.Err(); err != nil {
		return nil, staterr.New(staterr.Cancelled, "analysis cancelled", err)
	}

	symbols, err := db.AllSymbols()
	if err != nil {
		return nil, err
	}
	refs, err := db.AllReferences()
	if err != nil {
		return nil, err
	}

	referencedIds := make(map[model.SymbolId]bool)
	referencedNames := make(map[string]bool)
	for _, ref := range refs {
		if ref.Target != 0 {
			referencedIds[ref.Target] = true
		}
		if ref.TargetName != "" {
			referencedNames[ref.TargetName] = true
		}
	}

	exported := make(map[model.SymbolId]bool)
	exportedNames := make(map[model.FileId]map[string]bool)
	for id, node := range g.Files {
		exportedNames[id] = make(map[string]bool)
		for _, exp := range node.Exports {
			if exp.Symbol != 0 {
				exported[exp.Symbol] = true
			}
			exportedNames[id][exp.Name] = true
		}
	}

	var out []DeadSymbol
	for _, sym := range symbols {
		node, ok := g.Files[sym.File]
		if !ok || !node.Analysis || node.EntryPoint {
			continue
		}
		// Containers and package declarations are not leaf code.
		if sym.Kind == model.KindPackage || sym.Kind == model.KindModule {
			continue
		}
		if exported[sym.Id] || exportedNames[sym.File][sym.Name] || sym.Visibility == model.VisPublic {
			continue
		}
		if referencedIds[sym.Id] || referencedNames[sym.Name] {
			continue
		}
		out = append(out, DeadSymbol{
			Path: node.Record.Path, Name: sym.Name, QualifiedName: sym.QualifiedName,
			Kind: sym.Kind, Line: sym.Line,
			Confidence: FileConfidence(g, sym.File),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// bfsReachable walks forward from the entry points over all edges
// (including mod declarations).
func bfsReachable(ctx context.Context, g *graph.FileGraph, roots []model.FileId) (map[model.FileId]bool, error) {
	visited := make(map[model.FileId]bool)
	frontier := append([]model.FileId(nil), roots...)
	for _, id := range roots {
		visited[id] = true
	}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, staterr.New(staterr.Cancelled, "analysis cancelled", err)
		}
		var next []model.FileId
		for _, current := range frontier {
			for _, neighbor := range g.Neighbors(current, true, graph.TraversalOptions{}) {
				if !visited[neighbor] {
					visited[neighbor] = true
					next = append(next, neighbor)
				}
			}
		}
		frontier = next
	}
	return visited, nil
}
