package analysis

import (
	"context"
	"sort"
	"strings"

	staterr "statik/internal/errors"
	"statik/internal/graph"
	"statik/internal/model"
	"statik/internal/storage"
)

// SummaryResult is the project overview.
type SummaryResult struct {
	Files       int            `json:"files"`
	Symbols     int            `json:"symbols"`
	Imports     int            `json:"imports"`
	Exports     int            `json:"exports"`
	References  int            `json:"references"`
	Edges       int            `json:"edges"`
	Unresolved  int            `json:"unresolved"`
	Externals   int            `json:"externals"`
	EntryPoints int            `json:"entryPoints"`
	ByLanguage  map[string]int `json:"byLanguage"`
	ByDirectory []DirSummary   `json:"byDirectory,omitempty"`
	Confidence  Confidence     `json:"confidence"`
	LastRun     *storage.RunRecord `json:"lastRun,omitempty"`
}

// DirSummary aggregates statistics per top-level directory.
type DirSummary struct {
	Directory string `json:"directory"`
	Files     int    `json:"files"`
	Edges     int    `json:"edges"`
	Incoming  int    `json:"incoming"`
}

// Summary computes project overview statistics.
func Summary(ctx context.Context, g *graph.FileGraph, db *storage.DB, byDirectory bool) (*SummaryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, staterr.New(staterr.Cancelled, "summary cancelled", err)
	}

	counts, err := db.Count()
	if err != nil {
		return nil, err
	}
	lastRun, err := db.LastRun()
	if err != nil {
		return nil, err
	}

	result := &SummaryResult{
		Files:       counts.Files,
		Symbols:     counts.Symbols,
		Imports:     counts.Imports,
		Exports:     counts.Exports,
		References:  counts.Refs,
		Edges:       g.TotalImports(),
		Unresolved:  len(g.Unresolved),
		Externals:   len(g.Externals),
		EntryPoints: len(g.EntryPoints()),
		ByLanguage:  make(map[string]int),
		Confidence:  GraphConfidence(g),
		LastRun:     lastRun,
	}
	for _, node := range g.Files {
		result.ByLanguage[string(node.Record.Language)]++
	}

	if byDirectory {
		dirs := make(map[string]*DirSummary)
		get := func(path string) *DirSummary {
			dir := topDirectory(path)
			if dirs[dir] == nil {
				dirs[dir] = &DirSummary{Directory: dir}
			}
			return dirs[dir]
		}
		for _, id := range g.AllFileIds() {
			node := g.Files[id]
			get(node.Record.Path).Files++
			for range g.Out[id] {
				get(node.Record.Path).Edges++
			}
			for range g.In[id] {
				get(node.Record.Path).Incoming++
			}
		}
		for _, d := range dirs {
			result.ByDirectory = append(result.ByDirectory, *d)
		}
		sort.Slice(result.ByDirectory, func(i, j int) bool {
			return result.ByDirectory[i].Directory < result.ByDirectory[j].Directory
		})
	}
	return result, nil
}

func topDirectory(path string) string {
	if idx := strings.Index(path, "/"); idx >= 0 {
		return path[:idx]
	}
	return "."
}

// ExportStatus is one export of a file with its used/unused status.
type ExportStatus struct {
	Name       string     `json:"name"`
	Line       int        `json:"line"`
	Reexport   bool       `json:"reexport,omitempty"`
	TypeOnly   bool       `json:"typeOnly,omitempty"`
	Used       bool       `json:"used"`
	Confidence Confidence `json:"confidence"`
}

// ExportsResult lists a file's exports with usage status.
type ExportsResult struct {
	Path       string         `json:"path"`
	Exports    []ExportStatus `json:"exports"`
	Confidence Confidence     `json:"confidence"`
}

// Exports lists a file's export surface with used/unused status derived
// from the dead-export analysis.
func Exports(ctx context.Context, g *graph.FileGraph, db *storage.DB, path string) (*ExportsResult, error) {
	id, ok := g.FileByPath(path)
	if !ok {
		return nil, staterr.Newf(staterr.FileNotFoundInIndex, "file not in index: %s", path)
	}

	dead, err := DeadCode(ctx, g, db, ScopeExports)
	if err != nil {
		return nil, err
	}
	deadNames := make(map[string]bool)
	for _, d := range dead.DeadExports {
		if d.Path == path {
			deadNames[d.Name] = true
		}
	}

	node := g.Files[id]
	result := &ExportsResult{Path: path, Confidence: GraphConfidence(g)}
	for _, exp := range node.Exports {
		result.Exports = append(result.Exports, ExportStatus{
			Name: exp.Name, Line: exp.Line, Reexport: exp.Reexport,
			TypeOnly: exp.TypeOnly, Used: !deadNames[exp.Name],
			Confidence: FileConfidence(g, id),
		})
	}
	sort.Slice(result.Exports, func(i, j int) bool {
		if result.Exports[i].Line != result.Exports[j].Line {
			return result.Exports[i].Line < result.Exports[j].Line
		}
		return result.Exports[i].Name < result.Exports[j].Name
	})
	return result, nil
}

// Languages returns the distinct languages present in the graph, sorted.
func Languages(g *graph.FileGraph) []model.Language {
	seen := map[model.Language]bool{}
	for _, node := range g.Files {
		seen[node.Record.Language] = true
	}
	var out []model.Language
	for lang := range seen {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
