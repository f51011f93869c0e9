// Package graph assembles the file-level dependency graph by joining
// persisted extraction records through the per-language resolvers. The
// graph is built once per analysis invocation and read-only afterwards.
package graph

import (
	"sort"

	"statik/internal/model"
)

// Edge is a directed import relation from one file to another.
type Edge struct {
	From       model.FileId         `json:"from"`
	To         model.FileId         `json:"to"`
	Names      []model.ImportedName `json:"names"`
	TypeOnly   bool                 `json:"typeOnly,omitempty"`
	ModDecl    bool                 `json:"modDecl,omitempty"`
	Line       int                  `json:"line"`
	Resolution model.Resolution     `json:"resolution"`
}

// NamedImports returns the plain names carried by the edge; wildcard and
// namespace bindings report hasWildcard.
func (e Edge) NamedImports() (names []string, hasWildcard bool) {
	for _, n := range e.Names {
		switch n.Kind {
		case model.ImportNamed:
			names = append(names, n.Name)
		case model.ImportDefault:
			names = append(names, "default")
		case model.ImportWildcard, model.ImportNamespace:
			hasWildcard = true
		}
	}
	return names, hasWildcard
}

// UnresolvedImport tracks an import that produced no edge.
type UnresolvedImport struct {
	File      model.FileId           `json:"file"`
	Path      string                 `json:"path"`
	Specifier string                 `json:"specifier"`
	Reason    model.UnresolvedReason `json:"reason"`
	Detail    string                 `json:"detail,omitempty"`
	Line      int                    `json:"line"`
}

// ExternalDep tracks an import resolved to a package outside the project.
type ExternalDep struct {
	File    model.FileId `json:"file"`
	Package string       `json:"package"`
	Line    int          `json:"line"`
}

// Node is one file in the graph with its classification flags.
type Node struct {
	Record     model.FileRecord
	Exports    []model.ExportRecord
	EntryPoint bool
	// Lint and Analysis project the file's source-set flags: excluded files
	// stay in the graph (their edges keep targets alive) but are dropped
	// from the corresponding outputs.
	Lint     bool
	Analysis bool
}

// FileGraph maps files to their outgoing and incoming edges.
type FileGraph struct {
	Files      map[model.FileId]*Node
	Out        map[model.FileId][]Edge
	In         map[model.FileId][]Edge
	Unresolved []UnresolvedImport
	Externals  []ExternalDep

	pathToId map[string]model.FileId
	// unresolvedByFile pre-computes confidence lookups.
	unresolvedByFile map[model.FileId]int
	totalImports     int
}

// New creates an empty graph.
func New() *FileGraph {
	return &FileGraph{
		Files:            make(map[model.FileId]*Node),
		Out:              make(map[model.FileId][]Edge),
		In:               make(map[model.FileId][]Edge),
		pathToId:         make(map[string]model.FileId),
		unresolvedByFile: make(map[model.FileId]int),
	}
}

// AddFile registers a node.
func (g *FileGraph) AddFile(node *Node) {
	g.Files[node.Record.Id] = node
	g.pathToId[node.Record.Path] = node.Record.Id
	if _, ok := g.Out[node.Record.Id]; !ok {
		g.Out[node.Record.Id] = nil
	}
	if _, ok := g.In[node.Record.Id]; !ok {
		g.In[node.Record.Id] = nil
	}
}

// AddEdge registers a directed edge in both adjacency maps.
func (g *FileGraph) AddEdge(e Edge) {
	g.Out[e.From] = append(g.Out[e.From], e)
	g.In[e.To] = append(g.In[e.To], e)
	g.totalImports++
}

// AddUnresolved records an import that produced no edge.
func (g *FileGraph) AddUnresolved(u UnresolvedImport) {
	g.Unresolved = append(g.Unresolved, u)
	g.unresolvedByFile[u.File]++
}

// AddExternal records an external package dependency.
func (g *FileGraph) AddExternal(dep ExternalDep) {
	g.Externals = append(g.Externals, dep)
}

// FileByPath looks up a node id by project-relative path.
func (g *FileGraph) FileByPath(path string) (model.FileId, bool) {
	id, ok := g.pathToId[path]
	return id, ok
}

// Path returns a file's project-relative path, or "" for unknown ids.
func (g *FileGraph) Path(id model.FileId) string {
	if node, ok := g.Files[id]; ok {
		return node.Record.Path
	}
	return ""
}

// TraversalOptions filter edges during walks.
type TraversalOptions struct {
	// RuntimeOnly drops type-only edges.
	RuntimeOnly bool
	// SkipModDecl drops `mod foo;` structural edges (cycle detection).
	SkipModDecl bool
}

// Include reports whether an edge participates under the options.
func (o TraversalOptions) Include(e Edge) bool {
	if o.RuntimeOnly && e.TypeOnly && !e.ModDecl {
		return false
	}
	if o.SkipModDecl && e.ModDecl {
		return false
	}
	return true
}

// Neighbors returns the distinct files adjacent to id, sorted by path.
// forward follows imports; otherwise importers.
func (g *FileGraph) Neighbors(id model.FileId, forward bool, opts TraversalOptions) []model.FileId {
	edges := g.Out[id]
	if !forward {
		edges = g.In[id]
	}
	seen := make(map[model.FileId]bool)
	var out []model.FileId
	for _, e := range edges {
		if !opts.Include(e) {
			continue
		}
		neighbor := e.To
		if !forward {
			neighbor = e.From
		}
		if !seen[neighbor] {
			seen[neighbor] = true
			out = append(out, neighbor)
		}
	}
	g.SortByPath(out)
	return out
}

// SortByPath orders ids deterministically by their file path.
func (g *FileGraph) SortByPath(ids []model.FileId) {
	sort.Slice(ids, func(i, j int) bool {
		return g.Path(ids[i]) < g.Path(ids[j])
	})
}

// EntryPoints returns all entry-point file ids, sorted by path.
func (g *FileGraph) EntryPoints() []model.FileId {
	var out []model.FileId
	for id, node := range g.Files {
		if node.EntryPoint {
			out = append(out, id)
		}
	}
	g.SortByPath(out)
	return out
}

// AllFileIds returns every file id, sorted by path.
func (g *FileGraph) AllFileIds() []model.FileId {
	out := make([]model.FileId, 0, len(g.Files))
	for id := range g.Files {
		out = append(out, id)
	}
	g.SortByPath(out)
	return out
}

// TotalImports is the number of resolved edges.
func (g *FileGraph) TotalImports() int {
	return g.totalImports
}

// UnresolvedCount returns the number of unresolved imports in a file.
func (g *FileGraph) UnresolvedCount(id model.FileId) int {
	return g.unresolvedByFile[id]
}

// HasWildcardReexports reports whether any file carries an `export *`
// style re-export, which caps confidence below certain.
func (g *FileGraph) HasWildcardReexports() bool {
	for _, node := range g.Files {
		for _, exp := range node.Exports {
			if exp.Reexport && exp.Name == model.WildcardName {
				return true
			}
		}
	}
	return false
}
