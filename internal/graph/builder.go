package graph

import (
	"path"
	"sort"
	"strings"

	"statik/internal/config"
	"statik/internal/logging"
	"statik/internal/model"
	"statik/internal/resolver"
	"statik/internal/storage"
)

// Builder assembles a FileGraph from persisted records.
type Builder struct {
	db     *storage.DB
	cfg    *config.Config
	root   string
	logger *logging.Logger
}

// NewBuilder creates a graph builder for a project root.
func NewBuilder(db *storage.DB, cfg *config.Config, root string, logger *logging.Logger) *Builder {
	return &Builder{db: db, cfg: cfg, root: root, logger: logger}
}

// Build loads all persisted records, resolves every import, and populates
// the adjacency lists. Edges from multi-resolution results (wildcard
// imports) are expanded one edge per resolution.
func (b *Builder) Build() (*FileGraph, error) {
	files, err := b.db.AllFiles()
	if err != nil {
		return nil, err
	}
	imports, err := b.db.AllImports()
	if err != nil {
		return nil, err
	}
	exports, err := b.db.AllExports()
	if err != nil {
		return nil, err
	}
	refs, err := b.db.AllReferences()
	if err != nil {
		return nil, err
	}

	knownPaths := make([]string, 0, len(files))
	for _, f := range files {
		knownPaths = append(knownPaths, f.Path)
	}
	ctx := resolver.NewProjectContext(b.root, knownPaths, b.cfg.JavaSourceRoots(), nil)
	resolvers := resolver.NewRegistry(ctx)

	// Type-usage names per file feed Java annotation entry points and the
	// same-package reference scan.
	typeUsages := make(map[model.FileId]map[string]bool)
	typeUsageLines := make(map[model.FileId]map[string]int)
	for _, ref := range refs {
		if ref.Kind != model.RefTypeUsage || ref.TargetName == "" {
			continue
		}
		if typeUsages[ref.File] == nil {
			typeUsages[ref.File] = make(map[string]bool)
			typeUsageLines[ref.File] = make(map[string]int)
		}
		typeUsages[ref.File][ref.TargetName] = true
		if _, ok := typeUsageLines[ref.File][ref.TargetName]; !ok {
			typeUsageLines[ref.File][ref.TargetName] = ref.Line
		}
	}

	scopeNames := make([]string, 0, len(b.cfg.Scopes))
	for name := range b.cfg.Scopes {
		scopeNames = append(scopeNames, name)
	}
	sort.Strings(scopeNames)
	classifier := newEntryPointClassifier(b.cfg)

	g := New()
	for _, rec := range files {
		scopeName, scope := classifySourceSet(b.cfg, scopeNames, rec.Path)
		rec.SourceSet = scopeName
		g.AddFile(&Node{
			Record:     rec,
			Exports:    exports[rec.Id],
			EntryPoint: classifier.isEntryPoint(rec, scope.Role, typeUsages[rec.Id]),
			Lint:       scope.LintEnabled(),
			Analysis:   scope.AnalysisEnabled(),
		})
	}

	for _, rec := range files {
		res := resolvers.ForLanguage(rec.Language)
		if res == nil {
			continue
		}
		for _, imp := range imports[rec.Id] {
			b.applyResolutions(g, rec, imp, res.Resolve(imp, rec.Path))
		}
	}

	b.injectSamePackageEdges(g, files, imports, typeUsages, typeUsageLines, ctx, resolvers)

	b.logger.Debug("File graph built", map[string]interface{}{
		"files":      len(g.Files),
		"edges":      g.TotalImports(),
		"unresolved": len(g.Unresolved),
		"externals":  len(g.Externals),
	})
	return g, nil
}

func (b *Builder) applyResolutions(g *FileGraph, rec model.FileRecord, imp model.ImportRecord, resolutions []model.Resolution) {
	for _, resolution := range resolutions {
		switch resolution.Kind {
		case model.ResolutionResolved, model.ResolutionCaveat:
			target, ok := g.FileByPath(resolution.Path)
			if !ok {
				g.AddUnresolved(UnresolvedImport{
					File: rec.Id, Path: rec.Path, Specifier: imp.Specifier,
					Reason: model.UnresolvedFileNotFound,
					Detail: "resolved path not indexed: " + resolution.Path,
					Line:   imp.Line,
				})
				continue
			}
			g.AddEdge(Edge{
				From: rec.Id, To: target, Names: imp.Names,
				TypeOnly: imp.TypeOnly, ModDecl: imp.ModDecl,
				Line: imp.Line, Resolution: resolution,
			})
		case model.ResolutionExternal:
			g.AddExternal(ExternalDep{File: rec.Id, Package: resolution.Package, Line: imp.Line})
		case model.ResolutionUnresolved:
			g.AddUnresolved(UnresolvedImport{
				File: rec.Id, Path: rec.Path, Specifier: imp.Specifier,
				Reason: resolution.Reason, Detail: resolution.Detail, Line: imp.Line,
			})
		}
	}
}

// injectSamePackageEdges adds synthetic import edges for Java same-package
// type references, which need no import statement in source.
func (b *Builder) injectSamePackageEdges(
	g *FileGraph,
	files []model.FileRecord,
	imports map[model.FileId][]model.ImportRecord,
	typeUsages map[model.FileId]map[string]bool,
	typeUsageLines map[model.FileId]map[string]int,
	ctx *resolver.ProjectContext,
	resolvers *resolver.Registry,
) {
	javaResolver := resolvers.ForLanguage(model.LangJava)
	if javaResolver == nil {
		return
	}

	for _, rec := range files {
		if rec.Language != model.LangJava {
			continue
		}
		pkg := javaPackageOf(rec.Path, ctx.JavaSourceRoots)
		if pkg == "" {
			continue
		}

		// Names already covered by explicit imports are skipped.
		imported := make(map[string]bool)
		for _, imp := range imports[rec.Id] {
			for _, n := range imp.Names {
				if n.Name != "" {
					imported[n.Name] = true
				}
			}
		}
		existing := make(map[model.FileId]bool)
		for _, e := range g.Out[rec.Id] {
			existing[e.To] = true
		}

		names := make([]string, 0, len(typeUsages[rec.Id]))
		for name := range typeUsages[rec.Id] {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if imported[name] {
				continue
			}
			synthetic := model.ImportRecord{
				File:      rec.Id,
				Specifier: pkg + "." + name,
				Names:     []model.ImportedName{{Kind: model.ImportNamed, Name: name}},
				Line:      typeUsageLines[rec.Id][name],
			}
			for _, resolution := range javaResolver.Resolve(synthetic, rec.Path) {
				if !resolution.IsResolved() {
					continue
				}
				target, ok := g.FileByPath(resolution.Path)
				if !ok || target == rec.Id || existing[target] {
					continue
				}
				existing[target] = true
				g.AddEdge(Edge{
					From: rec.Id, To: target, Names: synthetic.Names,
					Line: synthetic.Line, Resolution: resolution,
				})
			}
		}
	}
}

// javaPackageOf derives the package of a Java file from its path and the
// source roots: src/main/java/com/example/A.java -> com.example.
func javaPackageOf(relPath string, sourceRoots []string) string {
	dir := path.Dir(relPath)
	for _, root := range sourceRoots {
		if root == "." {
			continue
		}
		if strings.HasPrefix(dir, root+"/") {
			return strings.ReplaceAll(strings.TrimPrefix(dir, root+"/"), "/", ".")
		}
		if dir == root {
			return ""
		}
	}
	if dir == "." {
		return ""
	}
	return strings.ReplaceAll(dir, "/", ".")
}
