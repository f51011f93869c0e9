package analysis

import (
	"context"
	"testing"

	"statik/internal/graph"
	"statik/internal/model"
)

func addFile(g *graph.FileGraph, path string, lang model.Language, entry bool, exports ...model.ExportRecord) model.FileId {
	id := model.NewFileId(path)
	for i := range exports {
		exports[i].File = id
	}
	g.AddFile(&graph.Node{
		Record: model.FileRecord{
			Id: id, Path: path, Language: lang,
			SourceSet: model.DefaultSourceSet,
		},
		Exports:    exports,
		EntryPoint: entry,
		Lint:       true,
		Analysis:   true,
	})
	return id
}

func addEdge(g *graph.FileGraph, from, to model.FileId, line int, names ...string) {
	var imported []model.ImportedName
	for _, n := range names {
		if n == model.WildcardName {
			imported = append(imported, model.ImportedName{Kind: model.ImportWildcard})
		} else {
			imported = append(imported, model.ImportedName{Kind: model.ImportNamed, Name: n})
		}
	}
	g.AddEdge(graph.Edge{
		From: from, To: to, Names: imported, Line: line,
		Resolution: model.Resolved(g.Path(to)),
	})
}

func TestDepsDirectAndTransitive(t *testing.T) {
	g := graph.New()
	a := addFile(g, "src/a.ts", model.LangTypeScript, false)
	b := addFile(g, "src/b.ts", model.LangTypeScript, false)
	c := addFile(g, "src/c.ts", model.LangTypeScript, false)
	addEdge(g, a, b, 1, "fromB")
	addEdge(g, b, c, 1, "fromC")

	direct, err := Deps(context.Background(), g, "src/a.ts", DepsOptions{Direction: DirectionOut})
	if err != nil {
		t.Fatalf("Deps: %v", err)
	}
	if len(direct.Imports) != 1 || direct.Imports[0].Path != "src/b.ts" {
		t.Errorf("direct imports: %+v", direct.Imports)
	}

	trans, err := Deps(context.Background(), g, "src/a.ts", DepsOptions{Direction: DirectionOut, Transitive: true})
	if err != nil {
		t.Fatalf("Deps transitive: %v", err)
	}
	if len(trans.Imports) != 2 {
		t.Fatalf("transitive imports: %+v", trans.Imports)
	}
	if trans.Imports[1].Path != "src/c.ts" || trans.Imports[1].Depth != 2 {
		t.Errorf("depth grouping: %+v", trans.Imports[1])
	}

	up, err := Deps(context.Background(), g, "src/c.ts", DepsOptions{Direction: DirectionIn, Transitive: true})
	if err != nil {
		t.Fatalf("Deps in: %v", err)
	}
	if len(up.ImportedBy) != 2 {
		t.Errorf("importers: %+v", up.ImportedBy)
	}
}

func TestDepsMaxDepth(t *testing.T) {
	g := graph.New()
	a := addFile(g, "src/a.ts", model.LangTypeScript, false)
	b := addFile(g, "src/b.ts", model.LangTypeScript, false)
	c := addFile(g, "src/c.ts", model.LangTypeScript, false)
	addEdge(g, a, b, 1, "x")
	addEdge(g, b, c, 1, "y")

	res, err := Deps(context.Background(), g, "src/a.ts", DepsOptions{Direction: DirectionOut, Transitive: true, MaxDepth: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Imports) != 1 {
		t.Errorf("max-depth cap not applied: %+v", res.Imports)
	}
}

func TestDepsRuntimeOnlySkipsTypeEdges(t *testing.T) {
	g := graph.New()
	a := addFile(g, "src/a.ts", model.LangTypeScript, false)
	types := addFile(g, "src/types.ts", model.LangTypeScript, false)
	util := addFile(g, "src/util.ts", model.LangTypeScript, false)
	g.AddEdge(graph.Edge{From: a, To: types, TypeOnly: true, Line: 1,
		Names: []model.ImportedName{{Kind: model.ImportNamed, Name: "T"}}, Resolution: model.Resolved("src/types.ts")})
	addEdge(g, a, util, 2, "helper")

	res, err := Deps(context.Background(), g, "src/a.ts", DepsOptions{Direction: DirectionOut, RuntimeOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Imports) != 1 || res.Imports[0].Path != "src/util.ts" {
		t.Errorf("runtime-only walk: %+v", res.Imports)
	}
}

func TestDepsUnknownFile(t *testing.T) {
	g := graph.New()
	_, err := Deps(context.Background(), g, "src/ghost.ts", DepsOptions{Direction: DirectionBoth})
	if err == nil {
		t.Fatal("expected FILE_NOT_FOUND_IN_INDEX error")
	}
}

func TestCyclesDetectsAndCanonicalizes(t *testing.T) {
	g := graph.New()
	a := addFile(g, "src/b.ts", model.LangTypeScript, false)
	b := addFile(g, "src/a.ts", model.LangTypeScript, false)
	c := addFile(g, "src/c.ts", model.LangTypeScript, false)
	addEdge(g, a, b, 1, "x") // b.ts -> a.ts
	addEdge(g, b, a, 1, "y") // a.ts -> b.ts
	addEdge(g, a, c, 2, "z") // not part of the cycle

	res, err := Cycles(context.Background(), g, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Cycles) != 1 {
		t.Fatalf("cycles: %+v", res.Cycles)
	}
	cycle := res.Cycles[0]
	if cycle.Length != 2 || cycle.Files[0] != "src/a.ts" {
		t.Errorf("canonical rotation should start at min path: %+v", cycle)
	}
	if res.Summary.FilesInCycles != 2 {
		t.Errorf("summary: %+v", res.Summary)
	}
}

func TestCyclesSelfLoop(t *testing.T) {
	g := graph.New()
	a := addFile(g, "src/self.ts", model.LangTypeScript, false)
	addEdge(g, a, a, 1, "me")

	res, err := Cycles(context.Background(), g, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Cycles) != 1 || res.Cycles[0].Length != 1 {
		t.Errorf("self loop: %+v", res.Cycles)
	}
}

func TestCyclesExcludeModDeclEdges(t *testing.T) {
	// mod.rs declares a and b; a and b import each other. The only cycle is
	// a <-> b; the mod edges are structural.
	g := graph.New()
	modRs := addFile(g, "src/mod.rs", model.LangRust, false)
	a := addFile(g, "src/a.rs", model.LangRust, false)
	b := addFile(g, "src/b.rs", model.LangRust, false)
	g.AddEdge(graph.Edge{From: modRs, To: a, ModDecl: true, Line: 1,
		Names: []model.ImportedName{{Kind: model.ImportNamed, Name: "a"}}, Resolution: model.Resolved("src/a.rs")})
	g.AddEdge(graph.Edge{From: modRs, To: b, ModDecl: true, Line: 2,
		Names: []model.ImportedName{{Kind: model.ImportNamed, Name: "b"}}, Resolution: model.Resolved("src/b.rs")})
	addEdge(g, a, b, 1, "B")
	addEdge(g, b, a, 1, "A")

	res, err := Cycles(context.Background(), g, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Cycles) != 1 {
		t.Fatalf("expected exactly one cycle: %+v", res.Cycles)
	}
	cycle := res.Cycles[0]
	if cycle.Length != 2 {
		t.Errorf("mod edges leaked into cycle: %+v", cycle)
	}
	for _, f := range cycle.Files {
		if f == "src/mod.rs" {
			t.Error("mod.rs must not appear in any reported cycle")
		}
	}
}

func TestCyclesOrderedByLength(t *testing.T) {
	g := graph.New()
	a := addFile(g, "src/a.ts", model.LangTypeScript, false)
	b := addFile(g, "src/b.ts", model.LangTypeScript, false)
	x := addFile(g, "src/x.ts", model.LangTypeScript, false)
	y := addFile(g, "src/y.ts", model.LangTypeScript, false)
	z := addFile(g, "src/z.ts", model.LangTypeScript, false)
	// 3-cycle
	addEdge(g, x, y, 1, "a")
	addEdge(g, y, z, 1, "b")
	addEdge(g, z, x, 1, "c")
	// 2-cycle
	addEdge(g, a, b, 1, "d")
	addEdge(g, b, a, 1, "e")

	res, err := Cycles(context.Background(), g, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Cycles) != 2 || res.Cycles[0].Length != 2 || res.Cycles[1].Length != 3 {
		t.Errorf("ordering: %+v", res.Cycles)
	}
	if res.Summary.ShortestCycle != 2 || res.Summary.LongestCycle != 3 {
		t.Errorf("summary: %+v", res.Summary)
	}
}

func TestImpactReverseBFS(t *testing.T) {
	g := graph.New()
	core := addFile(g, "src/core.ts", model.LangTypeScript, false)
	svc := addFile(g, "src/service.ts", model.LangTypeScript, false)
	ui := addFile(g, "src/ui.ts", model.LangTypeScript, false)
	other := addFile(g, "src/other.ts", model.LangTypeScript, false)
	addEdge(g, svc, core, 1, "core")
	addEdge(g, ui, svc, 1, "svc")
	addEdge(g, other, ui, 1, "ui")

	res, err := Impact(context.Background(), g, "src/core.ts", 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.DirectDependents != 1 || res.Summary.TotalAffected != 2 {
		t.Errorf("summary: %+v", res.Summary)
	}
	if len(res.ByDepth[1]) != 1 || res.ByDepth[1][0] != "src/service.ts" {
		t.Errorf("depth 1: %v", res.ByDepth)
	}
	if len(res.ByDepth[2]) != 1 || res.ByDepth[2][0] != "src/ui.ts" {
		t.Errorf("depth 2: %v", res.ByDepth)
	}
}

func TestDeadFilesBFS(t *testing.T) {
	g := graph.New()
	entry := addFile(g, "index.ts", model.LangTypeScript, true)
	used := addFile(g, "src/used.ts", model.LangTypeScript, false)
	_ = addFile(g, "src/orphan.ts", model.LangTypeScript, false)
	addEdge(g, entry, used, 1, "x")

	res, err := DeadCode(context.Background(), g, nil, ScopeFiles)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.DeadFiles) != 1 || res.DeadFiles[0].Path != "src/orphan.ts" {
		t.Errorf("dead files: %+v", res.DeadFiles)
	}
	if res.Confidence != ConfidenceCertain {
		t.Errorf("confidence with no unresolved imports: %s", res.Confidence)
	}
}

func TestDeadFilesModEdgeKeepsChildAlive(t *testing.T) {
	g := graph.New()
	lib := addFile(g, "src/lib.rs", model.LangRust, true)
	child := addFile(g, "src/child.rs", model.LangRust, false)
	g.AddEdge(graph.Edge{From: lib, To: child, ModDecl: true, Line: 1,
		Names: []model.ImportedName{{Kind: model.ImportNamed, Name: "child"}}, Resolution: model.Resolved("src/child.rs")})

	res, err := DeadCode(context.Background(), g, nil, ScopeFiles)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.DeadFiles) != 0 {
		t.Errorf("mod-declared child reported dead: %+v", res.DeadFiles)
	}
}

func TestDeadExportsWildcardReexportTrace(t *testing.T) {
	// a.ts exports foo; barrel.ts does `export * from './a'`; main.ts
	// imports { foo } from './barrel'. foo must not be reported dead.
	g := graph.New()
	a := addFile(g, "a.ts", model.LangTypeScript, false,
		model.ExportRecord{Name: "foo", Line: 1},
		model.ExportRecord{Name: "unused", Line: 2},
	)
	barrel := addFile(g, "barrel.ts", model.LangTypeScript, false,
		model.ExportRecord{Name: model.WildcardName, Reexport: true, Source: "./a", Line: 1},
	)
	main := addFile(g, "main.ts", model.LangTypeScript, true)
	addEdge(g, barrel, a, 1, model.WildcardName)
	addEdge(g, main, barrel, 1, "foo")

	res, err := DeadCode(context.Background(), g, nil, ScopeExports)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range res.DeadExports {
		if d.Path == "a.ts" && d.Name == "foo" {
			t.Error("foo traced through wildcard re-export must be live")
		}
	}
	// The wildcard re-export marks the whole target file live, so even
	// unused stays unreported here (documented recall loss).
	_ = a
	_ = main
}

func TestDeadExportsNamedReexportChain(t *testing.T) {
	g := graph.New()
	a := addFile(g, "a.ts", model.LangTypeScript, false,
		model.ExportRecord{Name: "foo", Line: 1},
		model.ExportRecord{Name: "unused", Line: 2},
	)
	barrel := addFile(g, "barrel.ts", model.LangTypeScript, false,
		model.ExportRecord{Name: "foo", Reexport: true, Source: "./a", Line: 3},
	)
	main := addFile(g, "main.ts", model.LangTypeScript, true)
	addEdge(g, barrel, a, 3, "foo")
	addEdge(g, main, barrel, 1, "foo")

	res, err := DeadCode(context.Background(), g, nil, ScopeExports)
	if err != nil {
		t.Fatal(err)
	}
	deadNames := map[string]bool{}
	for _, d := range res.DeadExports {
		if d.Path == "a.ts" {
			deadNames[d.Name] = true
		}
	}
	if deadNames["foo"] {
		t.Error("foo re-exported by name must be live")
	}
	if !deadNames["unused"] {
		t.Error("unused export should be reported dead")
	}
}

func TestDeadExportsEntryPointExportsAlwaysLive(t *testing.T) {
	g := graph.New()
	addFile(g, "index.ts", model.LangTypeScript, true,
		model.ExportRecord{Name: "api", Line: 1},
	)

	res, err := DeadCode(context.Background(), g, nil, ScopeExports)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.DeadExports) != 0 {
		t.Errorf("entry-point exports reported dead: %+v", res.DeadExports)
	}
}

func TestDeadExportsNamespaceImportMarksAllLive(t *testing.T) {
	g := graph.New()
	util := addFile(g, "util.ts", model.LangTypeScript, false,
		model.ExportRecord{Name: "a", Line: 1},
		model.ExportRecord{Name: "b", Line: 2},
	)
	main := addFile(g, "main.ts", model.LangTypeScript, true)
	g.AddEdge(graph.Edge{From: main, To: util, Line: 1,
		Names:      []model.ImportedName{{Kind: model.ImportNamespace, Local: "util"}},
		Resolution: model.Resolved("util.ts")})

	res, err := DeadCode(context.Background(), g, nil, ScopeExports)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.DeadExports) != 0 {
		t.Errorf("namespace import must keep all target exports live: %+v", res.DeadExports)
	}
}

func TestGraphConfidenceLadder(t *testing.T) {
	g := graph.New()
	a := addFile(g, "a.ts", model.LangTypeScript, false)
	b := addFile(g, "b.ts", model.LangTypeScript, false)
	addEdge(g, a, b, 1, "x")

	if got := GraphConfidence(g); got != ConfidenceCertain {
		t.Errorf("clean graph confidence = %s", got)
	}

	// 1 unresolved out of 2 imports total: ratio 0.5 lands in the low band.
	g.AddUnresolved(graph.UnresolvedImport{File: a, Path: "a.ts", Specifier: "./missing", Reason: model.UnresolvedFileNotFound, Line: 2})
	if got := GraphConfidence(g); got != ConfidenceLow {
		t.Errorf("unresolved-heavy graph confidence = %s", got)
	}
}

func TestConfidenceLowerAndMin(t *testing.T) {
	if ConfidenceCertain.Lower(1) != ConfidenceHigh {
		t.Error("certain lowered once should be high")
	}
	if ConfidenceCertain.Lower(2) != ConfidenceMedium {
		t.Error("certain lowered twice should be medium")
	}
	if ConfidenceLow.Lower(1) != ConfidenceLow {
		t.Error("low floors at low")
	}
	if ConfidenceHigh.Min(ConfidenceMedium) != ConfidenceMedium {
		t.Error("min should pick the lower confidence")
	}
}

func TestBetweenEdgeListing(t *testing.T) {
	g := graph.New()
	ui := addFile(g, "src/ui/button.ts", model.LangTypeScript, false)
	db := addFile(g, "src/db/conn.ts", model.LangTypeScript, false)
	svc := addFile(g, "src/services/api.ts", model.LangTypeScript, false)
	addEdge(g, ui, db, 4, "query")
	addEdge(g, svc, db, 9, "conn")

	res, err := Between(context.Background(), g, "src/ui/**", "src/db/**", DepsOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Edges) != 1 || res.Edges[0].From != "src/ui/button.ts" || res.Edges[0].Line != 4 {
		t.Errorf("between edges: %+v", res.Edges)
	}
}
