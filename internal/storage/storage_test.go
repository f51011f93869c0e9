package storage

import (
	"io"
	"reflect"
	"testing"

	"statik/internal/logging"
	"statik/internal/model"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: io.Discard})
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory(testLogger())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleResult(file model.FileRecord) model.ParseResult {
	symId := model.NewSymbolId(file.Path, model.KindFunction, "foo")
	return model.ParseResult{
		Symbols: []model.Symbol{{
			Id: symId, Name: "foo", QualifiedName: "foo", Kind: model.KindFunction,
			File: file.Id, Line: 1, Column: 1, EndLine: 3, Visibility: model.VisPublic,
			Signature: "foo()",
		}},
		Imports: []model.ImportRecord{{
			File: file.Id, Specifier: "./util",
			Names: []model.ImportedName{{Kind: model.ImportNamed, Name: "helper"}},
			Line:  1,
		}},
		Exports: []model.ExportRecord{{
			File: file.Id, Symbol: symId, Name: "foo", Line: 1,
		}},
		References: []model.Reference{{
			Source: symId, TargetName: "helper", Kind: model.RefCall, File: file.Id, Line: 2,
		}},
		Suppressions: []model.Suppression{{File: file.Id, Line: 5, RuleId: "no-ui-to-db"}},
	}
}

func TestReplaceFileRoundTrip(t *testing.T) {
	db := openTestDB(t)
	file := model.FileRecord{
		Id: model.NewFileId("src/app.ts"), Path: "src/app.ts",
		Language: model.LangTypeScript, Fingerprint: "abc", Mtime: 100,
		SourceSet: model.DefaultSourceSet,
	}
	res := sampleResult(file)

	if err := db.ReplaceFile(file, res); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}

	got, err := db.FileByPath("src/app.ts")
	if err != nil || got == nil {
		t.Fatalf("FileByPath: %v, %v", got, err)
	}
	if got.Id != file.Id || got.Fingerprint != "abc" || got.Language != model.LangTypeScript {
		t.Errorf("file record mismatch: %+v", got)
	}

	symbols, err := db.SymbolsByFile(file.Id)
	if err != nil || len(symbols) != 1 {
		t.Fatalf("SymbolsByFile: %v, %v", symbols, err)
	}
	if !reflect.DeepEqual(symbols[0], res.Symbols[0]) {
		t.Errorf("symbol round trip mismatch:\n got %+v\nwant %+v", symbols[0], res.Symbols[0])
	}

	imports, err := db.ImportsByFile(file.Id)
	if err != nil || len(imports) != 1 {
		t.Fatalf("ImportsByFile: %v, %v", imports, err)
	}
	if !reflect.DeepEqual(imports[0], res.Imports[0]) {
		t.Errorf("import round trip mismatch:\n got %+v\nwant %+v", imports[0], res.Imports[0])
	}

	exports, err := db.ExportsByFile(file.Id)
	if err != nil || len(exports) != 1 {
		t.Fatalf("ExportsByFile: %v, %v", exports, err)
	}
	if !reflect.DeepEqual(exports[0], res.Exports[0]) {
		t.Errorf("export round trip mismatch:\n got %+v\nwant %+v", exports[0], res.Exports[0])
	}

	refs, err := db.ReferencesByTargetName("helper")
	if err != nil || len(refs) != 1 {
		t.Fatalf("ReferencesByTargetName: %v, %v", refs, err)
	}

	sups, err := db.AllSuppressions()
	if err != nil || len(sups[file.Id]) != 1 {
		t.Fatalf("AllSuppressions: %v, %v", sups, err)
	}
}

func TestReplaceFileIsAtomicSwap(t *testing.T) {
	db := openTestDB(t)
	file := model.FileRecord{
		Id: model.NewFileId("src/app.ts"), Path: "src/app.ts",
		Language: model.LangTypeScript, Fingerprint: "v1", Mtime: 100,
		SourceSet: model.DefaultSourceSet,
	}
	if err := db.ReplaceFile(file, sampleResult(file)); err != nil {
		t.Fatalf("first ReplaceFile: %v", err)
	}

	// Re-index with different contents: old rows must be gone.
	file.Fingerprint = "v2"
	symId := model.NewSymbolId(file.Path, model.KindClass, "Widget")
	res := model.ParseResult{
		Symbols: []model.Symbol{{
			Id: symId, Name: "Widget", QualifiedName: "Widget", Kind: model.KindClass,
			File: file.Id, Line: 1, Column: 1, EndLine: 10, Visibility: model.VisPublic,
		}},
	}
	if err := db.ReplaceFile(file, res); err != nil {
		t.Fatalf("second ReplaceFile: %v", err)
	}

	symbols, err := db.SymbolsByFile(file.Id)
	if err != nil {
		t.Fatalf("SymbolsByFile: %v", err)
	}
	if len(symbols) != 1 || symbols[0].Name != "Widget" {
		t.Errorf("expected only replaced symbol, got %+v", symbols)
	}

	imports, err := db.ImportsByFile(file.Id)
	if err != nil {
		t.Fatalf("ImportsByFile: %v", err)
	}
	if len(imports) != 0 {
		t.Errorf("stale imports survived replace: %+v", imports)
	}

	counts, err := db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if counts.Files != 1 || counts.Symbols != 1 || counts.Imports != 0 {
		t.Errorf("unexpected counts after replace: %+v", counts)
	}
}

func TestDeleteFileRemovesAllRows(t *testing.T) {
	db := openTestDB(t)
	file := model.FileRecord{
		Id: model.NewFileId("src/gone.ts"), Path: "src/gone.ts",
		Language: model.LangTypeScript, Fingerprint: "x", Mtime: 1,
		SourceSet: model.DefaultSourceSet,
	}
	if err := db.ReplaceFile(file, sampleResult(file)); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}
	if err := db.DeleteFile(file.Id); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}

	got, err := db.FileByPath("src/gone.ts")
	if err != nil {
		t.Fatalf("FileByPath: %v", err)
	}
	if got != nil {
		t.Errorf("file still present after delete: %+v", got)
	}
	counts, err := db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if counts != (Counts{}) {
		t.Errorf("rows left behind: %+v", counts)
	}
}

func TestSymbolQueries(t *testing.T) {
	db := openTestDB(t)
	file := model.FileRecord{
		Id: model.NewFileId("src/a.ts"), Path: "src/a.ts",
		Language: model.LangTypeScript, Fingerprint: "x", Mtime: 1,
		SourceSet: model.DefaultSourceSet,
	}
	res := model.ParseResult{
		Symbols: []model.Symbol{
			{Id: model.NewSymbolId("src/a.ts", model.KindFunction, "alpha"), Name: "alpha", QualifiedName: "alpha", Kind: model.KindFunction, File: file.Id, Line: 1, Column: 1, EndLine: 2, Visibility: model.VisPublic},
			{Id: model.NewSymbolId("src/a.ts", model.KindClass, "Beta"), Name: "Beta", QualifiedName: "Beta", Kind: model.KindClass, File: file.Id, Line: 4, Column: 1, EndLine: 9, Visibility: model.VisPrivate},
		},
	}
	if err := db.ReplaceFile(file, res); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}

	byName, err := db.SymbolsByName("alpha")
	if err != nil || len(byName) != 1 || byName[0].Kind != model.KindFunction {
		t.Errorf("SymbolsByName: %+v, %v", byName, err)
	}
	byKind, err := db.SymbolsByKind(model.KindClass)
	if err != nil || len(byKind) != 1 || byKind[0].Name != "Beta" {
		t.Errorf("SymbolsByKind: %+v, %v", byKind, err)
	}
	all, err := db.AllSymbols()
	if err != nil || len(all) != 2 {
		t.Errorf("AllSymbols: %+v, %v", all, err)
	}
}

func TestRunMetadata(t *testing.T) {
	db := openTestDB(t)
	if err := db.BeginRun("run-1"); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := db.FinishRun("run-1", 10, 8, 2); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, err := db.LastRun()
	if err != nil || run == nil {
		t.Fatalf("LastRun: %v, %v", run, err)
	}
	if run.RunId != "run-1" || run.FilesSeen != 10 || run.FilesIndexed != 8 || run.FilesFailed != 2 {
		t.Errorf("run record mismatch: %+v", run)
	}
	if run.FinishedAt == "" {
		t.Error("finished timestamp not set")
	}
}
