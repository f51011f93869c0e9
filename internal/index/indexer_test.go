package index

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"statik/internal/logging"
	"statik/internal/model"
	"statik/internal/storage"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: io.Discard})
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func setupProject(t *testing.T) (string, *storage.DB) {
	t.Helper()
	root := t.TempDir()
	db, err := storage.OpenMemory(testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return root, db
}

func TestIndexRunPersistsRecords(t *testing.T) {
	root, db := setupProject(t)
	writeFile(t, root, "src/app.ts", "import { helper } from './util';\nexport function run() { helper(); }\n")
	writeFile(t, root, "src/util.ts", "export function helper() {}\n")

	stats, err := New(db, root, testLogger()).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesSeen != 2 || stats.FilesIndexed != 2 || stats.FilesFailed != 0 {
		t.Errorf("stats: %+v", stats)
	}

	app, err := db.FileByPath("src/app.ts")
	if err != nil || app == nil {
		t.Fatalf("app record: %v, %v", app, err)
	}
	imports, err := db.ImportsByFile(app.Id)
	if err != nil || len(imports) != 1 || imports[0].Specifier != "./util" {
		t.Errorf("imports: %+v, %v", imports, err)
	}
	symbols, err := db.SymbolsByFile(app.Id)
	if err != nil || len(symbols) == 0 {
		t.Errorf("symbols: %+v, %v", symbols, err)
	}

	run, err := db.LastRun()
	if err != nil || run == nil || run.RunId != stats.RunId {
		t.Errorf("run metadata: %+v, %v", run, err)
	}
}

func TestIndexSkipsUnchangedFiles(t *testing.T) {
	root, db := setupProject(t)
	writeFile(t, root, "src/a.ts", "export const a = 1;\n")

	first, err := New(db, root, testLogger()).Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.FilesIndexed != 1 {
		t.Fatalf("first run: %+v", first)
	}

	second, err := New(db, root, testLogger()).Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if second.FilesIndexed != 0 || second.FilesSkipped != 1 {
		t.Errorf("unchanged file re-indexed: %+v", second)
	}

	// Content change triggers a replace.
	writeFile(t, root, "src/a.ts", "export const a = 2;\n")
	third, err := New(db, root, testLogger()).Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if third.FilesIndexed != 1 {
		t.Errorf("changed file not re-indexed: %+v", third)
	}
}

func TestIndexRemovesDeletedFiles(t *testing.T) {
	root, db := setupProject(t)
	writeFile(t, root, "src/keep.ts", "export const k = 1;\n")
	writeFile(t, root, "src/gone.ts", "export const g = 1;\n")

	if _, err := New(db, root, testLogger()).Run(context.Background(), Options{}); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "src/gone.ts")); err != nil {
		t.Fatal(err)
	}

	stats, err := New(db, root, testLogger()).Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesRemoved != 1 {
		t.Errorf("removed count: %+v", stats)
	}
	gone, err := db.FileByPath("src/gone.ts")
	if err != nil || gone != nil {
		t.Errorf("deleted file still indexed: %+v, %v", gone, err)
	}
}

func TestIndexBadFileDoesNotAbortRun(t *testing.T) {
	root, db := setupProject(t)
	writeFile(t, root, "src/good.ts", "export function fine() {}\n")
	writeFile(t, root, "src/broken.ts", "export function broken( {\n")

	stats, err := New(db, root, testLogger()).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("run aborted on bad file: %v", err)
	}
	if stats.FilesIndexed != 2 {
		t.Errorf("both files should persist: %+v", stats)
	}
	if stats.FilesPartial != 1 {
		t.Errorf("broken file should be partial: %+v", stats)
	}

	broken, err := db.FileByPath("src/broken.ts")
	if err != nil || broken == nil || !broken.Partial {
		t.Errorf("partial flag: %+v, %v", broken, err)
	}
}

func TestIndexSymbolIdsStableAcrossRuns(t *testing.T) {
	root, db := setupProject(t)
	writeFile(t, root, "src/a.ts", "export function stable() {}\n")

	if _, err := New(db, root, testLogger()).Run(context.Background(), Options{}); err != nil {
		t.Fatal(err)
	}
	rec, _ := db.FileByPath("src/a.ts")
	first, err := db.SymbolsByFile(rec.Id)
	if err != nil || len(first) == 0 {
		t.Fatal(err)
	}

	// Touch the file to force re-parsing with identical content semantics.
	writeFile(t, root, "src/a.ts", "export function stable() {}\n// trailing\n")
	if _, err := New(db, root, testLogger()).Run(context.Background(), Options{}); err != nil {
		t.Fatal(err)
	}
	second, err := db.SymbolsByFile(rec.Id)
	if err != nil || len(second) == 0 {
		t.Fatal(err)
	}
	if first[0].Id != second[0].Id {
		t.Error("symbol id changed across runs for identical declaration")
	}
}

func TestIndexLanguageFilter(t *testing.T) {
	root, db := setupProject(t)
	writeFile(t, root, "src/a.ts", "export const a = 1;\n")
	writeFile(t, root, "src/lib.rs", "pub fn f() {}\n")

	stats, err := New(db, root, testLogger()).Run(context.Background(), Options{
		Languages: []model.Language{model.LangRust},
	})
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesSeen != 1 || stats.FilesIndexed != 1 {
		t.Errorf("language filter: %+v", stats)
	}
}

func TestIndexCancellation(t *testing.T) {
	root, db := setupProject(t)
	writeFile(t, root, "src/a.ts", "export const a = 1;\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(db, root, testLogger()).Run(ctx, Options{})
	if err == nil {
		t.Error("cancelled run should return an error")
	}
}
