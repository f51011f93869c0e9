package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"statik/internal/model"
)

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

func paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestDiscoverSupportedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/index.ts", "export const x = 1;")
	writeFile(t, root, "src/App.jsx", "export default () => null;")
	writeFile(t, root, "src/main.rs", "fn main() {}")
	writeFile(t, root, "src/Main.java", "public class Main {}")
	writeFile(t, root, "README.md", "# readme")
	writeFile(t, root, "script.py", "print(1)")

	files, err := Discover(root, Options{})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	got := paths(files)
	want := []string{"src/App.jsx", "src/Main.java", "src/index.ts", "src/main.rs"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q (results must be sorted by path)", i, got[i], want[i])
		}
	}
}

func TestDiscoverLanguageDetection(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "")
	writeFile(t, root, "b.mjs", "")
	files, err := Discover(root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	byPath := map[string]model.Language{}
	for _, f := range files {
		byPath[f.Path] = f.Language
	}
	if byPath["a.ts"] != model.LangTypeScript {
		t.Errorf("a.ts language = %s", byPath["a.ts"])
	}
	if byPath["b.mjs"] != model.LangJavaScript {
		t.Errorf("b.mjs language = %s", byPath["b.mjs"])
	}
}

func TestDiscoverRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n*.gen.ts\n")
	writeFile(t, root, "src/app.ts", "")
	writeFile(t, root, "src/api.gen.ts", "")
	writeFile(t, root, "generated/types.ts", "")

	files, err := Discover(root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got := paths(files)
	if len(got) != 1 || got[0] != "src/app.ts" {
		t.Errorf("gitignore not honoured, got %v", got)
	}
}

func TestDiscoverSkipsWellKnownDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.ts", "")
	writeFile(t, root, "node_modules/pkg/index.js", "")
	writeFile(t, root, "target/debug/build.rs", "")
	writeFile(t, root, ".statik/cache.ts", "")

	files, err := Discover(root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got := paths(files)
	if len(got) != 1 || got[0] != "src/app.ts" {
		t.Errorf("expected only src/app.ts, got %v", got)
	}
}

func TestDiscoverIncludeExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.ts", "")
	writeFile(t, root, "src/b.ts", "")
	writeFile(t, root, "lib/c.ts", "")

	files, err := Discover(root, Options{Include: []string{"src/**"}, Exclude: []string{"src/b.ts"}})
	if err != nil {
		t.Fatal(err)
	}
	got := paths(files)
	if len(got) != 1 || got[0] != "src/a.ts" {
		t.Errorf("include/exclude globs not applied, got %v", got)
	}
}

func TestDiscoverLanguageFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.ts", "")
	writeFile(t, root, "src/b.rs", "")

	files, err := Discover(root, Options{Languages: []model.Language{model.LangRust}})
	if err != nil {
		t.Fatal(err)
	}
	got := paths(files)
	if len(got) != 1 || got[0] != "src/b.rs" {
		t.Errorf("language filter not applied, got %v", got)
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "export const x = 1;")
	first, err := Discover(root, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Unchanged content: identical fingerprint.
	second, err := Discover(root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first[0].Fingerprint != second[0].Fingerprint {
		t.Error("fingerprint changed without content change")
	}

	writeFile(t, root, "a.ts", "export const x = 2;")
	third, err := Discover(root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first[0].Fingerprint == third[0].Fingerprint {
		t.Error("fingerprint did not change with content change")
	}
}
