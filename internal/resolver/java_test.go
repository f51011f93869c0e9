package resolver

import (
	"testing"

	"statik/internal/model"
)

func javaContext(files ...string) *ProjectContext {
	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f] = true
	}
	return &ProjectContext{
		Root:            "/project",
		KnownFiles:      known,
		JavaSourceRoots: detectJavaSourceRoots(known),
		CargoDeps:       map[string]bool{},
	}
}

func javaImport(fqn string) model.ImportRecord {
	simple := fqn
	if idx := lastDot(fqn); idx >= 0 {
		simple = fqn[idx+1:]
	}
	return model.ImportRecord{
		Specifier: fqn,
		Names:     []model.ImportedName{{Kind: model.ImportNamed, Name: simple}},
		Line:      1,
	}
}

func javaWildcard(pkg string) model.ImportRecord {
	return model.ImportRecord{
		Specifier: pkg,
		Names:     []model.ImportedName{{Kind: model.ImportWildcard}},
		Line:      1,
	}
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func TestJavaResolveSingleType(t *testing.T) {
	r := NewJavaResolver(javaContext(
		"src/main/java/com/example/App.java",
		"src/main/java/com/example/UserService.java",
	))
	got := singleResolution(t, r, javaImport("com.example.UserService"), "src/main/java/com/example/App.java")
	if got.Kind != model.ResolutionResolved || got.Path != "src/main/java/com/example/UserService.java" {
		t.Errorf("single-type import: %+v", got)
	}
}

func TestJavaResolveAcrossSourceRoots(t *testing.T) {
	r := NewJavaResolver(javaContext(
		"src/main/java/com/example/App.java",
		"src/test/java/com/example/AppTest.java",
	))
	got := singleResolution(t, r, javaImport("com.example.AppTest"), "src/main/java/com/example/App.java")
	if got.Kind != model.ResolutionResolved || got.Path != "src/test/java/com/example/AppTest.java" {
		t.Errorf("test-root resolution: %+v", got)
	}
}

func TestJavaResolveFlatProjectRoot(t *testing.T) {
	r := NewJavaResolver(javaContext("com/example/App.java", "com/example/Util.java"))
	got := singleResolution(t, r, javaImport("com.example.Util"), "com/example/App.java")
	if got.Kind != model.ResolutionResolved || got.Path != "com/example/Util.java" {
		t.Errorf("flat-root resolution: %+v", got)
	}
}

func TestJavaResolveStaticImportMemberFallback(t *testing.T) {
	r := NewJavaResolver(javaContext("src/main/java/com/example/Constants.java"))
	got := singleResolution(t, r, javaImport("com.example.Constants.MAX_SIZE"), "src/main/java/com/other/C.java")
	if got.Kind != model.ResolutionResolved || got.Path != "src/main/java/com/example/Constants.java" {
		t.Errorf("static import fallback: %+v", got)
	}
}

func TestJavaResolveWildcardEnumeratesPackage(t *testing.T) {
	r := NewJavaResolver(javaContext(
		"src/main/java/com/example/A.java",
		"src/main/java/com/example/B.java",
		"src/main/java/com/example/sub/C.java",
		"src/main/java/com/other/D.java",
	))
	res := r.Resolve(javaWildcard("com.example"), "src/main/java/com/other/D.java")
	if len(res) != 2 {
		t.Fatalf("wildcard should enumerate package files (non-recursive): %+v", res)
	}
	paths := map[string]bool{}
	for _, r := range res {
		if r.Kind != model.ResolutionResolved {
			t.Errorf("wildcard resolution kind: %+v", r)
		}
		paths[r.Path] = true
	}
	if !paths["src/main/java/com/example/A.java"] || !paths["src/main/java/com/example/B.java"] {
		t.Errorf("wildcard paths: %v", paths)
	}
}

func TestJavaResolveExternalPrefixes(t *testing.T) {
	r := NewJavaResolver(javaContext("src/main/java/com/example/App.java"))
	for _, fqn := range []string{"java.util.List", "javax.inject.Inject", "jakarta.ws.rs.GET"} {
		got := singleResolution(t, r, javaImport(fqn), "src/main/java/com/example/App.java")
		if got.Kind != model.ResolutionExternal {
			t.Errorf("%s should be external: %+v", fqn, got)
		}
	}
}

func TestJavaResolveConfiguredExternalPrefix(t *testing.T) {
	ctx := javaContext("src/main/java/com/example/App.java")
	ctx.ExternalPrefixes = []string{"org.springframework"}
	r := NewJavaResolver(ctx)
	got := singleResolution(t, r, javaImport("org.springframework.boot.SpringApplication"), "src/main/java/com/example/App.java")
	if got.Kind != model.ResolutionExternal || got.Package != "org" {
		t.Errorf("configured external prefix: %+v", got)
	}
}

func TestJavaResolveUnknownIsClasspath(t *testing.T) {
	r := NewJavaResolver(javaContext("src/main/java/com/example/App.java"))
	got := singleResolution(t, r, javaImport("com.vendor.Thing"), "src/main/java/com/example/App.java")
	if got.Kind != model.ResolutionUnresolved || got.Reason != model.UnresolvedClasspath {
		t.Errorf("unknown import: %+v", got)
	}
}
