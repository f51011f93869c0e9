package parser

import (
	"testing"

	"statik/internal/model"
)

func parseJava(t *testing.T, source string) model.ParseResult {
	t.Helper()
	p := NewJavaParser()
	res, err := p.Parse(model.NewFileId("src/main/java/com/example/App.java"), []byte(source), "src/main/java/com/example/App.java")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return res
}

func TestJavaClassWithPackage(t *testing.T) {
	src := `package com.example;

public class App {
    private String name;

    public String getName() { return name; }
}
`
	res := parseJava(t, src)

	cls := findSymbol(res, "App", model.KindClass)
	if cls == nil {
		t.Fatal("class not extracted")
	}
	if cls.QualifiedName != "com.example.App" {
		t.Errorf("qualified name = %q", cls.QualifiedName)
	}
	if cls.Visibility != model.VisPublic {
		t.Errorf("visibility = %s", cls.Visibility)
	}

	m := findSymbol(res, "getName", model.KindMethod)
	if m == nil {
		t.Fatal("method not extracted")
	}
	if m.QualifiedName != "com.example.App.getName" {
		t.Errorf("method qualified name = %q", m.QualifiedName)
	}
	if m.Parent != cls.Id {
		t.Error("method parent is not the class")
	}

	field := findSymbol(res, "name", model.KindVariable)
	if field == nil || field.Visibility != model.VisPrivate {
		t.Errorf("field: %+v", field)
	}

	if findExport(res, "App") == nil {
		t.Error("public top-level type should be an export")
	}
}

func TestJavaPackagePrivateVisibility(t *testing.T) {
	res := parseJava(t, "package com.example;\nclass Helper {}\n")
	sym := findSymbol(res, "Helper", model.KindClass)
	if sym == nil {
		t.Fatal("class not extracted")
	}
	if sym.Visibility != model.VisPackagePrivate {
		t.Errorf("no-modifier visibility = %s, want package_private", sym.Visibility)
	}
	if findExport(res, "Helper") != nil {
		t.Error("package-private type must not be a project-wide export")
	}
}

func TestJavaImports(t *testing.T) {
	src := `package com.other;

import com.example.UserService;
import com.example.util.*;
import static com.example.Constants.MAX_SIZE;

public class C {}
`
	res := parseJava(t, src)
	if len(res.Imports) != 3 {
		t.Fatalf("imports = %d: %+v", len(res.Imports), res.Imports)
	}

	single := res.Imports[0]
	if single.Specifier != "com.example.UserService" || single.Names[0].Name != "UserService" {
		t.Errorf("single-type import: %+v", single)
	}

	wildcard := res.Imports[1]
	if wildcard.Specifier != "com.example.util" || wildcard.Names[0].Kind != model.ImportWildcard {
		t.Errorf("wildcard import: %+v", wildcard)
	}

	static := res.Imports[2]
	if static.Specifier != "com.example.Constants.MAX_SIZE" {
		t.Errorf("static import: %+v", static)
	}
}

func TestJavaEnumAndVariants(t *testing.T) {
	src := `package com.example;
public enum Status { ACTIVE, INACTIVE }
`
	res := parseJava(t, src)
	if findSymbol(res, "Status", model.KindEnum) == nil {
		t.Fatal("enum not extracted")
	}
	if findSymbol(res, "ACTIVE", model.KindEnumVariant) == nil {
		t.Error("enum constant not extracted")
	}
}

func TestJavaAnnotationAndRecord(t *testing.T) {
	src := `package com.example;
public @interface Marker {}
`
	res := parseJava(t, src)
	if findSymbol(res, "Marker", model.KindAnnotation) == nil {
		t.Error("annotation type not extracted")
	}

	res = parseJava(t, "package com.example;\npublic record Point(int x, int y) {}\n")
	if findSymbol(res, "Point", model.KindRecord) == nil {
		t.Error("record not extracted")
	}
}

func TestJavaStaticFinalIsConstant(t *testing.T) {
	src := `package com.example;
public class Config {
    public static final int MAX = 10;
    private int current;
}
`
	res := parseJava(t, src)
	if findSymbol(res, "MAX", model.KindConstant) == nil {
		t.Error("static final field should be a constant")
	}
	if findSymbol(res, "current", model.KindVariable) == nil {
		t.Error("instance field should be a variable")
	}
}

func TestJavaInheritanceRefs(t *testing.T) {
	src := `package com.example;
public class Impl extends Base implements Runnable {}
`
	res := parseJava(t, src)
	var targets []string
	for _, ref := range res.References {
		if ref.Kind == model.RefInheritance {
			targets = append(targets, ref.TargetName)
		}
	}
	if len(targets) != 2 {
		t.Fatalf("inheritance refs = %v", targets)
	}
}

func TestJavaAnnotationUsageIsTypeUsage(t *testing.T) {
	src := `package com.example;
@Deprecated
public class Old {
    @Override
    public String toString() { return ""; }
}
`
	res := parseJava(t, src)
	seen := map[string]bool{}
	for _, ref := range res.References {
		if ref.Kind == model.RefTypeUsage {
			seen[ref.TargetName] = true
		}
	}
	if !seen["Deprecated"] || !seen["Override"] {
		t.Errorf("annotation usages missing: %v", seen)
	}
}

func TestJavaMethodBodyReferences(t *testing.T) {
	src := `package com.example;
public class Service {
    public void run() {
        Repository repo = new Repository();
        repo.save();
    }
}
`
	res := parseJava(t, src)
	var calls, typeUses []string
	for _, ref := range res.References {
		switch ref.Kind {
		case model.RefCall:
			calls = append(calls, ref.TargetName)
		case model.RefTypeUsage:
			typeUses = append(typeUses, ref.TargetName)
		}
	}
	if !contains(calls, "Repository") || !contains(calls, "save") {
		t.Errorf("calls = %v", calls)
	}
	if !contains(typeUses, "Repository") {
		t.Errorf("local variable type usage missing: %v", typeUses)
	}
}

func TestJavaNestedTypeExportChain(t *testing.T) {
	src := `package com.example;
public class Outer {
    public static class Inner {}
    private static class Hidden {}
}
`
	res := parseJava(t, src)
	if findExport(res, "Inner") == nil {
		t.Error("public nested type with public chain should be an export")
	}
	if findExport(res, "Hidden") != nil {
		t.Error("private nested type must not be an export")
	}
	inner := findSymbol(res, "Inner", model.KindClass)
	if inner == nil || inner.QualifiedName != "com.example.Outer.Inner" {
		t.Errorf("nested qualified name: %+v", inner)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
