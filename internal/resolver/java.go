package resolver

import (
	"path"
	"strings"

	"statik/internal/model"
)

// javaExternalPrefixes always classify as external packages.
var javaExternalPrefixes = []string{"java.", "javax.", "jakarta."}

// JavaResolver resolves fully-qualified Java import specifiers against the
// project's source roots.
//
// Single-type imports map `a.b.C` to `<root>/a/b/C.java`; wildcard imports
// enumerate the package directory, one resolution per file; static imports
// fall back to the enclosing type after stripping the member segment.
type JavaResolver struct {
	ctx *ProjectContext
}

// NewJavaResolver creates a resolver over the project context.
func NewJavaResolver(ctx *ProjectContext) *JavaResolver {
	return &JavaResolver{ctx: ctx}
}

// Languages implements Resolver.
func (r *JavaResolver) Languages() []model.Language {
	return []model.Language{model.LangJava}
}

// Resolve implements Resolver.
func (r *JavaResolver) Resolve(imp model.ImportRecord, origin string) []model.Resolution {
	fqn := imp.Specifier
	if fqn == "" {
		return []model.Resolution{model.Unresolved(model.UnresolvedUnsupportedSyntax, "empty import")}
	}

	if r.isExternal(fqn) {
		return []model.Resolution{model.External(topSegment(fqn))}
	}

	if isWildcard(imp) {
		return r.resolveWildcard(fqn)
	}

	// Exact class, then static-import member fallback.
	if resolved, ok := r.resolveFqn(fqn); ok {
		return []model.Resolution{model.Resolved(resolved)}
	}
	if idx := strings.LastIndex(fqn, "."); idx > 0 {
		if resolved, ok := r.resolveFqn(fqn[:idx]); ok {
			return []model.Resolution{model.Resolved(resolved)}
		}
	}

	return []model.Resolution{model.Unresolved(model.UnresolvedClasspath, fqn)}
}

func isWildcard(imp model.ImportRecord) bool {
	for _, n := range imp.Names {
		if n.Kind == model.ImportWildcard {
			return true
		}
	}
	return false
}

// resolveFqn probes each source root for <root>/a/b/C.java.
func (r *JavaResolver) resolveFqn(fqn string) (string, bool) {
	rel := strings.ReplaceAll(fqn, ".", "/") + ".java"
	for _, root := range r.ctx.JavaSourceRoots {
		candidate := rel
		if root != "." {
			candidate = path.Join(root, rel)
		}
		if r.ctx.HasFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// resolveWildcard enumerates .java files in the package directory under any
// matching source root: one resolution per file.
func (r *JavaResolver) resolveWildcard(pkg string) []model.Resolution {
	dir := strings.ReplaceAll(pkg, ".", "/")
	var out []model.Resolution
	for _, root := range r.ctx.JavaSourceRoots {
		candidate := dir
		if root != "." {
			candidate = path.Join(root, dir)
		}
		for _, f := range r.ctx.FilesInDir(candidate) {
			if strings.HasSuffix(f, ".java") {
				out = append(out, model.Resolved(f))
			}
		}
	}
	if len(out) == 0 {
		return []model.Resolution{model.Unresolved(model.UnresolvedClasspath, pkg+".*")}
	}
	return out
}

func (r *JavaResolver) isExternal(fqn string) bool {
	for _, prefix := range javaExternalPrefixes {
		if strings.HasPrefix(fqn, prefix) {
			return true
		}
	}
	top := topSegment(fqn)
	for _, prefix := range r.ctx.ExternalPrefixes {
		if top == prefix || fqn == prefix || strings.HasPrefix(fqn, prefix+".") {
			return true
		}
	}
	return false
}

func topSegment(fqn string) string {
	if idx := strings.Index(fqn, "."); idx > 0 {
		return fqn[:idx]
	}
	return fqn
}
