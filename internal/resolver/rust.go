package resolver

import (
	"path"
	"sort"
	"strings"

	"statik/internal/model"
)

// rustStdlibCrates resolve as external without consulting Cargo.toml.
var rustStdlibCrates = map[string]bool{
	"std": true, "core": true, "alloc": true, "proc_macro": true, "test": true,
}

// RustResolver resolves Rust use paths and mod declarations against the
// crate's module tree.
type RustResolver struct {
	ctx  *ProjectContext
	tree *ModuleTree
}

// NewRustResolver creates a resolver over the project context.
func NewRustResolver(ctx *ProjectContext) *RustResolver {
	return &RustResolver{ctx: ctx, tree: NewModuleTree(ctx)}
}

// Languages implements Resolver.
func (r *RustResolver) Languages() []model.Language {
	return []model.Language{model.LangRust}
}

// Resolve implements Resolver.
func (r *RustResolver) Resolve(imp model.ImportRecord, origin string) []model.Resolution {
	spec := imp.Specifier
	if spec == "" {
		return []model.Resolution{model.Unresolved(model.UnresolvedUnsupportedSyntax, "empty use path")}
	}

	// `mod foo;` declarations probe foo.rs / foo/mod.rs next to the origin.
	if name, ok := strings.CutPrefix(spec, "@mod:"); ok {
		return []model.Resolution{r.tree.ResolveMod(name, origin)}
	}

	// `extern crate foo;`
	if name, ok := strings.CutPrefix(spec, "extern::"); ok {
		return []model.Resolution{model.External(name)}
	}

	first := spec
	if idx := strings.Index(spec, "::"); idx >= 0 {
		first = spec[:idx]
	}

	switch {
	case first == "crate" || (r.ctx.CrateName != "" && first == r.ctx.CrateName):
		return []model.Resolution{r.tree.ResolveFromCrateRoot(strings.TrimPrefix(strings.TrimPrefix(spec, first), "::"), origin)}
	case first == "super":
		return []model.Resolution{r.tree.ResolveSuper(spec, origin)}
	case first == "self":
		return []model.Resolution{r.tree.ResolveSelf(strings.TrimPrefix(strings.TrimPrefix(spec, "self"), "::"), origin)}
	case rustStdlibCrates[first]:
		return []model.Resolution{model.External(first)}
	}

	// Relative module path: sibling module, then ancestors, then crate root.
	if res, ok := r.tree.ResolveRelative(spec, origin); ok {
		return []model.Resolution{res}
	}

	if r.ctx.CargoDeps[first] {
		return []model.Resolution{model.External(first)}
	}

	return []model.Resolution{model.Unresolved(model.UnresolvedExternalCrate, spec)}
}

// ModuleTree resolves module paths against the crate layout: crate roots at
// src/lib.rs, src/main.rs and src/bin/*.rs, with children at foo.rs or
// foo/mod.rs.
type ModuleTree struct {
	ctx        *ProjectContext
	crateRoots []string
}

// NewModuleTree detects crate roots from the known file set.
func NewModuleTree(ctx *ProjectContext) *ModuleTree {
	var roots []string
	for _, candidate := range []string{"src/lib.rs", "src/main.rs"} {
		if ctx.HasFile(candidate) {
			roots = append(roots, candidate)
		}
	}
	for f := range ctx.KnownFiles {
		if strings.HasPrefix(f, "src/bin/") && strings.HasSuffix(f, ".rs") {
			roots = append(roots, f)
		}
	}
	sort.Strings(roots)
	return &ModuleTree{ctx: ctx, crateRoots: roots}
}

// ResolveMod resolves a `mod foo;` declaration relative to the declaring
// file. Both foo.rs and foo/mod.rs existing is Rust error E0761.
func (t *ModuleTree) ResolveMod(name, origin string) model.Resolution {
	dir := t.moduleDir(origin)
	rsFile := path.Join(dir, name+".rs")
	modFile := path.Join(dir, name, "mod.rs")
	hasRs := t.ctx.HasFile(rsFile)
	hasMod := t.ctx.HasFile(modFile)

	switch {
	case hasRs && hasMod:
		return model.Unresolved(model.UnresolvedAmbiguousModule, name+".rs and "+name+"/mod.rs both exist")
	case hasRs:
		return model.Resolved(rsFile)
	case hasMod:
		return model.Resolved(modFile)
	default:
		return model.Unresolved(model.UnresolvedFileNotFound, "module '"+name+"' not found as "+name+".rs or "+name+"/mod.rs")
	}
}

// moduleDir returns the directory holding a file's child modules: for
// lib.rs/main.rs/mod.rs that is the containing directory, for foo.rs it is
// foo/.
func (t *ModuleTree) moduleDir(origin string) string {
	dir := path.Dir(origin)
	stem := strings.TrimSuffix(path.Base(origin), ".rs")
	if stem == "lib" || stem == "main" || stem == "mod" {
		return dir
	}
	return path.Join(dir, stem)
}

// ResolveFromCrateRoot walks a `crate::`-stripped path from the crate root.
func (t *ModuleTree) ResolveFromCrateRoot(rest, origin string) model.Resolution {
	srcDir := t.crateSrcDir(origin)
	if srcDir == "" {
		return model.Unresolved(model.UnresolvedFileNotFound, "no crate root found for "+origin)
	}
	if rest == "" {
		for _, root := range t.crateRoots {
			if path.Dir(root) == srcDir {
				return model.Resolved(root)
			}
		}
		return model.Unresolved(model.UnresolvedFileNotFound, "crate root not indexed")
	}
	segments := strings.Split(rest, "::")
	if resolved, ok := t.walkSegments(srcDir, segments); ok && resolved != origin {
		return model.Resolved(resolved)
	}
	return model.Unresolved(model.UnresolvedFileNotFound, "crate path '"+rest+"' not found")
}

// ResolveSuper walks one or more `super::` levels up from the origin module.
func (t *ModuleTree) ResolveSuper(spec, origin string) model.Resolution {
	remaining := spec
	superCount := 0
	for {
		if rest, ok := strings.CutPrefix(remaining, "super::"); ok {
			superCount++
			remaining = rest
			continue
		}
		if remaining == "super" {
			superCount++
			remaining = ""
		}
		break
	}

	// The first super moves from the origin's module to its parent module
	// directory; each further super moves one directory up.
	dir := path.Dir(origin)
	stem := strings.TrimSuffix(path.Base(origin), ".rs")
	if stem == "mod" || stem == "lib" || stem == "main" {
		dir = path.Dir(dir)
	}
	for i := 1; i < superCount; i++ {
		if dir == "." || dir == "/" {
			break
		}
		dir = path.Dir(dir)
	}

	if remaining == "" {
		return model.Unresolved(model.UnresolvedUnsupportedSyntax, "bare super path '"+spec+"' names a module scope, not a file")
	}
	segments := strings.Split(remaining, "::")
	if resolved, ok := t.walkSegments(dir, segments); ok {
		return model.Resolved(resolved)
	}
	return model.Unresolved(model.UnresolvedFileNotFound, "super path '"+spec+"' not found")
}

// ResolveSelf walks a `self::`-stripped path relative to the origin module.
func (t *ModuleTree) ResolveSelf(rest, origin string) model.Resolution {
	if rest == "" {
		return model.Resolved(origin)
	}
	segments := strings.Split(rest, "::")
	if resolved, ok := t.walkSegments(t.moduleDir(origin), segments); ok {
		return model.Resolved(resolved)
	}
	return model.Unresolved(model.UnresolvedFileNotFound, "self path '"+rest+"' not found")
}

// ResolveRelative tries a bare module path in order against the sibling
// module scope, ancestor module scopes, and the crate root.
func (t *ModuleTree) ResolveRelative(spec, origin string) (model.Resolution, bool) {
	segments := strings.Split(spec, "::")

	dirs := []string{t.moduleDir(origin)}
	for dir := path.Dir(origin); ; dir = path.Dir(dir) {
		dirs = append(dirs, dir)
		if dir == "." || dir == "/" || dir == "" {
			break
		}
	}
	if srcDir := t.crateSrcDir(origin); srcDir != "" {
		dirs = append(dirs, srcDir)
	}

	for _, dir := range dirs {
		if resolved, ok := t.walkSegments(dir, segments); ok && resolved != origin {
			return model.Resolved(resolved), true
		}
	}
	return model.Resolution{}, false
}

// walkSegments descends path segments from a directory: each segment may be
// segment.rs, segment/mod.rs, or a plain directory. Trailing segments that
// do not correspond to files are symbol names and stop at the deepest file.
func (t *ModuleTree) walkSegments(dir string, segments []string) (string, bool) {
	current := dir
	for i, segment := range segments {
		isLast := i == len(segments)-1
		remaining := segments[i+1:]

		rsFile := path.Join(current, segment+".rs")
		if t.ctx.HasFile(rsFile) {
			if isLast {
				return rsFile, true
			}
			subDir := path.Join(current, segment)
			if t.ctx.HasDir(subDir) {
				if deeper, ok := t.walkSegments(subDir, remaining); ok {
					return deeper, true
				}
			}
			// Remaining segments are symbols inside the file.
			return rsFile, true
		}

		modFile := path.Join(current, segment, "mod.rs")
		if t.ctx.HasFile(modFile) {
			if isLast {
				return modFile, true
			}
			if deeper, ok := t.walkSegments(path.Join(current, segment), remaining); ok {
				return deeper, true
			}
			return modFile, true
		}

		subDir := path.Join(current, segment)
		if t.ctx.HasDir(subDir) {
			current = subDir
			continue
		}
		break
	}
	return "", false
}

// crateSrcDir finds the src directory of the crate root owning the origin.
func (t *ModuleTree) crateSrcDir(origin string) string {
	for _, root := range t.crateRoots {
		rootDir := path.Dir(root)
		if origin == root || strings.HasPrefix(origin, rootDir+"/") {
			return rootDir
		}
	}
	return ""
}
