package resolver

import (
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"statik/internal/model"
)

// tsExtensions are probed in order when a specifier has no resolving
// extension of its own.
var tsExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs"}

// tsIndexFiles are probed in order when a specifier names a directory.
var tsIndexFiles = []string{"index.ts", "index.tsx", "index.d.ts", "index.js", "index.jsx", "index.mjs", "index.cjs"}

// TypeScriptResolver resolves TypeScript/JavaScript import specifiers.
//
// Handles relative imports, directory/index resolution, tsconfig paths
// aliases, and bare-specifier external detection. node_modules is never
// probed.
type TypeScriptResolver struct {
	ctx *ProjectContext
	// cache memoizes resolutions per (origin directory, specifier); many
	// files import the same module from the same directory level.
	cache *lru.Cache[string, []model.Resolution]
}

// NewTypeScriptResolver creates a resolver over the project context.
func NewTypeScriptResolver(ctx *ProjectContext) *TypeScriptResolver {
	cache, _ := lru.New[string, []model.Resolution](4096)
	return &TypeScriptResolver{ctx: ctx, cache: cache}
}

// Languages implements Resolver.
func (r *TypeScriptResolver) Languages() []model.Language {
	return []model.Language{model.LangTypeScript, model.LangJavaScript}
}

// Resolve implements Resolver.
func (r *TypeScriptResolver) Resolve(imp model.ImportRecord, origin string) []model.Resolution {
	specifier := imp.Specifier

	// A dynamic import whose argument was not a string literal has no
	// specifier to resolve.
	if imp.Dynamic && specifier == "" {
		return []model.Resolution{model.Unresolved(model.UnresolvedDynamicPath, "non-literal import() argument")}
	}
	if specifier == "" {
		return []model.Resolution{model.Unresolved(model.UnresolvedUnsupportedSyntax, "empty import specifier")}
	}

	key := path.Dir(origin) + "\x00" + specifier
	if cached, ok := r.cache.Get(key); ok {
		return cached
	}
	result := r.resolve(specifier, origin)
	r.cache.Add(key, result)
	return result
}

func (r *TypeScriptResolver) resolve(specifier, origin string) []model.Resolution {
	// Step 1: relative imports.
	if strings.HasPrefix(specifier, ".") {
		base := normalizePath(path.Join(path.Dir(origin), specifier))
		if resolved, ok := r.probe(base); ok {
			return []model.Resolution{model.Resolved(resolved)}
		}
		return []model.Resolution{model.Unresolved(model.UnresolvedFileNotFound, specifier)}
	}

	// Step 2: tsconfig paths aliases.
	if candidates, matched := r.ctx.TsConfig.ResolveAlias(specifier); matched > 0 {
		caveat := model.CaveatPathAlias
		if len(candidates) > 1 {
			caveat = model.CaveatAmbiguousIndex
		}
		for _, candidate := range candidates {
			if resolved, ok := r.probe(normalizePath(candidate)); ok {
				return []model.Resolution{model.ResolvedWithCaveat(resolved, caveat)}
			}
		}
		// Alias matched but nothing resolved: fall through to bare handling
		// only for genuinely bare specifiers.
	}

	// Step 3: bare specifiers are external packages; no node_modules probing.
	if !strings.HasPrefix(specifier, "/") {
		return []model.Resolution{model.External(tsPackageName(specifier))}
	}

	return []model.Resolution{model.Unresolved(model.UnresolvedUnsupportedSyntax, "unrecognized import pattern: "+specifier)}
}

// probe tries the path as-is, with each extension, then as a directory with
// index files.
func (r *TypeScriptResolver) probe(base string) (string, bool) {
	if r.ctx.HasFile(base) && path.Ext(base) != "" {
		return base, true
	}
	for _, ext := range tsExtensions {
		candidate := base + ext
		if r.ctx.HasFile(candidate) {
			return candidate, true
		}
	}
	for _, index := range tsIndexFiles {
		candidate := path.Join(base, index)
		if r.ctx.HasFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// tsPackageName extracts the package name of a bare specifier:
// "lodash/debounce" -> "lodash", "@scope/pkg/sub" -> "@scope/pkg".
func tsPackageName(specifier string) string {
	parts := strings.Split(specifier, "/")
	if strings.HasPrefix(specifier, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}
