// Package resolver turns textual import specifiers into file resolutions.
// Resolvers are pure functions of the import record, the origin file, and a
// read-only project context built once per graph construction.
package resolver

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"statik/internal/model"
)

// Resolver resolves one import record from an origin file. A resolver may
// return several resolutions for a single specifier (wildcard imports).
type Resolver interface {
	Resolve(imp model.ImportRecord, origin string) []model.Resolution
	Languages() []model.Language
}

// ProjectContext is the read-only context shared by all resolvers: the set
// of known project files plus per-language configuration.
type ProjectContext struct {
	Root string
	// KnownFiles holds every indexed project-relative path.
	KnownFiles map[string]bool

	// TypeScript: parsed tsconfig.json, if present.
	TsConfig *TsConfig

	// Java: source roots (project-relative) and external package prefixes.
	JavaSourceRoots []string
	ExternalPrefixes []string

	// Rust: crate name and dependency crates from Cargo.toml.
	CrateName string
	CargoDeps map[string]bool
}

// NewProjectContext builds the context for a project root and file set,
// reading tsconfig.json and Cargo.toml when they exist.
func NewProjectContext(root string, knownFiles []string, javaSourceRoots []string, externalPrefixes []string) *ProjectContext {
	known := make(map[string]bool, len(knownFiles))
	for _, f := range knownFiles {
		known[f] = true
	}

	ctx := &ProjectContext{
		Root:             root,
		KnownFiles:       known,
		JavaSourceRoots:  javaSourceRoots,
		ExternalPrefixes: externalPrefixes,
		CargoDeps:        map[string]bool{},
	}

	if cfg, err := LoadTsConfig(filepath.Join(root, "tsconfig.json")); err == nil {
		ctx.TsConfig = cfg
	}
	ctx.loadCargoManifest()

	if len(ctx.JavaSourceRoots) == 0 {
		ctx.JavaSourceRoots = detectJavaSourceRoots(known)
	}

	return ctx
}

// HasFile reports whether a project-relative path is indexed.
func (c *ProjectContext) HasFile(rel string) bool {
	return c.KnownFiles[rel]
}

// HasDir reports whether any known file lives under the given directory.
func (c *ProjectContext) HasDir(rel string) bool {
	prefix := strings.TrimSuffix(rel, "/") + "/"
	for f := range c.KnownFiles {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}

// FilesInDir returns the known files directly inside a directory, sorted.
func (c *ProjectContext) FilesInDir(rel string) []string {
	prefix := strings.TrimSuffix(rel, "/") + "/"
	var out []string
	for f := range c.KnownFiles {
		if strings.HasPrefix(f, prefix) && !strings.Contains(f[len(prefix):], "/") {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// cargoManifest covers the subset of Cargo.toml the Rust resolver needs.
type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Dependencies      map[string]interface{} `toml:"dependencies"`
	DevDependencies   map[string]interface{} `toml:"dev-dependencies"`
	BuildDependencies map[string]interface{} `toml:"build-dependencies"`
}

func (c *ProjectContext) loadCargoManifest() {
	data, err := os.ReadFile(filepath.Join(c.Root, "Cargo.toml"))
	if err != nil {
		return
	}
	var manifest cargoManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return
	}
	// Cargo normalizes hyphens to underscores for crate names.
	c.CrateName = strings.ReplaceAll(manifest.Package.Name, "-", "_")
	for _, deps := range []map[string]interface{}{
		manifest.Dependencies, manifest.DevDependencies, manifest.BuildDependencies,
	} {
		for name := range deps {
			c.CargoDeps[strings.ReplaceAll(name, "-", "_")] = true
		}
	}
}

// standardJavaSourceRoots are probed in order when no roots are configured.
var standardJavaSourceRoots = []string{"src/main/java", "src/test/java", "src/java"}

func detectJavaSourceRoots(known map[string]bool) []string {
	var roots []string
	for _, root := range standardJavaSourceRoots {
		prefix := root + "/"
		for f := range known {
			if strings.HasPrefix(f, prefix) {
				roots = append(roots, root)
				break
			}
		}
	}
	if len(roots) == 0 {
		roots = append(roots, ".")
	}
	return roots
}

// Registry maps languages to resolvers over a shared context.
type Registry struct {
	resolvers []Resolver
}

// NewRegistry creates a registry with all built-in resolvers.
func NewRegistry(ctx *ProjectContext) *Registry {
	return &Registry{
		resolvers: []Resolver{
			NewTypeScriptResolver(ctx),
			NewJavaResolver(ctx),
			NewRustResolver(ctx),
		},
	}
}

// ForLanguage finds the resolver for a language, or nil.
func (r *Registry) ForLanguage(lang model.Language) Resolver {
	for _, res := range r.resolvers {
		for _, l := range res.Languages() {
			if l == lang {
				return res
			}
		}
	}
	return nil
}

// normalizePath resolves `.` and `..` without touching the filesystem.
func normalizePath(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
