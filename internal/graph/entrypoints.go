package graph

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"statik/internal/config"
	"statik/internal/model"
)

// defaultEntryAnnotations mark Java files as entry points when applied.
var defaultEntryAnnotations = []string{
	"SpringBootApplication", "Test", "ParameterizedTest", "RepeatedTest",
	"Component", "Service", "Repository", "Controller", "RestController",
	"Configuration", "Bean", "Endpoint", "WebServlet",
}

// entryPointClassifier decides file roots for reachability analyses.
type entryPointClassifier struct {
	cfg         *config.Config
	annotations map[string]bool
}

func newEntryPointClassifier(cfg *config.Config) *entryPointClassifier {
	annotations := make(map[string]bool, len(defaultEntryAnnotations))
	for _, a := range defaultEntryAnnotations {
		annotations[a] = true
	}
	for _, a := range cfg.EntryPoints.Annotations {
		annotations[a] = true
	}
	return &entryPointClassifier{cfg: cfg, annotations: annotations}
}

// isEntryPoint classifies one file. usedAnnotations holds the annotation
// names applied inside the file (Java).
func (c *entryPointClassifier) isEntryPoint(rec model.FileRecord, scopeRole string, usedAnnotations map[string]bool) bool {
	if scopeRole == "entry_point" {
		return true
	}
	for _, pattern := range c.cfg.EntryPoints.Patterns {
		if ok, err := doublestar.Match(pattern, rec.Path); err == nil && ok {
			return true
		}
	}

	base := path.Base(rec.Path)
	stem := strings.TrimSuffix(base, path.Ext(base))

	switch rec.Language {
	case model.LangTypeScript, model.LangJavaScript:
		// Conventional roots plus test files.
		if !strings.Contains(rec.Path, "/") && (stem == "index" || stem == "main") {
			return true
		}
		if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
			return true
		}
		if strings.HasSuffix(stem, ".test") || strings.HasSuffix(stem, ".spec") {
			return true
		}
	case model.LangJava:
		if strings.HasSuffix(stem, "Test") || strings.HasPrefix(stem, "Test") ||
			strings.HasSuffix(stem, "IT") || stem == "Application" {
			return true
		}
		for name := range usedAnnotations {
			if c.annotations[name] {
				return true
			}
		}
	case model.LangRust:
		if base == "main.rs" || base == "lib.rs" || base == "build.rs" {
			return true
		}
		for _, dir := range []string{"src/bin/", "tests/", "examples/", "benches/"} {
			if strings.HasPrefix(rec.Path, dir) || strings.Contains(rec.Path, "/"+dir) {
				return true
			}
		}
	}
	return false
}

// classifySourceSet assigns the first matching scope in name order; files
// matching no scope belong to the default set.
func classifySourceSet(cfg *config.Config, scopeNames []string, relPath string) (string, config.ScopeConfig) {
	for _, name := range scopeNames {
		scope := cfg.Scopes[name]
		if matchScope(scope, relPath) {
			return name, scope
		}
	}
	return model.DefaultSourceSet, config.ScopeConfig{}
}

func matchScope(scope config.ScopeConfig, relPath string) bool {
	included := false
	for _, pattern := range scope.Include {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range scope.Exclude {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return false
		}
	}
	return true
}
