package analysis

import (
	"context"
	"sort"

	staterr "statik/internal/errors"
	"statik/internal/model"
	"statik/internal/resolver"
	"statik/internal/storage"
)

// ChangeKind classifies how an export change affects consumers.
type ChangeKind string

const (
	// ChangeBreaking removes an export whose old-side importers still exist.
	ChangeBreaking ChangeKind = "breaking"
	// ChangeExpanding adds a new export; no consumer breaks.
	ChangeExpanding ChangeKind = "expanding"
	// ChangeRestructuring moves the same name+kind between files.
	ChangeRestructuring ChangeKind = "restructuring"
	// ChangeSafe is a change no surviving importer observes, such as
	// removing an export that nothing imports.
	ChangeSafe ChangeKind = "safe"
)

// ExportChange is one export-level difference between two snapshots.
type ExportChange struct {
	Kind   ChangeKind `json:"kind"`
	Path   string     `json:"path"`
	Name   string     `json:"name"`
	Detail string     `json:"detail"`
}

// DiffSummary aggregates the comparison.
type DiffSummary struct {
	FilesAdded     int `json:"filesAdded"`
	FilesRemoved   int `json:"filesRemoved"`
	FilesChanged   int `json:"filesChanged"`
	FilesUnchanged int `json:"filesUnchanged"`
	Breaking       int `json:"breaking"`
	Expanding      int `json:"expanding"`
	Restructuring  int `json:"restructuring"`
}

// DiffResult compares two index snapshots.
type DiffResult struct {
	Changes []ExportChange `json:"changes"`
	Summary DiffSummary    `json:"summary"`
}

// exportKey identifies an export across snapshots.
type exportKey struct {
	path string
	name string
}

// consumerIndex records, per target file in the new index, which names the
// surviving importers bind. Imports are resolved through the per-language
// resolvers, so files that merely share a basename do not collide.
type consumerIndex struct {
	// names holds the Named/Default bindings per resolved target path.
	names map[string]map[string]bool
	// wildcard marks targets imported via a namespace or wildcard binding,
	// which consume every export of the file.
	wildcard map[string]bool
}

// consumes reports whether any surviving importer binds the given export of
// the target file.
func (c *consumerIndex) consumes(path, name string) bool {
	return c.wildcard[path] || c.names[path][name]
}

// Diff computes the export-surface difference between a baseline snapshot
// and the current index. A removed export is breaking only while a
// surviving importer of the file still binds that name (or the whole file,
// via a namespace/wildcard import); removals whose name+kind reappears in
// another file are restructurings. root is the project root of the current
// index, used to resolve its import specifiers.
func Diff(ctx context.Context, before, after *storage.DB, root string) (*DiffResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, staterr.New(staterr.Cancelled, "diff cancelled", err)
	}

	beforeFiles, err := before.AllFiles()
	if err != nil {
		return nil, err
	}
	afterFiles, err := after.AllFiles()
	if err != nil {
		return nil, err
	}

	beforeByPath := make(map[string]model.FileRecord, len(beforeFiles))
	for _, f := range beforeFiles {
		beforeByPath[f.Path] = f
	}
	afterByPath := make(map[string]model.FileRecord, len(afterFiles))
	for _, f := range afterFiles {
		afterByPath[f.Path] = f
	}

	// Symbol kinds keyed by (path, name) detect moves across files.
	beforeKinds, err := exportKinds(before, beforeFiles)
	if err != nil {
		return nil, err
	}
	afterKinds, err := exportKinds(after, afterFiles)
	if err != nil {
		return nil, err
	}
	afterByNameKind := make(map[string][]string) // name+kind -> paths
	for key, kind := range afterKinds {
		afterByNameKind[key.name+"\x00"+string(kind)] = append(afterByNameKind[key.name+"\x00"+string(kind)], key.path)
	}

	// Surviving importers in the new index decide whether a removal breaks.
	consumers, err := buildConsumerIndex(after, afterFiles, root)
	if err != nil {
		return nil, err
	}

	result := &DiffResult{}
	allPaths := make(map[string]bool)
	for p := range beforeByPath {
		allPaths[p] = true
	}
	for p := range afterByPath {
		allPaths[p] = true
	}

	for path := range allPaths {
		beforeRec, inBefore := beforeByPath[path]
		afterRec, inAfter := afterByPath[path]

		switch {
		case !inBefore:
			result.Summary.FilesAdded++
			exports, err := after.ExportsByFile(afterRec.Id)
			if err != nil {
				return nil, err
			}
			for _, exp := range exports {
				result.Changes = append(result.Changes, ExportChange{
					Kind: ChangeExpanding, Path: path, Name: exp.Name, Detail: "new file",
				})
			}
		case !inAfter:
			result.Summary.FilesRemoved++
			exports, err := before.ExportsByFile(beforeRec.Id)
			if err != nil {
				return nil, err
			}
			for _, exp := range exports {
				result.Changes = append(result.Changes, classifyRemoval(path, exp.Name, beforeKinds, afterByNameKind, consumers))
			}
		default:
			changed, err := diffFile(before, after, beforeRec, afterRec, path, beforeKinds, afterByNameKind, consumers, result)
			if err != nil {
				return nil, err
			}
			if changed {
				result.Summary.FilesChanged++
			} else {
				result.Summary.FilesUnchanged++
			}
		}
	}

	sort.Slice(result.Changes, func(i, j int) bool {
		a, b := result.Changes[i], result.Changes[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Name < b.Name
	})
	for _, c := range result.Changes {
		switch c.Kind {
		case ChangeBreaking:
			result.Summary.Breaking++
		case ChangeExpanding:
			result.Summary.Expanding++
		case ChangeRestructuring:
			result.Summary.Restructuring++
		}
	}
	return result, nil
}

// buildConsumerIndex resolves every import in the new index to its target
// file and records the bound names per target.
func buildConsumerIndex(after *storage.DB, files []model.FileRecord, root string) (*consumerIndex, error) {
	imports, err := after.AllImports()
	if err != nil {
		return nil, err
	}

	knownPaths := make([]string, 0, len(files))
	langByPath := make(map[string]model.Language, len(files))
	for _, f := range files {
		knownPaths = append(knownPaths, f.Path)
		langByPath[f.Path] = f.Language
	}
	ctx := resolver.NewProjectContext(root, knownPaths, nil, nil)
	resolvers := resolver.NewRegistry(ctx)

	index := &consumerIndex{
		names:    make(map[string]map[string]bool),
		wildcard: make(map[string]bool),
	}
	for _, rec := range files {
		res := resolvers.ForLanguage(rec.Language)
		if res == nil {
			continue
		}
		for _, imp := range imports[rec.Id] {
			for _, resolution := range res.Resolve(imp, rec.Path) {
				if !resolution.IsResolved() {
					continue
				}
				target := resolution.Path
				for _, n := range imp.Names {
					switch n.Kind {
					case model.ImportNamed:
						if index.names[target] == nil {
							index.names[target] = make(map[string]bool)
						}
						index.names[target][n.Name] = true
					case model.ImportDefault:
						if index.names[target] == nil {
							index.names[target] = make(map[string]bool)
						}
						index.names[target]["default"] = true
					case model.ImportNamespace, model.ImportWildcard:
						index.wildcard[target] = true
					}
				}
			}
		}
	}
	return index, nil
}

func diffFile(before, after *storage.DB, beforeRec, afterRec model.FileRecord, path string,
	beforeKinds map[exportKey]model.SymbolKind, afterByNameKind map[string][]string,
	consumers *consumerIndex, result *DiffResult) (bool, error) {

	beforeExports, err := before.ExportsByFile(beforeRec.Id)
	if err != nil {
		return false, err
	}
	afterExports, err := after.ExportsByFile(afterRec.Id)
	if err != nil {
		return false, err
	}

	beforeNames := make(map[string]bool, len(beforeExports))
	for _, exp := range beforeExports {
		beforeNames[exp.Name] = true
	}
	afterNames := make(map[string]bool, len(afterExports))
	for _, exp := range afterExports {
		afterNames[exp.Name] = true
	}

	changed := false
	for name := range beforeNames {
		if !afterNames[name] {
			result.Changes = append(result.Changes, classifyRemoval(path, name, beforeKinds, afterByNameKind, consumers))
			changed = true
		}
	}
	for name := range afterNames {
		if !beforeNames[name] {
			result.Changes = append(result.Changes, ExportChange{
				Kind: ChangeExpanding, Path: path, Name: name, Detail: "export added",
			})
			changed = true
		}
	}
	return changed, nil
}

// classifyRemoval decides whether a removed export is restructuring (the
// same name+kind exists in another file now), breaking (a surviving
// importer still binds the name), or safe (nothing imports it any more).
func classifyRemoval(path, name string, beforeKinds map[exportKey]model.SymbolKind,
	afterByNameKind map[string][]string, consumers *consumerIndex) ExportChange {

	if kind, ok := beforeKinds[exportKey{path: path, name: name}]; ok {
		if paths := afterByNameKind[name+"\x00"+string(kind)]; len(paths) > 0 {
			sort.Strings(paths)
			return ExportChange{
				Kind: ChangeRestructuring, Path: path, Name: name,
				Detail: "moved to " + paths[0],
			}
		}
	}
	if consumers.consumes(path, name) {
		return ExportChange{Kind: ChangeBreaking, Path: path, Name: name, Detail: "export removed"}
	}
	return ExportChange{Kind: ChangeSafe, Path: path, Name: name, Detail: "export removed, no remaining importers"}
}

// exportKinds maps each exported (path, name) to its symbol kind.
func exportKinds(db *storage.DB, files []model.FileRecord) (map[exportKey]model.SymbolKind, error) {
	out := make(map[exportKey]model.SymbolKind)
	for _, f := range files {
		exports, err := db.ExportsByFile(f.Id)
		if err != nil {
			return nil, err
		}
		if len(exports) == 0 {
			continue
		}
		symbols, err := db.SymbolsByFile(f.Id)
		if err != nil {
			return nil, err
		}
		kinds := make(map[model.SymbolId]model.SymbolKind, len(symbols))
		for _, s := range symbols {
			kinds[s.Id] = s.Kind
		}
		for _, exp := range exports {
			if kind, ok := kinds[exp.Symbol]; ok {
				out[exportKey{path: f.Path, name: exp.Name}] = kind
			}
		}
	}
	return out, nil
}
