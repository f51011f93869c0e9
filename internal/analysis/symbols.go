package analysis

import (
	"sort"
	"strconv"

	staterr "statik/internal/errors"
	"statik/internal/model"
	"statik/internal/storage"
)

// SymbolInfo is one symbol table row for output.
type SymbolInfo struct {
	Name          string           `json:"name"`
	QualifiedName string           `json:"qualifiedName"`
	Kind          model.SymbolKind `json:"kind"`
	Path          string           `json:"path"`
	Line          int              `json:"line"`
	Visibility    model.Visibility `json:"visibility"`
	Signature     string           `json:"signature,omitempty"`
}

// SymbolQuery filters the symbol table.
type SymbolQuery struct {
	File string // project-relative path
	Name string
	Kind string
}

// Symbols looks up the symbol table by file, name, and kind.
func Symbols(db *storage.DB, q SymbolQuery) ([]SymbolInfo, error) {
	var symbols []model.Symbol
	var err error

	switch {
	case q.File != "":
		file, ferr := db.FileByPath(q.File)
		if ferr != nil {
			return nil, ferr
		}
		if file == nil {
			return nil, staterr.Newf(staterr.FileNotFoundInIndex, "file not in index: %s", q.File)
		}
		symbols, err = db.SymbolsByFile(file.Id)
	case q.Name != "":
		symbols, err = db.SymbolsByName(q.Name)
	case q.Kind != "":
		kind, kerr := model.ParseSymbolKind(q.Kind)
		if kerr != nil {
			return nil, staterr.New(staterr.ConfigInvalid, kerr.Error(), kerr)
		}
		symbols, err = db.SymbolsByKind(kind)
	default:
		symbols, err = db.AllSymbols()
	}
	if err != nil {
		return nil, err
	}

	// Secondary filters compose with the primary lookup.
	if q.Kind != "" && q.File != "" || q.Kind != "" && q.Name != "" {
		kind, kerr := model.ParseSymbolKind(q.Kind)
		if kerr != nil {
			return nil, staterr.New(staterr.ConfigInvalid, kerr.Error(), kerr)
		}
		symbols = filterSymbols(symbols, func(s model.Symbol) bool { return s.Kind == kind })
	}
	if q.Name != "" && q.File != "" {
		symbols = filterSymbols(symbols, func(s model.Symbol) bool { return s.Name == q.Name })
	}

	paths, err := filePaths(db)
	if err != nil {
		return nil, err
	}
	out := make([]SymbolInfo, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, SymbolInfo{
			Name: s.Name, QualifiedName: s.QualifiedName, Kind: s.Kind,
			Path: paths[s.File], Line: s.Line,
			Visibility: s.Visibility, Signature: s.Signature,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ReferenceInfo is one reference row for output.
type ReferenceInfo struct {
	Path   string        `json:"path"`
	Line   int           `json:"line"`
	Kind   model.RefKind `json:"kind"`
	Target string        `json:"target"`
}

// References returns all references to a symbol, matched by resolved id or
// by name for unresolved targets.
func References(db *storage.DB, symbolName, kindFilter, fileFilter string) ([]ReferenceInfo, error) {
	byName, err := db.ReferencesByTargetName(symbolName)
	if err != nil {
		return nil, err
	}

	// References resolved to concrete ids during parsing are matched via
	// the symbol table.
	targets, err := db.SymbolsByName(symbolName)
	if err != nil {
		return nil, err
	}
	var byId []model.Reference
	for _, target := range targets {
		refs, err := db.ReferencesByTarget(target.Id)
		if err != nil {
			return nil, err
		}
		byId = append(byId, refs...)
	}

	paths, err := filePaths(db)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []ReferenceInfo
	for _, ref := range append(byName, byId...) {
		if kindFilter != "" && string(ref.Kind) != kindFilter {
			continue
		}
		path := paths[ref.File]
		if fileFilter != "" && path != fileFilter {
			continue
		}
		key := path + "\x00" + string(ref.Kind) + "\x00" + strconv.Itoa(ref.Line)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ReferenceInfo{Path: path, Line: ref.Line, Kind: ref.Kind, Target: symbolName})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Line < out[j].Line
	})
	return out, nil
}

// Callers returns call-kind references to a symbol.
func Callers(db *storage.DB, symbolName, fileFilter string) ([]ReferenceInfo, error) {
	return References(db, symbolName, string(model.RefCall), fileFilter)
}

func filterSymbols(symbols []model.Symbol, keep func(model.Symbol) bool) []model.Symbol {
	out := symbols[:0]
	for _, s := range symbols {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func filePaths(db *storage.DB) (map[model.FileId]string, error) {
	files, err := db.AllFiles()
	if err != nil {
		return nil, err
	}
	paths := make(map[model.FileId]string, len(files))
	for _, f := range files {
		paths[f.Id] = f.Path
	}
	return paths, nil
}

