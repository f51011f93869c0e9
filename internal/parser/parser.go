// Package parser turns source bytes into extraction records. Each language
// walks a tree-sitter CST and produces a unified set of symbols, references,
// imports, and exports. Parsers are stateless and never touch the
// persistence layer or the filesystem.
package parser

import (
	"fmt"

	"statik/internal/model"
)

// Parser extracts records from a single source file. The path feeds symbol
// ids; the TypeScript parser also picks its grammar from the extension and
// the Rust parser derives module paths from it.
type Parser interface {
	Parse(fileId model.FileId, source []byte, path string) (model.ParseResult, error)
	Languages() []model.Language
}

// Registry maps languages to parsers.
type Registry struct {
	parsers []Parser
}

// NewRegistry creates a registry with all built-in parsers.
func NewRegistry() *Registry {
	return &Registry{
		parsers: []Parser{
			NewTypeScriptParser(),
			NewJavaParser(),
			NewRustParser(),
		},
	}
}

// ForLanguage finds a parser that supports the given language.
func (r *Registry) ForLanguage(lang model.Language) (Parser, error) {
	for _, p := range r.parsers {
		for _, l := range p.Languages() {
			if l == lang {
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("no parser for language: %s", lang)
}

// Parse parses source with the parser registered for the language.
func (r *Registry) Parse(fileId model.FileId, source []byte, path string, lang model.Language) (model.ParseResult, error) {
	p, err := r.ForLanguage(lang)
	if err != nil {
		return model.ParseResult{}, err
	}
	return p.Parse(fileId, source, path)
}

// resolveLocalRefs resolves references whose textual target matches a symbol
// declared in the same file. Unmatched targets keep their name for
// cross-file resolution at query time.
func resolveLocalRefs(res *model.ParseResult) {
	byName := make(map[string]model.SymbolId, len(res.Symbols))
	for _, s := range res.Symbols {
		if _, taken := byName[s.Name]; !taken {
			byName[s.Name] = s.Id
		}
	}
	for i := range res.References {
		ref := &res.References[i]
		if ref.Target != 0 || ref.TargetName == "" {
			continue
		}
		if id, ok := byName[ref.TargetName]; ok && id != ref.Source {
			ref.Target = id
		}
	}
}
