// Package model defines the data model shared by the extraction pipeline,
// the persistence adapter, and the graph analyses: identifiers, symbols,
// references, import/export records, and resolver outcomes.
package model

import (
	"fmt"
	"strings"
)

// FileId identifies a file by its project-relative path.
// It is stable across re-indexing runs (see NewFileId).
type FileId uint64

// SymbolId identifies a symbol by (file path, kind, qualified name).
// It is stable across re-indexing runs (see NewSymbolId).
type SymbolId uint64

// SymbolKind classifies a declared symbol.
type SymbolKind string

const (
	KindFunction    SymbolKind = "function"
	KindMethod      SymbolKind = "method"
	KindClass       SymbolKind = "class"
	KindStruct      SymbolKind = "struct"
	KindEnum        SymbolKind = "enum"
	KindEnumVariant SymbolKind = "enum_variant"
	KindInterface   SymbolKind = "interface"
	KindTrait       SymbolKind = "trait"
	KindTypeAlias   SymbolKind = "type_alias"
	KindVariable    SymbolKind = "variable"
	KindConstant    SymbolKind = "constant"
	KindModule      SymbolKind = "module"
	KindAnnotation  SymbolKind = "annotation"
	KindPackage     SymbolKind = "package"
	KindRecord      SymbolKind = "record"
	KindMacro       SymbolKind = "macro"
)

var symbolKinds = map[string]SymbolKind{
	"function": KindFunction, "method": KindMethod, "class": KindClass,
	"struct": KindStruct, "enum": KindEnum, "enum_variant": KindEnumVariant,
	"interface": KindInterface, "trait": KindTrait, "type_alias": KindTypeAlias,
	"variable": KindVariable, "constant": KindConstant, "module": KindModule,
	"annotation": KindAnnotation, "package": KindPackage, "record": KindRecord,
	"macro": KindMacro,
}

// ParseSymbolKind parses a stored symbol kind string.
func ParseSymbolKind(s string) (SymbolKind, error) {
	if k, ok := symbolKinds[s]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown symbol kind: %q", s)
}

// RefKind classifies a reference from one symbol to another.
type RefKind string

const (
	RefCall        RefKind = "call"
	RefTypeUsage   RefKind = "type_usage"
	RefInheritance RefKind = "inheritance"
	RefFieldAccess RefKind = "field_access"
	RefAssignment  RefKind = "assignment"
	RefImport      RefKind = "import"
	RefExport      RefKind = "export"
)

// Visibility of a declared symbol.
type Visibility string

const (
	VisPublic         Visibility = "public"
	VisProtected      Visibility = "protected"
	VisPrivate        Visibility = "private"
	VisPackagePrivate Visibility = "package_private"
)

// Language of a source file.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangJava       Language = "java"
	LangRust       Language = "rust"
)

// LanguageFromExtension maps a file extension (without dot) to a language.
func LanguageFromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case "ts", "tsx", "mts", "cts":
		return LangTypeScript, true
	case "js", "jsx", "mjs", "cjs":
		return LangJavaScript, true
	case "java":
		return LangJava, true
	case "rs":
		return LangRust, true
	default:
		return "", false
	}
}

// ParseLanguage parses a stored language string.
func ParseLanguage(s string) (Language, bool) {
	switch s {
	case "typescript", "javascript", "java", "rust":
		return Language(s), true
	default:
		return "", false
	}
}

// Symbol is a declaration extracted from a source file.
type Symbol struct {
	Id            SymbolId   `json:"id"`
	Name          string     `json:"name"`
	QualifiedName string     `json:"qualifiedName"`
	Kind          SymbolKind `json:"kind"`
	File          FileId     `json:"file"`
	Line          int        `json:"line"`   // 1-indexed
	Column        int        `json:"column"` // 1-indexed
	EndLine       int        `json:"endLine"`
	Parent        SymbolId   `json:"parent,omitempty"` // 0 = top-level
	Visibility    Visibility `json:"visibility"`
	Signature     string     `json:"signature,omitempty"`
}

// Reference is a use of one symbol from another. Target is resolved when the
// referenced symbol is declared in the same file; otherwise TargetName holds
// the textual name for later resolution.
type Reference struct {
	Source     SymbolId `json:"source"` // 0 = file-level
	Target     SymbolId `json:"target,omitempty"`
	TargetName string   `json:"targetName,omitempty"`
	Kind       RefKind  `json:"kind"`
	File       FileId   `json:"file"`
	Line       int      `json:"line"`
}

// ImportedNameKind discriminates the shape of a single imported binding.
type ImportedNameKind string

const (
	ImportNamed          ImportedNameKind = "named"
	ImportDefault        ImportedNameKind = "default"
	ImportNamespace      ImportedNameKind = "namespace"
	ImportWildcard       ImportedNameKind = "wildcard"
	ImportSideEffectOnly ImportedNameKind = "side_effect"
)

// ImportedName is one binding introduced by an import statement.
type ImportedName struct {
	Kind  ImportedNameKind `json:"kind"`
	Name  string           `json:"name,omitempty"`  // named imports
	Local string           `json:"local,omitempty"` // local alias / namespace binding
}

// ImportRecord is one import statement as written in source. The specifier
// is resolved to file edges at graph-build time.
type ImportRecord struct {
	File      FileId         `json:"file"`
	Specifier string         `json:"specifier"`
	Names     []ImportedName `json:"names"`
	TypeOnly  bool           `json:"typeOnly,omitempty"`
	Dynamic   bool           `json:"dynamic,omitempty"`
	// ModDecl marks a Rust `mod foo;` declaration: a structural edge that
	// participates in file reachability but not in cycle detection.
	ModDecl bool `json:"modDecl,omitempty"`
	Line    int  `json:"line"`
}

// WildcardName is the sentinel exported name of `export * from` re-exports.
const WildcardName = "*"

// ExportRecord is one exported name of a file.
type ExportRecord struct {
	File     FileId   `json:"file"`
	Symbol   SymbolId `json:"symbol,omitempty"` // 0 for re-exports without a local symbol
	Name     string   `json:"name"`             // WildcardName for `export * from`
	Reexport bool     `json:"reexport,omitempty"`
	Source   string   `json:"source,omitempty"` // re-export source specifier
	TypeOnly bool     `json:"typeOnly,omitempty"`
	Line     int      `json:"line"`
}

// Suppression is a statik-ignore comment attached to the following line.
// An empty RuleId suppresses every rule on that line.
type Suppression struct {
	File   FileId `json:"file"`
	Line   int    `json:"line"`
	RuleId string `json:"ruleId,omitempty"`
}

// FileRecord is the persisted identity of one indexed file.
type FileRecord struct {
	Id          FileId   `json:"id"`
	Path        string   `json:"path"` // project-relative, forward slashes
	Language    Language `json:"language"`
	Fingerprint string   `json:"fingerprint"`
	Mtime       int64    `json:"mtime"`
	SourceSet   string   `json:"sourceSet"`
	// Partial marks files whose parse did not complete; extraction records
	// cover only the portion that parsed.
	Partial bool `json:"partial,omitempty"`
}

// ParseResult is everything a parser extracted from one file.
type ParseResult struct {
	Symbols      []Symbol
	References   []Reference
	Imports      []ImportRecord
	Exports      []ExportRecord
	Suppressions []Suppression
	// Partial is set when the tree contained error nodes; the records above
	// are whatever extraction completed.
	Partial bool
}

// DefaultSourceSet is the source set assigned when no configuration is present.
const DefaultSourceSet = "default"
