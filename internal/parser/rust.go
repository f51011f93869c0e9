package parser

import (
	"context"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"statik/internal/model"
)

// ModDeclPrefix marks import specifiers produced from `mod foo;`
// declarations; the Rust resolver strips it and probes foo.rs / foo/mod.rs.
const ModDeclPrefix = "@mod:"

// ExternCratePrefix marks import specifiers produced from `extern crate`.
const ExternCratePrefix = "extern::"

// RustParser extracts symbols, imports, exports, and references from Rust
// sources.
type RustParser struct{}

// NewRustParser creates a Rust parser.
func NewRustParser() *RustParser {
	return &RustParser{}
}

// Languages implements Parser.
func (p *RustParser) Languages() []model.Language {
	return []model.Language{model.LangRust}
}

// Parse implements Parser.
func (p *RustParser) Parse(fileId model.FileId, source []byte, filePath string) (model.ParseResult, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return model.ParseResult{
			Suppressions: scanSuppressions(fileId, source),
			Partial:      true,
		}, nil
	}
	defer tree.Close()

	e := &rustExtractor{
		fileId:  fileId,
		path:    filePath,
		source:  source,
		modPath: rustModulePath(filePath),
	}
	root := tree.RootNode()
	e.visitItems(root)

	res := model.ParseResult{
		Symbols:      e.symbols,
		References:   e.references,
		Imports:      e.imports,
		Exports:      e.exports,
		Suppressions: scanSuppressions(fileId, source),
		Partial:      root.HasError(),
	}
	resolveLocalRefs(&res)
	return res, nil
}

// rustModulePath derives the dotted module path of a file from its location:
// src/net/tcp.rs -> net.tcp, src/net/mod.rs -> net, src/lib.rs -> "".
func rustModulePath(filePath string) string {
	p := strings.TrimSuffix(path.Clean(strings.ReplaceAll(filePath, "\\", "/")), ".rs")
	if idx := strings.Index(p, "src/"); idx >= 0 {
		p = p[idx+len("src/"):]
	}
	parts := strings.Split(p, "/")
	if len(parts) > 0 {
		last := parts[len(parts)-1]
		if last == "lib" || last == "main" || last == "mod" {
			parts = parts[:len(parts)-1]
		}
	}
	return strings.Join(parts, ".")
}

type rustScope struct {
	id        model.SymbolId
	qualified string
}

type rustExtractor struct {
	fileId     model.FileId
	path       string
	source     []byte
	modPath    string
	symbols    []model.Symbol
	references []model.Reference
	imports    []model.ImportRecord
	exports    []model.ExportRecord
	scopes     []rustScope
}

func (e *rustExtractor) text(n *sitter.Node) string {
	return n.Content(e.source)
}

func (e *rustExtractor) line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func (e *rustExtractor) qualify(name string) string {
	if len(e.scopes) > 0 {
		return e.scopes[len(e.scopes)-1].qualified + "." + name
	}
	if e.modPath != "" {
		return e.modPath + "." + name
	}
	return name
}

func (e *rustExtractor) addSymbol(n *sitter.Node, name string, kind model.SymbolKind, vis model.Visibility, signature string) model.SymbolId {
	var parent model.SymbolId
	if len(e.scopes) > 0 {
		parent = e.scopes[len(e.scopes)-1].id
	}
	qualified := e.qualify(name)
	id := model.NewSymbolId(e.path, kind, qualified)
	e.symbols = append(e.symbols, model.Symbol{
		Id:            id,
		Name:          name,
		QualifiedName: qualified,
		Kind:          kind,
		File:          e.fileId,
		Line:          e.line(n),
		Column:        int(n.StartPoint().Column) + 1,
		EndLine:       int(n.EndPoint().Row) + 1,
		Parent:        parent,
		Visibility:    vis,
		Signature:     signature,
	})
	return id
}

func (e *rustExtractor) pushScope(id model.SymbolId) {
	for i := len(e.symbols) - 1; i >= 0; i-- {
		if e.symbols[i].Id == id {
			e.scopes = append(e.scopes, rustScope{id: id, qualified: e.symbols[i].QualifiedName})
			return
		}
	}
}

func (e *rustExtractor) popScope() {
	e.scopes = e.scopes[:len(e.scopes)-1]
}

func (e *rustExtractor) addRef(targetName string, kind model.RefKind, line int) {
	var source model.SymbolId
	if len(e.scopes) > 0 {
		source = e.scopes[len(e.scopes)-1].id
	}
	e.references = append(e.references, model.Reference{
		Source:     source,
		TargetName: targetName,
		Kind:       kind,
		File:       e.fileId,
		Line:       line,
	})
}

// visibility maps `pub` to public and `pub(crate)`/`pub(super)` to
// protected; everything else is private.
func (e *rustExtractor) visibility(n *sitter.Node) model.Visibility {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "visibility_modifier" {
			continue
		}
		text := e.text(child)
		if text == "pub" {
			return model.VisPublic
		}
		return model.VisProtected
	}
	return model.VisPrivate
}

func (e *rustExtractor) addExport(n *sitter.Node, id model.SymbolId, name string) {
	e.exports = append(e.exports, model.ExportRecord{
		File: e.fileId, Symbol: id, Name: name, Line: e.line(n),
	})
}

func (e *rustExtractor) visitItems(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		e.visitItem(n.Child(i))
	}
}

func (e *rustExtractor) visitItem(n *sitter.Node) {
	switch n.Type() {
	case "use_declaration":
		e.extractUse(n)
	case "extern_crate_declaration":
		e.extractExternCrate(n)
	case "mod_item":
		e.extractMod(n)
	case "function_item":
		e.extractFunction(n)
	case "struct_item":
		e.extractStruct(n)
	case "enum_item":
		e.extractEnum(n)
	case "trait_item":
		e.extractTrait(n)
	case "impl_item":
		e.extractImpl(n)
	case "type_item":
		e.extractNamed(n, model.KindTypeAlias)
	case "const_item", "static_item":
		e.extractNamed(n, model.KindConstant)
	case "macro_definition":
		e.extractNamed(n, model.KindMacro)
	default:
		e.visitItems(n)
	}
}

// extractUse flattens simple, aliased, grouped, nested, and wildcard use
// trees into one import record per leaf path.
func (e *rustExtractor) extractUse(n *sitter.Node) {
	isPub := e.visibility(n) != model.VisPrivate
	arg := n.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	e.walkUseTree(arg, nil, isPub, e.line(n))
}

func (e *rustExtractor) addUseImport(fullPath, name string, local string, wildcard bool, line int) {
	imported := model.ImportedName{Kind: model.ImportNamed, Name: name, Local: local}
	if wildcard {
		imported = model.ImportedName{Kind: model.ImportWildcard}
	}
	e.imports = append(e.imports, model.ImportRecord{
		File:      e.fileId,
		Specifier: fullPath,
		Names:     []model.ImportedName{imported},
		Line:      line,
	})
}

func (e *rustExtractor) addReexport(fullPath, name string, line int) {
	e.exports = append(e.exports, model.ExportRecord{
		File: e.fileId, Name: name, Reexport: true, Source: fullPath, Line: line,
	})
}

func (e *rustExtractor) walkUseTree(n *sitter.Node, prefix []string, isPub bool, line int) {
	joinPrefix := func(rest string) string {
		if len(prefix) == 0 {
			return rest
		}
		if rest == "" {
			return strings.Join(prefix, "::")
		}
		return strings.Join(prefix, "::") + "::" + rest
	}

	switch n.Type() {
	case "scoped_identifier":
		full := joinPrefix(e.text(n))
		name := lastPathSegment(full)
		e.addUseImport(full, name, "", false, line)
		if isPub {
			e.addReexport(full, name, line)
		}
	case "identifier", "self", "crate", "super":
		full := joinPrefix(e.text(n))
		name := lastPathSegment(full)
		e.addUseImport(full, name, "", false, line)
		if isPub {
			e.addReexport(full, name, line)
		}
	case "use_as_clause":
		pathNode := n.ChildByFieldName("path")
		aliasNode := n.ChildByFieldName("alias")
		if pathNode == nil {
			return
		}
		full := joinPrefix(e.text(pathNode))
		name := lastPathSegment(full)
		alias := ""
		if aliasNode != nil {
			alias = e.text(aliasNode)
		}
		e.addUseImport(full, name, alias, false, line)
		if isPub {
			exportName := name
			if alias != "" {
				exportName = alias
			}
			e.addReexport(full, exportName, line)
		}
	case "use_wildcard":
		base := strings.TrimSuffix(e.text(n), "::*")
		if base == e.text(n) {
			base = ""
		}
		full := joinPrefix(base)
		e.addUseImport(full, model.WildcardName, "", true, line)
		if isPub {
			e.addReexport(full, model.WildcardName, line)
		}
	case "scoped_use_list":
		var parts []string
		if p := n.ChildByFieldName("path"); p != nil {
			parts = append(prefix, strings.Split(e.text(p), "::")...)
		} else {
			parts = prefix
		}
		if list := n.ChildByFieldName("list"); list != nil {
			e.walkUseTree(list, parts, isPub, line)
		}
	case "use_list":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			e.walkUseTree(n.NamedChild(i), prefix, isPub, line)
		}
	}
}

func lastPathSegment(p string) string {
	if idx := strings.LastIndex(p, "::"); idx >= 0 {
		return p[idx+2:]
	}
	return p
}

func (e *rustExtractor) extractExternCrate(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	local := ""
	if alias := n.ChildByFieldName("alias"); alias != nil {
		local = e.text(alias)
	}
	e.imports = append(e.imports, model.ImportRecord{
		File:      e.fileId,
		Specifier: ExternCratePrefix + name,
		Names:     []model.ImportedName{{Kind: model.ImportNamed, Name: name, Local: local}},
		Line:      e.line(n),
	})
}

// extractMod handles both `mod foo;` (external: structural import edge) and
// `mod foo { ... }` (inline: module symbol with nested items).
func (e *rustExtractor) extractMod(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	vis := e.visibility(n)
	id := e.addSymbol(n, name, model.KindModule, vis, "mod "+name)
	if vis == model.VisPublic {
		e.addExport(n, id, name)
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		// External module declaration: reachability edge to the child file.
		e.imports = append(e.imports, model.ImportRecord{
			File:      e.fileId,
			Specifier: ModDeclPrefix + name,
			Names:     []model.ImportedName{{Kind: model.ImportNamed, Name: name}},
			ModDecl:   true,
			Line:      e.line(n),
		})
		return
	}

	e.pushScope(id)
	e.visitItems(body)
	e.popScope()
}

func (e *rustExtractor) extractFunction(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	vis := e.visibility(n)

	kind := model.KindFunction
	if len(e.scopes) > 0 {
		// Functions inside impl/trait blocks are methods.
		for i := len(e.symbols) - 1; i >= 0; i-- {
			if e.symbols[i].Id == e.scopes[len(e.scopes)-1].id {
				k := e.symbols[i].Kind
				if k == model.KindStruct || k == model.KindEnum || k == model.KindTrait || k == model.KindClass {
					kind = model.KindMethod
				}
				break
			}
		}
	}

	sig := "fn " + name
	if params := n.ChildByFieldName("parameters"); params != nil {
		sig += e.text(params)
		e.recordTypeUsages(params)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		sig += " -> " + e.text(ret)
		e.recordTypeUsages(ret)
	}

	id := e.addSymbol(n, name, kind, vis, sig)
	if vis == model.VisPublic && kind == model.KindFunction {
		e.addExport(n, id, name)
	}

	e.pushScope(id)
	if body := n.ChildByFieldName("body"); body != nil {
		e.visitBody(body)
	}
	e.popScope()
}

func (e *rustExtractor) extractStruct(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	vis := e.visibility(n)
	id := e.addSymbol(n, name, model.KindStruct, vis, "struct "+name)
	if vis == model.VisPublic {
		e.addExport(n, id, name)
	}

	e.pushScope(id)
	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			field := body.NamedChild(i)
			if field.Type() != "field_declaration" {
				continue
			}
			if fn := field.ChildByFieldName("name"); fn != nil {
				e.addSymbol(field, e.text(fn), model.KindVariable, e.visibility(field), "")
			}
			if ft := field.ChildByFieldName("type"); ft != nil {
				e.recordTypeUsages(ft)
			}
		}
	}
	e.popScope()
}

func (e *rustExtractor) extractEnum(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	vis := e.visibility(n)
	id := e.addSymbol(n, name, model.KindEnum, vis, "enum "+name)
	if vis == model.VisPublic {
		e.addExport(n, id, name)
	}

	e.pushScope(id)
	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			variant := body.NamedChild(i)
			if variant.Type() != "enum_variant" {
				continue
			}
			if vn := variant.ChildByFieldName("name"); vn != nil {
				e.addSymbol(variant, e.text(vn), model.KindEnumVariant, vis, "")
			}
		}
	}
	e.popScope()
}

func (e *rustExtractor) extractTrait(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	vis := e.visibility(n)
	id := e.addSymbol(n, name, model.KindTrait, vis, "trait "+name)
	if vis == model.VisPublic {
		e.addExport(n, id, name)
	}

	e.pushScope(id)
	if body := n.ChildByFieldName("body"); body != nil {
		e.visitItems(body)
	}
	e.popScope()
}

// extractImpl attaches methods to the implemented type. `impl Trait for T`
// records an inheritance reference from T to Trait.
func (e *rustExtractor) extractImpl(n *sitter.Node) {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	typeName := baseTypeName(e.text(typeNode))

	// Methods live under the implemented type's qualified name.
	implScope := rustScope{qualified: e.qualify(typeName)}
	for i := len(e.symbols) - 1; i >= 0; i-- {
		if e.symbols[i].Name == typeName &&
			(e.symbols[i].Kind == model.KindStruct || e.symbols[i].Kind == model.KindEnum) {
			implScope = rustScope{id: e.symbols[i].Id, qualified: e.symbols[i].QualifiedName}
			break
		}
	}

	if traitNode := n.ChildByFieldName("trait"); traitNode != nil {
		traitName := baseTypeName(e.text(traitNode))
		// Attribute the inheritance to the implemented type when it is
		// declared in this file (otherwise the source stays unset);
		// resolveLocalRefs links the trait up.
		e.references = append(e.references, model.Reference{
			Source: implScope.id, TargetName: traitName, Kind: model.RefInheritance,
			File: e.fileId, Line: e.line(n),
		})
		e.addRef(typeName, model.RefTypeUsage, e.line(n))
	}
	e.scopes = append(e.scopes, implScope)
	if body := n.ChildByFieldName("body"); body != nil {
		e.visitItems(body)
	}
	e.popScope()
}

func baseTypeName(t string) string {
	t = strings.TrimSpace(t)
	if idx := strings.Index(t, "<"); idx >= 0 {
		t = t[:idx]
	}
	return lastPathSegment(t)
}

func (e *rustExtractor) extractNamed(n *sitter.Node, kind model.SymbolKind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	vis := e.visibility(n)
	if kind == model.KindMacro {
		// macro_rules! has no visibility modifier; exported via #[macro_export].
		vis = model.VisPrivate
		if strings.Contains(e.precedingAttributes(n), "macro_export") {
			vis = model.VisPublic
		}
	}
	id := e.addSymbol(n, name, kind, vis, "")
	if vis == model.VisPublic {
		e.addExport(n, id, name)
	}
	if t := n.ChildByFieldName("type"); t != nil {
		e.recordTypeUsages(t)
	}
	if v := n.ChildByFieldName("value"); v != nil {
		e.visitBody(v)
	}
}

func (e *rustExtractor) precedingAttributes(n *sitter.Node) string {
	prev := n.PrevSibling()
	var attrs []string
	for prev != nil && prev.Type() == "attribute_item" {
		attrs = append(attrs, e.text(prev))
		prev = prev.PrevSibling()
	}
	return strings.Join(attrs, " ")
}

// visitBody walks expressions recording calls, method calls, struct
// expressions, and type identifier uses.
func (e *rustExtractor) visitBody(n *sitter.Node) {
	switch n.Type() {
	case "call_expression":
		if fn := n.ChildByFieldName("function"); fn != nil {
			switch fn.Type() {
			case "identifier", "scoped_identifier":
				e.addRef(lastPathSegment(e.text(fn)), model.RefCall, e.line(n))
			case "field_expression":
				if field := fn.ChildByFieldName("field"); field != nil {
					e.addRef(e.text(field), model.RefCall, e.line(n))
				}
			}
		}
	case "macro_invocation":
		if m := n.ChildByFieldName("macro"); m != nil {
			e.addRef(lastPathSegment(e.text(m)), model.RefCall, e.line(n))
		}
	case "struct_expression":
		if name := n.ChildByFieldName("name"); name != nil {
			e.addRef(baseTypeName(e.text(name)), model.RefTypeUsage, e.line(n))
		}
	case "type_identifier":
		e.addRef(e.text(n), model.RefTypeUsage, e.line(n))
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		e.visitBody(n.Child(i))
	}
}

func (e *rustExtractor) recordTypeUsages(n *sitter.Node) {
	if n.Type() == "type_identifier" {
		e.addRef(e.text(n), model.RefTypeUsage, e.line(n))
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		e.recordTypeUsages(n.Child(i))
	}
}
