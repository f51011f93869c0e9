package parser

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"statik/internal/model"
)

// TypeScriptParser extracts symbols, imports, exports, and references from
// TypeScript and JavaScript sources.
type TypeScriptParser struct{}

// NewTypeScriptParser creates a TypeScript/JavaScript parser.
func NewTypeScriptParser() *TypeScriptParser {
	return &TypeScriptParser{}
}

// Languages implements Parser.
func (p *TypeScriptParser) Languages() []model.Language {
	return []model.Language{model.LangTypeScript, model.LangJavaScript}
}

func tsLanguageFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx", ".jsx":
		return tsx.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// Parse implements Parser. Parse errors are recoverable: extraction keeps
// whatever the tree contains and marks the result partial.
func (p *TypeScriptParser) Parse(fileId model.FileId, source []byte, path string) (model.ParseResult, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(tsLanguageFor(path))

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return model.ParseResult{
			Suppressions: scanSuppressions(fileId, source),
			Partial:      true,
		}, nil
	}
	defer tree.Close()

	e := &tsExtractor{
		fileId: fileId,
		path:   path,
		source: source,
	}
	root := tree.RootNode()
	e.visitChildren(root)

	res := model.ParseResult{
		Symbols:      e.symbols,
		References:   e.references,
		Imports:      e.imports,
		Exports:      e.exports,
		Suppressions: scanSuppressions(fileId, source),
		Partial:      root.HasError(),
	}
	resolveLocalRefs(&res)
	linkLocalExports(&res)
	return res, nil
}

// linkLocalExports attaches symbol ids to `export { a, b }` clauses whose
// names are declared in the same file.
func linkLocalExports(res *model.ParseResult) {
	byName := make(map[string]model.SymbolId, len(res.Symbols))
	for _, s := range res.Symbols {
		if _, taken := byName[s.Name]; !taken {
			byName[s.Name] = s.Id
		}
	}
	for i := range res.Exports {
		exp := &res.Exports[i]
		if exp.Symbol == 0 && !exp.Reexport && exp.Name != model.WildcardName {
			if id, ok := byName[exp.Name]; ok {
				exp.Symbol = id
			}
		}
	}
}

type tsScope struct {
	id        model.SymbolId
	qualified string
}

type tsExtractor struct {
	fileId     model.FileId
	path       string
	source     []byte
	symbols    []model.Symbol
	references []model.Reference
	imports    []model.ImportRecord
	exports    []model.ExportRecord
	scopes     []tsScope
}

func (e *tsExtractor) text(n *sitter.Node) string {
	return n.Content(e.source)
}

func (e *tsExtractor) line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func (e *tsExtractor) currentScope() (model.SymbolId, string) {
	if len(e.scopes) == 0 {
		return 0, ""
	}
	top := e.scopes[len(e.scopes)-1]
	return top.id, top.qualified
}

func (e *tsExtractor) qualify(name string) string {
	if _, q := e.currentScope(); q != "" {
		return q + "." + name
	}
	return name
}

func (e *tsExtractor) addSymbol(n *sitter.Node, name string, kind model.SymbolKind, vis model.Visibility, signature string) model.SymbolId {
	parent, _ := e.currentScope()
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

func (e *tsExtractor) addRef(source model.SymbolId, targetName string, kind model.RefKind, line int) {
	e.references = append(e.references, model.Reference{
		Source:     source,
		TargetName: targetName,
		Kind:       kind,
		File:       e.fileId,
		Line:       line,
	})
}

func (e *tsExtractor) visitChildren(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		e.visitNode(n.Child(i))
	}
}

func (e *tsExtractor) visitNode(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		e.extractImport(n)
	case "export_statement":
		e.extractExport(n)
	case "function_declaration", "generator_function_declaration":
		e.extractFunction(n, e.isExported(n))
	case "class_declaration", "abstract_class_declaration":
		e.extractClass(n, e.isExported(n))
	case "interface_declaration":
		e.extractInterface(n, e.isExported(n))
	case "type_alias_declaration":
		e.extractTypeAlias(n, e.isExported(n))
	case "enum_declaration":
		e.extractEnum(n, e.isExported(n))
	case "lexical_declaration", "variable_declaration":
		e.extractVariables(n, e.isExported(n))
	case "internal_module", "module":
		e.extractNamespace(n, e.isExported(n))
	case "call_expression":
		if !e.tryExtractDynamicImport(n) {
			e.extractCall(n)
		}
		e.visitChildren(n)
	case "new_expression":
		e.extractNew(n)
		e.visitChildren(n)
	case "type_annotation", "type_arguments":
		e.extractTypeUsages(n)
	default:
		e.visitChildren(n)
	}
}

func (e *tsExtractor) isExported(n *sitter.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Type() == "export_statement"
}

func visibilityFor(exported bool) model.Visibility {
	if exported {
		return model.VisPublic
	}
	return model.VisPrivate
}

func (e *tsExtractor) pushScope(id model.SymbolId, qualified string) {
	e.scopes = append(e.scopes, tsScope{id: id, qualified: qualified})
}

func (e *tsExtractor) popScope() {
	e.scopes = e.scopes[:len(e.scopes)-1]
}

func (e *tsExtractor) extractFunction(n *sitter.Node, exported bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	sig := e.functionSignature(n, name)
	id := e.addSymbol(n, name, model.KindFunction, visibilityFor(exported), sig)

	if exported {
		e.exports = append(e.exports, model.ExportRecord{
			File: e.fileId, Symbol: id, Name: name, Line: e.line(n),
		})
	}

	e.pushScope(id, e.qualifyFromSymbol(id))
	if body := n.ChildByFieldName("body"); body != nil {
		e.visitChildren(body)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		e.extractTypeUsages(params)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		e.extractTypeUsages(ret)
	}
	e.popScope()
}

func (e *tsExtractor) qualifyFromSymbol(id model.SymbolId) string {
	for i := len(e.symbols) - 1; i >= 0; i-- {
		if e.symbols[i].Id == id {
			return e.symbols[i].QualifiedName
		}
	}
	return ""
}

func (e *tsExtractor) functionSignature(n *sitter.Node, name string) string {
	params := "()"
	if p := n.ChildByFieldName("parameters"); p != nil {
		params = e.text(p)
	}
	ret := ""
	if r := n.ChildByFieldName("return_type"); r != nil {
		ret = e.text(r)
	}
	return name + params + ret
}

func (e *tsExtractor) extractClass(n *sitter.Node, exported bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	id := e.addSymbol(n, name, model.KindClass, visibilityFor(exported), "class "+name)

	e.extractHeritage(n, id)

	if exported {
		e.exports = append(e.exports, model.ExportRecord{
			File: e.fileId, Symbol: id, Name: name, Line: e.line(n),
		})
	}

	e.pushScope(id, e.qualifyFromSymbol(id))
	if body := n.ChildByFieldName("body"); body != nil {
		e.visitClassBody(body)
	}
	e.popScope()
}

// extractHeritage records extends/implements clauses as inheritance refs.
func (e *tsExtractor) extractHeritage(n *sitter.Node, classId model.SymbolId) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "class_heritage":
			e.extractHeritage(child, classId)
		case "extends_clause", "implements_clause", "extends_type_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				t := child.NamedChild(j)
				switch t.Type() {
				case "identifier", "type_identifier":
					e.addRef(classId, e.text(t), model.RefInheritance, e.line(t))
				case "generic_type":
					if base := t.ChildByFieldName("name"); base != nil {
						e.addRef(classId, e.text(base), model.RefInheritance, e.line(base))
					}
				}
			}
		}
	}
}

func (e *tsExtractor) visitClassBody(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "method_definition":
			e.extractMethod(child)
		case "public_field_definition", "property_definition", "field_definition":
			e.extractProperty(child)
		}
	}
}

func (e *tsExtractor) memberVisibility(n *sitter.Node) model.Visibility {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "accessibility_modifier" {
			switch e.text(child) {
			case "private":
				return model.VisPrivate
			case "protected":
				return model.VisProtected
			}
			return model.VisPublic
		}
	}
	return model.VisPublic
}

func (e *tsExtractor) extractMethod(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	sig := e.functionSignature(n, name)
	id := e.addSymbol(n, name, model.KindMethod, e.memberVisibility(n), sig)

	e.pushScope(id, e.qualifyFromSymbol(id))
	if body := n.ChildByFieldName("body"); body != nil {
		e.visitChildren(body)
	}
	e.popScope()
}

func (e *tsExtractor) extractProperty(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	e.addSymbol(n, e.text(nameNode), model.KindVariable, e.memberVisibility(n), "")
	if t := n.ChildByFieldName("type"); t != nil {
		e.extractTypeUsages(t)
	}
}

func (e *tsExtractor) extractInterface(n *sitter.Node, exported bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	id := e.addSymbol(n, name, model.KindInterface, visibilityFor(exported), "interface "+name)
	e.extractHeritage(n, id)

	if exported {
		e.exports = append(e.exports, model.ExportRecord{
			File: e.fileId, Symbol: id, Name: name, Line: e.line(n),
		})
	}
}

func (e *tsExtractor) extractTypeAlias(n *sitter.Node, exported bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	sig := ""
	if v := n.ChildByFieldName("value"); v != nil {
		sig = "type " + name + " = " + e.text(v)
		e.extractTypeUsages(v)
	}
	id := e.addSymbol(n, name, model.KindTypeAlias, visibilityFor(exported), sig)

	if exported {
		e.exports = append(e.exports, model.ExportRecord{
			File: e.fileId, Symbol: id, Name: name, Line: e.line(n),
		})
	}
}

func (e *tsExtractor) extractEnum(n *sitter.Node, exported bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	id := e.addSymbol(n, name, model.KindEnum, visibilityFor(exported), "enum "+name)

	if exported {
		e.exports = append(e.exports, model.ExportRecord{
			File: e.fileId, Symbol: id, Name: name, Line: e.line(n),
		})
	}

	e.pushScope(id, e.qualifyFromSymbol(id))
	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			member := body.NamedChild(i)
			var memberName string
			switch member.Type() {
			case "enum_assignment":
				if mn := member.ChildByFieldName("name"); mn != nil {
					memberName = e.text(mn)
				}
			case "property_identifier":
				memberName = e.text(member)
			}
			if memberName != "" {
				e.addSymbol(member, memberName, model.KindEnumVariant, model.VisPublic, "")
			}
		}
	}
	e.popScope()
}

func (e *tsExtractor) extractNamespace(n *sitter.Node, exported bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	id := e.addSymbol(n, name, model.KindModule, visibilityFor(exported), "namespace "+name)

	if exported {
		e.exports = append(e.exports, model.ExportRecord{
			File: e.fileId, Symbol: id, Name: name, Line: e.line(n),
		})
	}

	e.pushScope(id, e.qualifyFromSymbol(id))
	if body := n.ChildByFieldName("body"); body != nil {
		e.visitChildren(body)
	}
	e.popScope()
}

func (e *tsExtractor) extractVariables(n *sitter.Node, exported bool) {
	isConst := strings.HasPrefix(e.text(n), "const")
	for i := 0; i < int(n.NamedChildCount()); i++ {
		decl := n.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil || nameNode.Type() != "identifier" {
			continue
		}
		name := e.text(nameNode)

		kind := model.KindVariable
		if isConst {
			kind = model.KindConstant
		}
		value := decl.ChildByFieldName("value")
		isFunc := value != nil && (value.Type() == "arrow_function" || value.Type() == "function_expression" || value.Type() == "function" || value.Type() == "generator_function")
		if isFunc {
			// Arrow functions assigned to variables count as functions.
			kind = model.KindFunction
		}

		id := e.addSymbol(decl, name, kind, visibilityFor(exported), "")
		if exported {
			e.exports = append(e.exports, model.ExportRecord{
				File: e.fileId, Symbol: id, Name: name, Line: e.line(decl),
			})
		}

		if value == nil {
			continue
		}
		if isFunc {
			e.pushScope(id, e.qualifyFromSymbol(id))
			if body := value.ChildByFieldName("body"); body != nil {
				e.visitNode(body)
			}
			e.popScope()
		} else {
			e.visitNode(value)
		}
	}
}

// tryExtractDynamicImport handles `import("...")` call expressions. A
// non-literal argument produces a dynamic record with an empty specifier,
// which the resolver reports as a dynamic path.
func (e *tsExtractor) tryExtractDynamicImport(n *sitter.Node) bool {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "import" {
		return false
	}

	specifier := ""
	if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
		arg := args.NamedChild(0)
		if arg.Type() == "string" {
			specifier = strings.Trim(e.text(arg), "'\"`")
		}
	}

	e.imports = append(e.imports, model.ImportRecord{
		File:      e.fileId,
		Specifier: specifier,
		Names:     []model.ImportedName{{Kind: model.ImportNamespace}},
		Dynamic:   true,
		Line:      e.line(n),
	})
	return true
}

func (e *tsExtractor) extractCall(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	source, _ := e.currentScope()
	switch fn.Type() {
	case "identifier":
		e.addRef(source, e.text(fn), model.RefCall, e.line(n))
	case "member_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			e.addRef(source, e.text(prop), model.RefCall, e.line(n))
		}
	}
}

func (e *tsExtractor) extractNew(n *sitter.Node) {
	ctor := n.ChildByFieldName("constructor")
	if ctor == nil || ctor.Type() != "identifier" {
		return
	}
	source, _ := e.currentScope()
	e.addRef(source, e.text(ctor), model.RefCall, e.line(n))
}

// extractTypeUsages records every type identifier under n as a type-usage
// reference.
func (e *tsExtractor) extractTypeUsages(n *sitter.Node) {
	source, _ := e.currentScope()
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Type() == "type_identifier" {
			e.addRef(source, e.text(node), model.RefTypeUsage, e.line(node))
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(n)
}

func (e *tsExtractor) extractImport(n *sitter.Node) {
	sourceNode := n.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	specifier := strings.Trim(e.text(sourceNode), "'\"")
	typeOnly := isTypeOnlyClause(e.text(n), "import")
	line := e.line(n)

	var names []model.ImportedName
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			clause := child.Child(j)
			switch clause.Type() {
			case "identifier":
				names = append(names, model.ImportedName{
					Kind: model.ImportDefault, Local: e.text(clause),
				})
			case "namespace_import":
				for k := 0; k < int(clause.ChildCount()); k++ {
					if clause.Child(k).Type() == "identifier" {
						names = append(names, model.ImportedName{
							Kind: model.ImportNamespace, Local: e.text(clause.Child(k)),
						})
					}
				}
			case "named_imports":
				names = append(names, e.namedImports(clause)...)
			}
		}
	}

	if len(names) == 0 {
		// `import "side-effect"`
		names = []model.ImportedName{{Kind: model.ImportSideEffectOnly}}
	}

	e.imports = append(e.imports, model.ImportRecord{
		File:      e.fileId,
		Specifier: specifier,
		Names:     names,
		TypeOnly:  typeOnly,
		Line:      line,
	})
}

func (e *tsExtractor) namedImports(n *sitter.Node) []model.ImportedName {
	var names []model.ImportedName
	for i := 0; i < int(n.NamedChildCount()); i++ {
		spec := n.NamedChild(i)
		if spec.Type() != "import_specifier" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := model.ImportedName{Kind: model.ImportNamed, Name: e.text(nameNode)}
		if alias := spec.ChildByFieldName("alias"); alias != nil {
			name.Local = e.text(alias)
		}
		names = append(names, name)
	}
	return names
}

func (e *tsExtractor) extractExport(n *sitter.Node) {
	typeOnly := isTypeOnlyClause(e.text(n), "export")
	line := e.line(n)

	sourceNode := n.ChildByFieldName("source")
	source := ""
	if sourceNode != nil {
		source = strings.Trim(e.text(sourceNode), "'\"")
	}

	// `export * from './x'`
	hasStar := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "*" {
			hasStar = true
		}
	}
	if hasStar && source != "" {
		e.exports = append(e.exports, model.ExportRecord{
			File: e.fileId, Name: model.WildcardName, Reexport: true,
			Source: source, TypeOnly: typeOnly, Line: line,
		})
		e.imports = append(e.imports, model.ImportRecord{
			File: e.fileId, Specifier: source,
			Names:    []model.ImportedName{{Kind: model.ImportWildcard}},
			TypeOnly: typeOnly, Line: line,
		})
		return
	}

	// `export default ...`
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "default" {
			e.exports = append(e.exports, model.ExportRecord{
				File: e.fileId, Name: "default", Line: line,
			})
			if decl := n.ChildByFieldName("declaration"); decl != nil {
				e.visitNode(decl)
			}
			return
		}
	}

	// `export { a, b as c }` optionally with `from`
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "export_clause" {
			continue
		}
		var importedNames []model.ImportedName
		for j := 0; j < int(child.NamedChildCount()); j++ {
			spec := child.NamedChild(j)
			if spec.Type() != "export_specifier" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			localName := e.text(nameNode)
			exportedName := localName
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exportedName = e.text(alias)
			}
			e.exports = append(e.exports, model.ExportRecord{
				File: e.fileId, Name: exportedName,
				Reexport: source != "", Source: source,
				TypeOnly: typeOnly, Line: line,
			})
			if source != "" {
				importedNames = append(importedNames, model.ImportedName{
					Kind: model.ImportNamed, Name: localName,
				})
			}
		}
		if source != "" && len(importedNames) > 0 {
			e.imports = append(e.imports, model.ImportRecord{
				File: e.fileId, Specifier: source, Names: importedNames,
				TypeOnly: typeOnly, Line: line,
			})
		}
		return
	}

	// `export <declaration>` — the declaration extractor sees the
	// export_statement parent and records the export itself.
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		e.visitNode(decl)
		return
	}
	e.visitChildren(n)
}

// isTypeOnlyClause detects `import type` / `export type` without matching
// identifiers that merely begin with "type".
func isTypeOnlyClause(text, keyword string) bool {
	rest, ok := strings.CutPrefix(text, keyword+" type")
	if !ok {
		return false
	}
	return rest == "" || rest[0] == ' ' || rest[0] == '{' || rest[0] == '*'
}
