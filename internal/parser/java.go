package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"statik/internal/model"
)

// JavaParser extracts symbols, imports, exports, and references from Java
// sources.
type JavaParser struct{}

// NewJavaParser creates a Java parser.
func NewJavaParser() *JavaParser {
	return &JavaParser{}
}

// Languages implements Parser.
func (p *JavaParser) Languages() []model.Language {
	return []model.Language{model.LangJava}
}

// Parse implements Parser.
func (p *JavaParser) Parse(fileId model.FileId, source []byte, path string) (model.ParseResult, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return model.ParseResult{
			Suppressions: scanSuppressions(fileId, source),
			Partial:      true,
		}, nil
	}
	defer tree.Close()

	e := &javaExtractor{
		fileId: fileId,
		path:   path,
		source: source,
	}
	root := tree.RootNode()
	e.visitProgram(root)

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

type javaScope struct {
	id        model.SymbolId
	qualified string
	// public tracks whether the entire enclosing chain is public, which
	// gates whether nested types are exports.
	public bool
}

type javaExtractor struct {
	fileId     model.FileId
	path       string
	source     []byte
	pkg        string
	symbols    []model.Symbol
	references []model.Reference
	imports    []model.ImportRecord
	exports    []model.ExportRecord
	scopes     []javaScope
}

func (e *javaExtractor) text(n *sitter.Node) string {
	return n.Content(e.source)
}

func (e *javaExtractor) line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func (e *javaExtractor) currentScope() *javaScope {
	if len(e.scopes) == 0 {
		return nil
	}
	return &e.scopes[len(e.scopes)-1]
}

func (e *javaExtractor) qualify(name string) string {
	if s := e.currentScope(); s != nil {
		return s.qualified + "." + name
	}
	if e.pkg != "" {
		return e.pkg + "." + name
	}
	return name
}

func (e *javaExtractor) addSymbol(n *sitter.Node, name string, kind model.SymbolKind, vis model.Visibility, signature string) model.SymbolId {
	var parent model.SymbolId
	if s := e.currentScope(); s != nil {
		parent = s.id
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

func (e *javaExtractor) addRef(targetName string, kind model.RefKind, line int) {
	var source model.SymbolId
	if s := e.currentScope(); s != nil {
		source = s.id
	}
	e.references = append(e.references, model.Reference{
		Source:     source,
		TargetName: targetName,
		Kind:       kind,
		File:       e.fileId,
		Line:       line,
	})
}

func (e *javaExtractor) visitProgram(root *sitter.Node) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "package_declaration":
			e.extractPackage(child)
		case "import_declaration":
			e.extractImport(child)
		default:
			e.visitDeclaration(child)
		}
	}
}

func (e *javaExtractor) extractPackage(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "scoped_identifier" || child.Type() == "identifier" {
			e.pkg = e.text(child)
			e.addSymbol(n, e.pkg, model.KindPackage, model.VisPublic, "")
			return
		}
	}
}

// extractImport handles single-type, wildcard, and static imports. The
// specifier keeps the fully-qualified name as written; wildcard imports are
// expanded to multiple resolutions at graph-build time.
func (e *javaExtractor) extractImport(n *sitter.Node) {
	isStatic := false
	isWildcard := false
	fqn := ""
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "static":
			isStatic = true
		case "asterisk":
			isWildcard = true
		case "scoped_identifier", "identifier":
			fqn = e.text(child)
		}
	}
	if fqn == "" {
		return
	}

	var names []model.ImportedName
	if isWildcard {
		names = []model.ImportedName{{Kind: model.ImportWildcard}}
	} else {
		simple := fqn
		if idx := strings.LastIndex(fqn, "."); idx >= 0 {
			simple = fqn[idx+1:]
		}
		names = []model.ImportedName{{Kind: model.ImportNamed, Name: simple}}
	}
	_ = isStatic // static imports resolve like type imports with a member suffix

	e.imports = append(e.imports, model.ImportRecord{
		File:      e.fileId,
		Specifier: fqn,
		Names:     names,
		Line:      e.line(n),
	})
}

func (e *javaExtractor) visitDeclaration(n *sitter.Node) {
	switch n.Type() {
	case "class_declaration":
		e.extractType(n, model.KindClass)
	case "interface_declaration":
		e.extractType(n, model.KindInterface)
	case "enum_declaration":
		e.extractType(n, model.KindEnum)
	case "annotation_type_declaration":
		e.extractType(n, model.KindAnnotation)
	case "record_declaration":
		e.extractType(n, model.KindRecord)
	default:
		for i := 0; i < int(n.ChildCount()); i++ {
			e.visitDeclaration(n.Child(i))
		}
	}
}

// modifierVisibility maps Java modifiers; no access modifier means
// package-private.
func (e *javaExtractor) modifierVisibility(n *sitter.Node) model.Visibility {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "modifiers" {
			continue
		}
		text := e.text(child)
		switch {
		case strings.Contains(text, "public"):
			return model.VisPublic
		case strings.Contains(text, "protected"):
			return model.VisProtected
		case strings.Contains(text, "private"):
			return model.VisPrivate
		}
	}
	return model.VisPackagePrivate
}

func (e *javaExtractor) hasStaticFinal(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "modifiers" {
			text := e.text(child)
			return strings.Contains(text, "static") && strings.Contains(text, "final")
		}
	}
	return false
}

// extractAnnotationUsages records annotation applications on a declaration
// as type-usage references.
func (e *javaExtractor) extractAnnotationUsages(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			ann := child.Child(j)
			if ann.Type() != "marker_annotation" && ann.Type() != "annotation" {
				continue
			}
			if nameNode := ann.ChildByFieldName("name"); nameNode != nil {
				e.addRef(e.text(nameNode), model.RefTypeUsage, e.line(ann))
			}
		}
	}
}

func (e *javaExtractor) extractType(n *sitter.Node, kind model.SymbolKind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	vis := e.modifierVisibility(n)
	e.extractAnnotationUsages(n)

	id := e.addSymbol(n, name, kind, vis, string(kind)+" "+name)
	e.extractTypeHeritage(n, id)

	// Public top-level types, and public nested types whose enclosing chain
	// is entirely public, are exports.
	chainPublic := vis == model.VisPublic
	if s := e.currentScope(); s != nil {
		chainPublic = chainPublic && s.public
	}
	if chainPublic {
		e.exports = append(e.exports, model.ExportRecord{
			File: e.fileId, Symbol: id, Name: name, Line: e.line(n),
		})
	}

	e.scopes = append(e.scopes, javaScope{id: id, qualified: e.qualifyFromId(id), public: chainPublic})
	if body := n.ChildByFieldName("body"); body != nil {
		e.visitTypeBody(body, kind)
	}
	e.scopes = e.scopes[:len(e.scopes)-1]
}

func (e *javaExtractor) qualifyFromId(id model.SymbolId) string {
	for i := len(e.symbols) - 1; i >= 0; i-- {
		if e.symbols[i].Id == id {
			return e.symbols[i].QualifiedName
		}
	}
	return ""
}

// extractTypeHeritage records extends/implements clauses as inheritance refs.
func (e *javaExtractor) extractTypeHeritage(n *sitter.Node, typeId model.SymbolId) {
	addTypes := func(node *sitter.Node) {
		e.walkTypeIdentifiers(node, func(name string, line int) {
			e.references = append(e.references, model.Reference{
				Source: typeId, TargetName: name, Kind: model.RefInheritance,
				File: e.fileId, Line: line,
			})
		})
	}
	if sc := n.ChildByFieldName("superclass"); sc != nil {
		addTypes(sc)
	}
	if ifs := n.ChildByFieldName("interfaces"); ifs != nil {
		addTypes(ifs)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "extends_interfaces" {
			addTypes(child)
		}
	}
}

func (e *javaExtractor) visitTypeBody(body *sitter.Node, enclosing model.SymbolKind) {
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "method_declaration":
			e.extractMethod(child)
		case "constructor_declaration":
			e.extractConstructor(child)
		case "field_declaration":
			e.extractField(child)
		case "enum_constant":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				e.addSymbol(child, e.text(nameNode), model.KindEnumVariant, model.VisPublic, "")
			}
		case "class_declaration", "interface_declaration", "enum_declaration",
			"annotation_type_declaration", "record_declaration":
			e.visitDeclaration(child)
		case "enum_body_declarations":
			e.visitTypeBody(child, enclosing)
		case "annotation_type_body":
			e.visitTypeBody(child, enclosing)
		}
	}
}

func (e *javaExtractor) extractMethod(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	vis := e.modifierVisibility(n)
	e.extractAnnotationUsages(n)

	sig := name
	if params := n.ChildByFieldName("parameters"); params != nil {
		sig += e.text(params)
	}
	if ret := n.ChildByFieldName("type"); ret != nil {
		sig = e.text(ret) + " " + sig
		e.recordTypeUsages(ret)
	}
	id := e.addSymbol(n, name, model.KindMethod, vis, sig)

	e.scopes = append(e.scopes, javaScope{id: id, qualified: e.qualifyFromId(id), public: false})
	if params := n.ChildByFieldName("parameters"); params != nil {
		e.recordTypeUsages(params)
	}
	e.recordThrows(n)
	if body := n.ChildByFieldName("body"); body != nil {
		e.visitStatements(body)
	}
	e.scopes = e.scopes[:len(e.scopes)-1]
}

func (e *javaExtractor) extractConstructor(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	vis := e.modifierVisibility(n)
	e.extractAnnotationUsages(n)
	id := e.addSymbol(n, name, model.KindMethod, vis, name+"(...)")

	e.scopes = append(e.scopes, javaScope{id: id, qualified: e.qualifyFromId(id), public: false})
	if params := n.ChildByFieldName("parameters"); params != nil {
		e.recordTypeUsages(params)
	}
	e.recordThrows(n)
	if body := n.ChildByFieldName("body"); body != nil {
		e.visitStatements(body)
	}
	e.scopes = e.scopes[:len(e.scopes)-1]
}

func (e *javaExtractor) extractField(n *sitter.Node) {
	kind := model.KindVariable
	if e.hasStaticFinal(n) {
		kind = model.KindConstant
	}
	vis := e.modifierVisibility(n)
	e.extractAnnotationUsages(n)
	if t := n.ChildByFieldName("type"); t != nil {
		e.recordTypeUsages(t)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		decl := n.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		if nameNode := decl.ChildByFieldName("name"); nameNode != nil {
			e.addSymbol(decl, e.text(nameNode), kind, vis, "")
		}
		if value := decl.ChildByFieldName("value"); value != nil {
			e.visitStatements(value)
		}
	}
}

func (e *javaExtractor) recordThrows(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "throws" {
			e.recordTypeUsages(child)
		}
	}
}

// visitStatements walks a method body recording calls, object creations,
// local-variable/cast/instanceof type usages, and annotation applications.
func (e *javaExtractor) visitStatements(n *sitter.Node) {
	switch n.Type() {
	case "method_invocation":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			e.addRef(e.text(nameNode), model.RefCall, e.line(n))
		}
	case "object_creation_expression":
		if t := n.ChildByFieldName("type"); t != nil {
			e.walkTypeIdentifiers(t, func(name string, line int) {
				e.addRef(name, model.RefCall, line)
			})
		}
	case "local_variable_declaration":
		if t := n.ChildByFieldName("type"); t != nil {
			e.recordTypeUsages(t)
		}
	case "cast_expression":
		if t := n.ChildByFieldName("type"); t != nil {
			e.recordTypeUsages(t)
		}
	case "instanceof_expression":
		if t := n.ChildByFieldName("right"); t != nil {
			e.recordTypeUsages(t)
		}
	case "field_access":
		if field := n.ChildByFieldName("field"); field != nil {
			e.addRef(e.text(field), model.RefFieldAccess, e.line(n))
		}
	case "assignment_expression":
		if left := n.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			e.addRef(e.text(left), model.RefAssignment, e.line(n))
		}
	case "marker_annotation", "annotation":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			e.addRef(e.text(nameNode), model.RefTypeUsage, e.line(n))
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		e.visitStatements(n.Child(i))
	}
}

// recordTypeUsages records each type identifier under n as a type-usage
// reference (covers generics, arrays, qualified types).
func (e *javaExtractor) recordTypeUsages(n *sitter.Node) {
	e.walkTypeIdentifiers(n, func(name string, line int) {
		e.addRef(name, model.RefTypeUsage, line)
	})
}

func (e *javaExtractor) walkTypeIdentifiers(n *sitter.Node, fn func(name string, line int)) {
	if n.Type() == "type_identifier" {
		fn(e.text(n), e.line(n))
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		e.walkTypeIdentifiers(n.Child(i), fn)
	}
}
