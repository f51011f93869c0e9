package parser

import (
	"testing"

	"statik/internal/model"
)

func parseRust(t *testing.T, source string) model.ParseResult {
	t.Helper()
	return parseRustAt(t, source, "src/service.rs")
}

func parseRustAt(t *testing.T, source, path string) model.ParseResult {
	t.Helper()
	p := NewRustParser()
	res, err := p.Parse(model.NewFileId(path), []byte(source), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return res
}

func TestRustFunctionVisibility(t *testing.T) {
	src := `pub fn public_api() {}
fn internal() {}
pub(crate) fn crate_only() {}
`
	res := parseRust(t, src)

	pub := findSymbol(res, "public_api", model.KindFunction)
	if pub == nil || pub.Visibility != model.VisPublic {
		t.Errorf("pub fn: %+v", pub)
	}
	priv := findSymbol(res, "internal", model.KindFunction)
	if priv == nil || priv.Visibility != model.VisPrivate {
		t.Errorf("plain fn: %+v", priv)
	}
	crateVis := findSymbol(res, "crate_only", model.KindFunction)
	if crateVis == nil || crateVis.Visibility != model.VisProtected {
		t.Errorf("pub(crate) fn: %+v", crateVis)
	}

	if findExport(res, "public_api") == nil {
		t.Error("pub fn should be an export")
	}
	if findExport(res, "internal") != nil {
		t.Error("private fn must not be an export")
	}
}

func TestRustStructEnumTrait(t *testing.T) {
	src := `pub struct User { pub id: u64, name: String }
pub enum State { Idle, Busy }
pub trait Store { fn get(&self) -> u64; }
type Alias = u64;
pub const MAX: usize = 10;
macro_rules! log_it { () => {} }
`
	res := parseRust(t, src)
	if findSymbol(res, "User", model.KindStruct) == nil {
		t.Error("struct missing")
	}
	if findSymbol(res, "State", model.KindEnum) == nil {
		t.Error("enum missing")
	}
	if findSymbol(res, "Idle", model.KindEnumVariant) == nil {
		t.Error("enum variant missing")
	}
	if findSymbol(res, "Store", model.KindTrait) == nil {
		t.Error("trait missing")
	}
	if findSymbol(res, "Alias", model.KindTypeAlias) == nil {
		t.Error("type alias missing")
	}
	if findSymbol(res, "MAX", model.KindConstant) == nil {
		t.Error("const missing")
	}
	if findSymbol(res, "log_it", model.KindMacro) == nil {
		t.Error("macro missing")
	}
}

func TestRustUseForms(t *testing.T) {
	src := `use crate::model::User;
use super::db;
use std::collections::{HashMap, HashSet};
use crate::util::helper as h;
use crate::prelude::*;
`
	res := parseRust(t, src)

	specs := map[string]model.ImportRecord{}
	for _, imp := range res.Imports {
		specs[imp.Specifier] = imp
	}

	if imp, ok := specs["crate::model::User"]; !ok || imp.Names[0].Name != "User" {
		t.Errorf("simple use: %+v", res.Imports)
	}
	if _, ok := specs["super::db"]; !ok {
		t.Errorf("super use missing: %+v", res.Imports)
	}
	if _, ok := specs["std::collections::HashMap"]; !ok {
		t.Errorf("grouped use not flattened: %+v", res.Imports)
	}
	if _, ok := specs["std::collections::HashSet"]; !ok {
		t.Errorf("grouped use not flattened: %+v", res.Imports)
	}
	if imp, ok := specs["crate::util::helper"]; !ok || imp.Names[0].Local != "h" {
		t.Errorf("aliased use: %+v", res.Imports)
	}
	if imp, ok := specs["crate::prelude"]; !ok || imp.Names[0].Kind != model.ImportWildcard {
		t.Errorf("wildcard use: %+v", res.Imports)
	}
}

func TestRustModDeclaration(t *testing.T) {
	src := `pub mod handlers;
mod inline_mod {
    pub fn inner() {}
}
`
	res := parseRust(t, src)

	var modDecl *model.ImportRecord
	for i := range res.Imports {
		if res.Imports[i].ModDecl {
			modDecl = &res.Imports[i]
		}
	}
	if modDecl == nil {
		t.Fatalf("mod declaration import missing: %+v", res.Imports)
	}
	if modDecl.Specifier != ModDeclPrefix+"handlers" {
		t.Errorf("mod decl specifier = %q", modDecl.Specifier)
	}

	// Inline mods produce a module symbol and nested scope, not an import.
	for _, imp := range res.Imports {
		if imp.Specifier == ModDeclPrefix+"inline_mod" {
			t.Error("inline mod must not produce a structural import")
		}
	}
	inner := findSymbol(res, "inner", model.KindFunction)
	if inner == nil {
		t.Fatal("nested fn missing")
	}
	if inner.QualifiedName != "service.inline_mod.inner" {
		t.Errorf("nested qualified name = %q", inner.QualifiedName)
	}
}

func TestRustPubUseReexport(t *testing.T) {
	src := `pub use crate::model::User;
pub use crate::model::*;
`
	res := parseRust(t, src)

	user := findExport(res, "User")
	if user == nil || !user.Reexport || user.Source != "crate::model::User" {
		t.Errorf("pub use re-export: %+v", res.Exports)
	}
	star := findExport(res, model.WildcardName)
	if star == nil || !star.Reexport || star.Source != "crate::model" {
		t.Errorf("pub use wildcard: %+v", res.Exports)
	}
}

func TestRustExternCrate(t *testing.T) {
	res := parseRust(t, "extern crate serde;\n")
	if len(res.Imports) != 1 || res.Imports[0].Specifier != ExternCratePrefix+"serde" {
		t.Errorf("extern crate: %+v", res.Imports)
	}
}

func TestRustImplBlock(t *testing.T) {
	src := `pub struct Server;

impl Server {
    pub fn start(&self) { listen(); }
}

impl Drop for Server {
    fn drop(&mut self) {}
}
`
	res := parseRust(t, src)

	server := findSymbol(res, "Server", model.KindStruct)
	start := findSymbol(res, "start", model.KindMethod)
	if server == nil || start == nil {
		t.Fatalf("impl method extraction: %+v", res.Symbols)
	}
	if start.Parent != server.Id {
		t.Error("impl method parent should be the struct")
	}
	if start.QualifiedName != "service.Server.start" {
		t.Errorf("method qualified name = %q", start.QualifiedName)
	}

	var inheritance bool
	for _, ref := range res.References {
		if ref.Kind == model.RefInheritance && ref.TargetName == "Drop" {
			inheritance = true
		}
	}
	if !inheritance {
		t.Error("impl Trait for T should record an inheritance reference")
	}
}

func TestRustCallAndStructExpr(t *testing.T) {
	src := `pub struct Point { x: i32 }

pub fn build() -> Point {
    init();
    Point { x: compute() }
}
`
	res := parseRust(t, src)
	var calls, typeUses []string
	for _, ref := range res.References {
		switch ref.Kind {
		case model.RefCall:
			calls = append(calls, ref.TargetName)
		case model.RefTypeUsage:
			typeUses = append(typeUses, ref.TargetName)
		}
	}
	if !contains(calls, "init") || !contains(calls, "compute") {
		t.Errorf("calls = %v", calls)
	}
	if !contains(typeUses, "Point") {
		t.Errorf("struct expression type usage missing: %v", typeUses)
	}
}

func TestRustModulePathQualifiedNames(t *testing.T) {
	res := parseRustAt(t, "pub fn run() {}\n", "src/net/tcp.rs")
	sym := findSymbol(res, "run", model.KindFunction)
	if sym == nil || sym.QualifiedName != "net.tcp.run" {
		t.Errorf("path-derived qualified name: %+v", sym)
	}

	res = parseRustAt(t, "pub fn run() {}\n", "src/net/mod.rs")
	sym = findSymbol(res, "run", model.KindFunction)
	if sym == nil || sym.QualifiedName != "net.run" {
		t.Errorf("mod.rs qualified name: %+v", sym)
	}

	res = parseRustAt(t, "pub fn run() {}\n", "src/lib.rs")
	sym = findSymbol(res, "run", model.KindFunction)
	if sym == nil || sym.QualifiedName != "run" {
		t.Errorf("crate-root qualified name: %+v", sym)
	}
}

func TestRustMacroExport(t *testing.T) {
	src := `#[macro_export]
macro_rules! exported_macro { () => {} }
`
	res := parseRust(t, src)
	sym := findSymbol(res, "exported_macro", model.KindMacro)
	if sym == nil || sym.Visibility != model.VisPublic {
		t.Errorf("#[macro_export] macro: %+v", sym)
	}
}
