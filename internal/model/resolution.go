package model

// ResolutionKind discriminates the outcome of resolving an import specifier.
type ResolutionKind string

const (
	ResolutionResolved   ResolutionKind = "resolved"
	ResolutionCaveat     ResolutionKind = "resolved_with_caveat"
	ResolutionExternal   ResolutionKind = "external"
	ResolutionUnresolved ResolutionKind = "unresolved"
)

// Caveat reduces confidence in an otherwise successful resolution.
type Caveat string

const (
	// CaveatBarrelWildcard: resolved through an `export *` barrel; the
	// specific symbol may not exist on the other side.
	CaveatBarrelWildcard Caveat = "barrel_wildcard"
	// CaveatAmbiguousIndex: several index files or alias substitutions could
	// match; the first resolving candidate was taken.
	CaveatAmbiguousIndex Caveat = "ambiguous_index"
	// CaveatPathAlias: resolved via a tsconfig `paths` mapping.
	CaveatPathAlias Caveat = "path_alias"
	// CaveatAmbiguousModule: both `foo.rs` and `foo/mod.rs` exist (E0761).
	CaveatAmbiguousModule Caveat = "ambiguous_module"
)

// UnresolvedReason documents why an import could not be resolved.
type UnresolvedReason string

const (
	UnresolvedDynamicPath       UnresolvedReason = "dynamic_path"
	UnresolvedFileNotFound      UnresolvedReason = "file_not_found"
	UnresolvedUnsupportedSyntax UnresolvedReason = "unsupported_syntax"
	UnresolvedNodeModules       UnresolvedReason = "node_modules"
	UnresolvedClasspath         UnresolvedReason = "classpath"
	UnresolvedExternalCrate     UnresolvedReason = "external_crate"
	UnresolvedAmbiguousModule   UnresolvedReason = "ambiguous_module"
)

// Resolution is the outcome of interpreting one import specifier. A resolver
// may return several resolutions for a single specifier (wildcard imports).
type Resolution struct {
	Kind ResolutionKind `json:"kind"`
	// Path is the project-relative path of the resolved file for Resolved
	// and ResolvedWithCaveat.
	Path    string           `json:"path,omitempty"`
	Caveat  Caveat           `json:"caveat,omitempty"`
	Package string           `json:"package,omitempty"` // External package name
	Reason  UnresolvedReason `json:"reason,omitempty"`
	Detail  string           `json:"detail,omitempty"`
}

// Resolved constructs a plain resolution to a project-relative path.
func Resolved(path string) Resolution {
	return Resolution{Kind: ResolutionResolved, Path: path}
}

// ResolvedWithCaveat constructs a resolution carrying a precision caveat.
func ResolvedWithCaveat(path string, caveat Caveat) Resolution {
	return Resolution{Kind: ResolutionCaveat, Path: path, Caveat: caveat}
}

// External constructs a resolution pointing outside the project.
func External(pkg string) Resolution {
	return Resolution{Kind: ResolutionExternal, Package: pkg}
}

// Unresolved constructs a failed resolution with a documented reason.
func Unresolved(reason UnresolvedReason, detail string) Resolution {
	return Resolution{Kind: ResolutionUnresolved, Reason: reason, Detail: detail}
}

// IsResolved reports whether the resolution points at a project file.
func (r Resolution) IsResolved() bool {
	return r.Kind == ResolutionResolved || r.Kind == ResolutionCaveat
}
