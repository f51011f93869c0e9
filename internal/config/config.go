// Package config loads the project configuration: lint rules, tags, source
// sets, and entry-point extensions. The file is TOML, searched at
// .statik/rules.toml then statik.toml unless an explicit path is given.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	staterr "statik/internal/errors"
)

// configFilenames are searched in order under the project root.
var configFilenames = []string{".statik/rules.toml", "statik.toml"}

// Severity level for a lint rule.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Order ranks severities for sorting; errors first.
func (s Severity) Order() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Config is the complete project configuration.
type Config struct {
	Rules       []RuleDefinition       `toml:"rules"`
	Tags        map[string][]string    `toml:"tags"`
	Scopes      map[string]ScopeConfig `toml:"scope"`
	EntryPoints EntryPointConfig       `toml:"entry_points"`
}

// RuleDefinition is one lint rule. Exactly one of the kind-specific
// sub-tables must be present.
type RuleDefinition struct {
	Id           string   `toml:"id"`
	Severity     Severity `toml:"severity"`
	Description  string   `toml:"description"`
	Rationale    string   `toml:"rationale"`
	FixDirection string   `toml:"fix_direction"`

	Boundary           *BoundaryRule           `toml:"boundary"`
	Layer              *LayerRule              `toml:"layer"`
	Containment        *ContainmentRule        `toml:"containment"`
	ImportRestriction  *ImportRestrictionRule  `toml:"import_restriction"`
	FanLimit           *FanLimitRule           `toml:"fan_limit"`
	TagBoundary        *TagBoundaryRule        `toml:"tag_boundary"`
	CyclePolicy        *CyclePolicyRule        `toml:"cycle_policy"`
	Stability          *StabilityRule          `toml:"stability"`
	NamingBoundary     *NamingBoundaryRule     `toml:"naming_boundary"`
	RestrictedConsumer *RestrictedConsumerRule `toml:"restricted_consumer"`
	ExportLimit        *ExportLimitRule        `toml:"export_limit"`
	CouplingWeight     *CouplingWeightRule     `toml:"coupling_weight"`
	Cohesion           *CohesionRule           `toml:"cohesion"`
}

// BoundaryRule forbids edges from one path set into another.
type BoundaryRule struct {
	From   []string `toml:"from"`
	Deny   []string `toml:"deny"`
	Except []string `toml:"except"`
}

// LayerRule orders layers top-down; lower layers must not import higher ones.
type LayerRule struct {
	Layers []LayerDefinition `toml:"layers"`
}

// LayerDefinition names one layer and its path patterns.
type LayerDefinition struct {
	Name     string   `toml:"name"`
	Patterns []string `toml:"patterns"`
}

// ContainmentRule restricts external access to a module's public API files.
type ContainmentRule struct {
	Module    []string `toml:"module"`
	PublicAPI []string `toml:"public_api"`
}

// ImportRestrictionRule constrains edges into a target path set.
type ImportRestrictionRule struct {
	Target          []string `toml:"target"`
	RequireTypeOnly bool     `toml:"require_type_only"`
	ForbiddenNames  []string `toml:"forbidden_names"`
	AllowedNames    []string `toml:"allowed_names"`
}

// FanLimitRule caps a file's in/out degree.
type FanLimitRule struct {
	Pattern   []string `toml:"pattern"`
	MaxFanIn  *int     `toml:"max_fan_in"`
	MaxFanOut *int     `toml:"max_fan_out"`
}

// TagBoundaryRule forbids edges between tagged path sets.
type TagBoundaryRule struct {
	FromTag    []string `toml:"from_tag"`
	DenyTags   []string `toml:"deny_tags"`
	ExceptTags []string `toml:"except_tags"`
}

// CyclePolicyRule caps the length of reported dependency cycles.
type CyclePolicyRule struct {
	MaxCycleLength int `toml:"max_cycle_length"`
}

// StabilityRule caps fan_out / (fan_in + fan_out).
type StabilityRule struct {
	Pattern        []string `toml:"pattern"`
	MaxInstability float64  `toml:"max_instability"`
}

// NamingBoundaryRule requires file paths to match a regex.
type NamingBoundaryRule struct {
	Pattern   []string `toml:"pattern"`
	MustMatch string   `toml:"must_match"`
}

// RestrictedConsumerRule allows only listed consumers to import a target.
type RestrictedConsumerRule struct {
	Target           []string `toml:"target"`
	AllowedConsumers []string `toml:"allowed_consumers"`
}

// ExportLimitRule caps a file's export count.
type ExportLimitRule struct {
	Pattern    []string `toml:"pattern"`
	MaxExports int      `toml:"max_exports"`
}

// CouplingWeightRule caps the distinct imported names on a single edge.
type CouplingWeightRule struct {
	MaxNames int `toml:"max_names"`
}

// CohesionRule caps a directory's external_deps / total_deps ratio.
type CohesionRule struct {
	Pattern          []string `toml:"pattern"`
	MaxExternalRatio float64  `toml:"max_external_ratio"`
}

// ScopeConfig defines a named source set.
type ScopeConfig struct {
	Include     []string `toml:"include"`
	Exclude     []string `toml:"exclude"`
	Role        string   `toml:"role"` // "entry_point" marks all files as roots
	Lint        *bool    `toml:"lint"`
	Analysis    *bool    `toml:"analysis"`
	SourceRoots []string `toml:"source_roots"` // Java
}

// LintEnabled reports the scope's lint flag (default true).
func (s ScopeConfig) LintEnabled() bool {
	return s.Lint == nil || *s.Lint
}

// AnalysisEnabled reports the scope's analysis flag (default true).
func (s ScopeConfig) AnalysisEnabled() bool {
	return s.Analysis == nil || *s.Analysis
}

// EntryPointConfig extends the built-in entry-point detection.
type EntryPointConfig struct {
	Patterns    []string `toml:"patterns"`
	Annotations []string `toml:"annotations"`
}

// FindPath locates the config file. An explicit override must exist;
// otherwise the standard names are probed and "" means no config.
func FindPath(projectRoot, override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", staterr.Newf(staterr.ConfigInvalid, "config file not found: %s", override)
		}
		return override, nil
	}
	for _, name := range configFilenames {
		p := filepath.Join(projectRoot, filepath.FromSlash(name))
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Load reads the project configuration. A missing file yields an empty
// config; an invalid file is fatal before any work.
func Load(projectRoot, override string) (*Config, error) {
	path, err := FindPath(projectRoot, override)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, staterr.New(staterr.ConfigInvalid, "failed to read "+path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates configuration TOML.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		msg := fmt.Sprintf("failed to parse %s", path)
		if pe, ok := err.(toml.ParseError); ok {
			msg = fmt.Sprintf("failed to parse %s at line %d", path, pe.Position.Line)
		}
		return nil, staterr.New(staterr.ConfigInvalid, msg, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, staterr.Newf(staterr.ConfigInvalid, "unknown key %q in %s", undecoded[0].String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural rules the TOML decoder cannot express.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i := range c.Rules {
		rule := &c.Rules[i]
		if rule.Id == "" {
			return staterr.Newf(staterr.ConfigInvalid, "rule %d has no id", i+1)
		}
		if seen[rule.Id] {
			return staterr.Newf(staterr.ConfigInvalid, "duplicate rule id %q", rule.Id)
		}
		seen[rule.Id] = true

		switch rule.Severity {
		case SeverityError, SeverityWarning, SeverityInfo:
		default:
			return staterr.Newf(staterr.ConfigInvalid, "rule %q has invalid severity %q", rule.Id, rule.Severity)
		}
		if rule.Description == "" {
			return staterr.Newf(staterr.ConfigInvalid, "rule %q has no description", rule.Id)
		}

		kinds := rule.kindCount()
		if kinds == 0 {
			return staterr.Newf(staterr.ConfigInvalid, "rule %q has no rule-type table", rule.Id)
		}
		if kinds > 1 {
			return staterr.Newf(staterr.ConfigInvalid, "rule %q has multiple rule-type tables", rule.Id)
		}
	}

	for name, scope := range c.Scopes {
		if scope.Role != "" && scope.Role != "entry_point" {
			return staterr.Newf(staterr.ConfigInvalid, "scope %q has unknown role %q", name, scope.Role)
		}
	}
	return nil
}

func (r *RuleDefinition) kindCount() int {
	count := 0
	for _, present := range []bool{
		r.Boundary != nil, r.Layer != nil, r.Containment != nil,
		r.ImportRestriction != nil, r.FanLimit != nil, r.TagBoundary != nil,
		r.CyclePolicy != nil, r.Stability != nil, r.NamingBoundary != nil,
		r.RestrictedConsumer != nil, r.ExportLimit != nil,
		r.CouplingWeight != nil, r.Cohesion != nil,
	} {
		if present {
			count++
		}
	}
	return count
}

// JavaSourceRoots collects source_roots from all scopes.
func (c *Config) JavaSourceRoots() []string {
	var roots []string
	for _, scope := range c.Scopes {
		roots = append(roots, scope.SourceRoots...)
	}
	return roots
}
