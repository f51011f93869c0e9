package config

import (
	"strings"
	"testing"

	staterr "statik/internal/errors"
)

func TestParseBoundaryRule(t *testing.T) {
	data := `
[[rules]]
id = "no-ui-to-db"
severity = "error"
description = "UI layer must not import from database layer"
rationale = "The UI should go through the service layer"
fix_direction = "Import from src/services/ instead"

[rules.boundary]
from = ["src/ui/**", "src/components/**"]
deny = ["src/db/**"]
except = ["src/db/types.ts"]
`
	cfg, err := Parse([]byte(data), "rules.toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Rules) != 1 {
		t.Fatalf("rules: %+v", cfg.Rules)
	}
	rule := cfg.Rules[0]
	if rule.Id != "no-ui-to-db" || rule.Severity != SeverityError {
		t.Errorf("rule header: %+v", rule)
	}
	if rule.Boundary == nil || len(rule.Boundary.From) != 2 || rule.Boundary.Except[0] != "src/db/types.ts" {
		t.Errorf("boundary table: %+v", rule.Boundary)
	}
}

func TestParseAllRuleKinds(t *testing.T) {
	data := `
[[rules]]
id = "layers"
severity = "error"
description = "layer ordering"
[rules.layer]
layers = [
  { name = "presentation", patterns = ["src/ui/**"] },
  { name = "data", patterns = ["src/db/**"] },
]

[[rules]]
id = "containment"
severity = "warning"
description = "module API"
[rules.containment]
module = ["src/auth/**"]
public_api = ["src/auth/index.ts"]

[[rules]]
id = "restriction"
severity = "info"
description = "type-only"
[rules.import_restriction]
target = ["src/types/**"]
require_type_only = true

[[rules]]
id = "fan"
severity = "warning"
description = "fan limits"
[rules.fan_limit]
pattern = ["src/**"]
max_fan_out = 10

[[rules]]
id = "tags"
severity = "error"
description = "tag boundary"
[rules.tag_boundary]
from_tag = ["ui"]
deny_tags = ["db"]

[[rules]]
id = "cycles"
severity = "warning"
description = "cycle cap"
[rules.cycle_policy]
max_cycle_length = 3

[[rules]]
id = "stability"
severity = "info"
description = "instability cap"
[rules.stability]
pattern = ["src/core/**"]
max_instability = 0.5

[[rules]]
id = "naming"
severity = "info"
description = "naming"
[rules.naming_boundary]
pattern = ["src/hooks/**"]
must_match = "^src/hooks/use[A-Z].*"

[[rules]]
id = "consumers"
severity = "error"
description = "consumers"
[rules.restricted_consumer]
target = ["src/billing/**"]
allowed_consumers = ["src/api/**"]

[[rules]]
id = "exports"
severity = "info"
description = "export cap"
[rules.export_limit]
pattern = ["src/**"]
max_exports = 20

[[rules]]
id = "coupling"
severity = "info"
description = "edge weight"
[rules.coupling_weight]
max_names = 15

[[rules]]
id = "cohesion"
severity = "info"
description = "cohesion"
[rules.cohesion]
pattern = ["src/features/**"]
max_external_ratio = 0.6
`
	cfg, err := Parse([]byte(data), "rules.toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Rules) != 12 {
		t.Fatalf("rule count = %d", len(cfg.Rules))
	}
}

func TestParseTagsScopesEntryPoints(t *testing.T) {
	data := `
[tags]
ui = ["src/ui/**"]
db = ["src/db/**", "src/dao/**"]

[scope.generated]
include = ["gen/**"]
lint = false
analysis = false

[scope.tests]
include = ["**/*.test.ts"]
role = "entry_point"
source_roots = ["src/test/java"]

[entry_points]
patterns = ["**/Bootstrap.java"]
annotations = ["Scheduled"]
`
	cfg, err := Parse([]byte(data), "rules.toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Tags["db"]) != 2 {
		t.Errorf("tags: %+v", cfg.Tags)
	}
	gen := cfg.Scopes["generated"]
	if gen.LintEnabled() || gen.AnalysisEnabled() {
		t.Errorf("generated scope flags: %+v", gen)
	}
	tests := cfg.Scopes["tests"]
	if tests.Role != "entry_point" || !tests.LintEnabled() {
		t.Errorf("tests scope: %+v", tests)
	}
	if cfg.EntryPoints.Patterns[0] != "**/Bootstrap.java" || cfg.EntryPoints.Annotations[0] != "Scheduled" {
		t.Errorf("entry points: %+v", cfg.EntryPoints)
	}
	if got := cfg.JavaSourceRoots(); len(got) != 1 || got[0] != "src/test/java" {
		t.Errorf("source roots: %v", got)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{
			"missing description",
			"[[rules]]\nid = \"x\"\nseverity = \"error\"\n[rules.boundary]\nfrom = [\"a/**\"]\ndeny = [\"b/**\"]\n",
			"no description",
		},
		{
			"no rule table",
			"[[rules]]\nid = \"x\"\nseverity = \"error\"\ndescription = \"d\"\n",
			"no rule-type table",
		},
		{
			"two rule tables",
			"[[rules]]\nid = \"x\"\nseverity = \"error\"\ndescription = \"d\"\n[rules.boundary]\nfrom = [\"a\"]\ndeny = [\"b\"]\n[rules.cycle_policy]\nmax_cycle_length = 2\n",
			"multiple rule-type tables",
		},
		{
			"bad severity",
			"[[rules]]\nid = \"x\"\nseverity = \"fatal\"\ndescription = \"d\"\n[rules.boundary]\nfrom = [\"a\"]\ndeny = [\"b\"]\n",
			"invalid severity",
		},
		{
			"duplicate ids",
			"[[rules]]\nid = \"x\"\nseverity = \"error\"\ndescription = \"d\"\n[rules.boundary]\nfrom = [\"a\"]\ndeny = [\"b\"]\n[[rules]]\nid = \"x\"\nseverity = \"error\"\ndescription = \"d\"\n[rules.boundary]\nfrom = [\"a\"]\ndeny = [\"b\"]\n",
			"duplicate rule id",
		},
		{
			"bad scope role",
			"[scope.weird]\ninclude = [\"x/**\"]\nrole = \"sidecar\"\n",
			"unknown role",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data), "rules.toml")
			if err == nil {
				t.Fatal("expected error")
			}
			if staterr.CodeOf(err) != staterr.ConfigInvalid {
				t.Errorf("error code = %v", staterr.CodeOf(err))
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingConfigIsEmpty(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Rules) != 0 || len(cfg.Scopes) != 0 {
		t.Errorf("empty config expected: %+v", cfg)
	}
}

func TestLoadMissingOverrideIsFatal(t *testing.T) {
	_, err := Load(t.TempDir(), "nope.toml")
	if err == nil || staterr.CodeOf(err) != staterr.ConfigInvalid {
		t.Errorf("missing override should be CONFIG_INVALID, got %v", err)
	}
}
