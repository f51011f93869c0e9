package parser

import (
	"regexp"
	"strings"

	"statik/internal/model"
)

// Suppression comments have the form `// statik-ignore[rule-id]` or
// `// statik-ignore` and apply to the following source line. All three
// supported languages use `//` line comments.
var suppressionRe = regexp.MustCompile(`//\s*statik-ignore(?:\[([A-Za-z0-9_.-]+)\])?\s*$`)

// scanSuppressions extracts suppression comments from raw source. It runs on
// text rather than the CST so that a file with parse errors keeps its
// suppressions.
func scanSuppressions(fileId model.FileId, source []byte) []model.Suppression {
	var out []model.Suppression
	lines := strings.Split(string(source), "\n")
	for i, line := range lines {
		m := suppressionRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, model.Suppression{
			File:   fileId,
			Line:   i + 2, // attaches to the line after the comment
			RuleId: m[1],
		})
	}
	return out
}
