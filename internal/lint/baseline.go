package lint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	staterr "statik/internal/errors"
	"statik/internal/storage"
)

// BaselineFileName is the baseline document inside the .statik directory.
const BaselineFileName = "lint-baseline.json"

// BaselineEntry identifies one known violation. The line number is omitted
// deliberately: unrelated edits must not break suppression.
type BaselineEntry struct {
	RuleId     string `json:"rule_id"`
	SourceFile string `json:"source_file"`
	TargetFile string `json:"target_file"`
}

// Baseline is the persisted set of accepted violations.
type Baseline struct {
	Version   int             `json:"version"`
	CreatedAt string          `json:"created_at"`
	Entries   []BaselineEntry `json:"entries"`

	index map[BaselineEntry]bool
}

func baselinePath(projectRoot string) string {
	return filepath.Join(projectRoot, storage.StoreDirName, BaselineFileName)
}

// LoadBaseline reads the project baseline. A missing file yields nil.
func LoadBaseline(projectRoot string) (*Baseline, error) {
	data, err := os.ReadFile(baselinePath(projectRoot))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, staterr.New(staterr.PersistenceIO, "failed to read lint baseline", err)
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, staterr.New(staterr.ConfigInvalid, "failed to parse lint baseline", err)
	}
	b.buildIndex()
	return &b, nil
}

// NewBaseline freezes the given violations into a baseline document.
func NewBaseline(violations []Violation) *Baseline {
	b := &Baseline{
		Version:   1,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	seen := map[BaselineEntry]bool{}
	for _, v := range violations {
		entry := BaselineEntry{RuleId: v.RuleId, SourceFile: v.SourceFile, TargetFile: v.TargetFile}
		if !seen[entry] {
			seen[entry] = true
			b.Entries = append(b.Entries, entry)
		}
	}
	b.buildIndex()
	return b
}

// Save writes the baseline under the project's .statik directory.
func (b *Baseline) Save(projectRoot string) error {
	path := baselinePath(projectRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return staterr.New(staterr.PersistenceIO, "failed to create "+storage.StoreDirName, err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return staterr.New(staterr.PersistenceIO, "failed to write lint baseline", err)
	}
	return nil
}

// Contains reports whether a (rule, source, target) triple is known.
func (b *Baseline) Contains(ruleId, sourceFile, targetFile string) bool {
	return b.index[BaselineEntry{RuleId: ruleId, SourceFile: sourceFile, TargetFile: targetFile}]
}

func (b *Baseline) buildIndex() {
	b.index = make(map[BaselineEntry]bool, len(b.Entries))
	for _, e := range b.Entries {
		b.index[e] = true
	}
}
