package resolver

import (
	"encoding/json"
	"os"
	"path"
	"regexp"
	"strings"
)

// TsConfig carries the compilerOptions subset relevant to resolution:
// baseUrl and the paths alias map.
type TsConfig struct {
	BaseUrl string
	Paths   map[string][]string
}

type tsconfigFile struct {
	CompilerOptions struct {
		BaseUrl string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// tsconfig.json is JSONC in practice; strip comments and trailing commas
// before decoding. String literals are matched first so that a `/*` inside a
// string (as in "@/*") is kept.
var (
	lineCommentRe  = regexp.MustCompile(`(?m)^\s*//.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)("(?:[^"\\]|\\.)*")|/\*.*?\*/`)
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
)

// LoadTsConfig parses a tsconfig.json file.
func LoadTsConfig(absPath string) (*TsConfig, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	return ParseTsConfig(data)
}

// ParseTsConfig parses tsconfig.json contents.
func ParseTsConfig(data []byte) (*TsConfig, error) {
	cleaned := blockCommentRe.ReplaceAll(data, []byte("$1"))
	cleaned = lineCommentRe.ReplaceAll(cleaned, nil)
	cleaned = trailingComma.ReplaceAll(cleaned, []byte("$1"))

	var file tsconfigFile
	if err := json.Unmarshal(cleaned, &file); err != nil {
		return nil, err
	}
	cfg := &TsConfig{
		BaseUrl: file.CompilerOptions.BaseUrl,
		Paths:   file.CompilerOptions.Paths,
	}
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = "."
	}
	return cfg, nil
}

// ResolveAlias expands a specifier against the paths map. Each returned
// candidate is a baseUrl-relative path still subject to extension probing.
// The second result is the number of alias patterns that matched.
func (c *TsConfig) ResolveAlias(specifier string) ([]string, int) {
	if c == nil || len(c.Paths) == 0 {
		return nil, 0
	}

	var candidates []string
	matched := 0
	for pattern, targets := range c.Paths {
		captured, ok := matchAliasPattern(pattern, specifier)
		if !ok {
			continue
		}
		matched++
		for _, target := range targets {
			substituted := strings.Replace(target, "*", captured, 1)
			candidates = append(candidates, path.Join(c.BaseUrl, substituted))
		}
	}
	return candidates, matched
}

// matchAliasPattern matches a specifier against a paths pattern with at most
// one `*`, returning the captured wildcard text.
func matchAliasPattern(pattern, specifier string) (string, bool) {
	star := strings.Index(pattern, "*")
	if star < 0 {
		if pattern == specifier {
			return "", true
		}
		return "", false
	}
	prefix, suffix := pattern[:star], pattern[star+1:]
	if !strings.HasPrefix(specifier, prefix) || !strings.HasSuffix(specifier, suffix) {
		return "", false
	}
	if len(specifier) < len(prefix)+len(suffix) {
		return "", false
	}
	return specifier[len(prefix) : len(specifier)-len(suffix)], true
}
