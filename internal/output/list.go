package output

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	staterr "statik/internal/errors"
)

// ListOptions post-process the primary result list: --path-filter, --sort,
// --reverse, --limit, --count, and --absolute-paths.
type ListOptions struct {
	SortField  string // path, confidence, name, depth
	Reverse    bool
	Limit      int // 0 = unlimited
	Count      bool
	PathFilter string
	// AbsoluteRoot, when set, rewrites path fields to absolute paths.
	AbsoluteRoot string
}

// IsZero reports whether no post-processing was requested.
func (o ListOptions) IsZero() bool {
	return o.SortField == "" && !o.Reverse && o.Limit == 0 && !o.Count &&
		o.PathFilter == "" && o.AbsoluteRoot == ""
}

var confidenceRank = map[string]int{"low": 0, "medium": 1, "high": 2, "certain": 3}

// sortKeys maps --sort values to the JSON fields they order by.
var sortKeys = map[string][]string{
	"path":       {"path", "sourceFile", "from", "target"},
	"name":       {"name", "qualifiedName", "ruleId"},
	"depth":      {"depth", "length", "line"},
	"confidence": {"confidence"},
}

// Apply rewrites a result document according to the list options. The
// primary list is the largest top-level array of objects; documents without
// one pass through unchanged (count reports 0 for them).
func Apply(v interface{}, opts ListOptions) (interface{}, error) {
	if opts.IsZero() {
		return v, nil
	}
	if opts.SortField != "" {
		if _, ok := sortKeys[opts.SortField]; !ok {
			return nil, staterr.Newf(staterr.ConfigInvalid, "invalid sort field %q (expected path, confidence, name, or depth)", opts.SortField)
		}
	}

	// Round-trip through JSON to manipulate the document generically.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	if opts.AbsoluteRoot != "" {
		doc = absolutizePaths(doc, opts.AbsoluteRoot)
	}

	obj, ok := doc.(map[string]interface{})
	if !ok {
		if list, ok := doc.([]interface{}); ok {
			list = processList(list, opts)
			if opts.Count {
				return map[string]interface{}{"count": len(list)}, nil
			}
			return list, nil
		}
		return doc, nil
	}

	key, list := primaryList(obj)
	if key == "" {
		if opts.Count {
			return map[string]interface{}{"count": 0}, nil
		}
		return doc, nil
	}

	list = processList(list, opts)
	if opts.Count {
		return map[string]interface{}{"count": len(list)}, nil
	}
	obj[key] = list
	return obj, nil
}

// pathFields are the keys treated as project-relative paths.
var pathFields = map[string]bool{
	"path": true, "sourceFile": true, "targetFile": true,
	"from": true, "to": true, "target": true,
}

// absolutizePaths rewrites path fields to absolute paths rooted at the
// project directory.
func absolutizePaths(doc interface{}, root string) interface{} {
	switch v := doc.(type) {
	case map[string]interface{}:
		for key, value := range v {
			if s, ok := value.(string); ok && pathFields[key] && s != "" && !filepath.IsAbs(s) {
				v[key] = filepath.Join(root, filepath.FromSlash(s))
				continue
			}
			v[key] = absolutizePaths(value, root)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = absolutizePaths(item, root)
		}
		return v
	default:
		return doc
	}
}

func processList(list []interface{}, opts ListOptions) []interface{} {
	if opts.PathFilter != "" {
		var kept []interface{}
		for _, item := range list {
			if matchesPathFilter(item, opts.PathFilter) {
				kept = append(kept, item)
			}
		}
		list = kept
	}
	if opts.SortField != "" {
		keys := sortKeys[opts.SortField]
		sort.SliceStable(list, func(i, j int) bool {
			return lessByKeys(list[i], list[j], keys)
		})
	}
	if opts.Reverse {
		for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
			list[i], list[j] = list[j], list[i]
		}
	}
	if opts.Limit > 0 && len(list) > opts.Limit {
		list = list[:opts.Limit]
	}
	return list
}

// matchesPathFilter keeps list entries whose path-like field matches the
// glob. Entries without a path field always survive.
func matchesPathFilter(item interface{}, glob string) bool {
	m, ok := item.(map[string]interface{})
	if !ok {
		return true
	}
	for _, key := range []string{"path", "sourceFile", "from"} {
		if s, ok := m[key].(string); ok && s != "" {
			match, err := doublestar.Match(glob, s)
			return err == nil && match
		}
	}
	return true
}

// primaryList finds the largest top-level array of the document.
func primaryList(obj map[string]interface{}) (string, []interface{}) {
	bestKey := ""
	var bestList []interface{}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if list, ok := obj[k].([]interface{}); ok {
			if bestKey == "" || len(list) > len(bestList) {
				bestKey, bestList = k, list
			}
		}
	}
	return bestKey, bestList
}

func lessByKeys(a, b interface{}, keys []string) bool {
	am, aok := a.(map[string]interface{})
	bm, bok := b.(map[string]interface{})
	if !aok || !bok {
		return false
	}
	for _, key := range keys {
		av, aexists := am[key]
		bv, bexists := bm[key]
		if !aexists || !bexists {
			continue
		}
		if cmp := compareValues(key, av, bv); cmp != 0 {
			return cmp < 0
		}
	}
	return false
}

func compareValues(key string, a, b interface{}) int {
	if key == "confidence" {
		ar, br := confidenceRank[toString(a)], confidenceRank[toString(b)]
		switch {
		case ar < br:
			return -1
		case ar > br:
			return 1
		default:
			return 0
		}
	}
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	}
	return 0
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
