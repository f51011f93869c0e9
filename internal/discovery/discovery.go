// Package discovery walks the project tree and yields candidate source
// files with their language and content fingerprint. It honours .gitignore
// and user include/exclude globs.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/minio/highwayhash"
	ignore "github.com/sabhiram/go-gitignore"

	"statik/internal/model"
	"statik/internal/storage"
)

// fingerprintKey is fixed so fingerprints are comparable across runs.
var fingerprintKey = [32]byte{
	0x66, 0x70, 0x2d, 0x6b, 0x65, 0x79, 0x2d, 0x76,
	0x31, 0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66,
	0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee,
	0xff, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd,
}

// File is one discovered candidate source file.
type File struct {
	// Path is project-relative with forward slashes.
	Path        string
	AbsPath     string
	Language    model.Language
	Fingerprint string
	Mtime       int64
}

// Options filter discovery.
type Options struct {
	Include   []string // doublestar globs; empty = everything
	Exclude   []string
	Languages []model.Language // empty = all supported
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	"target":       {},
	"build":        {},
	"out":          {},
	"dist":         {},
	"vendor":       {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	storage.StoreDirName: {},
}

// Discover walks root and returns candidate files sorted by path.
func Discover(root string, opts Options) ([]File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	gi := loadGitignore(absRoot)
	langSet := make(map[model.Language]struct{}, len(opts.Languages))
	for _, l := range opts.Languages {
		langSet[l] = struct{}{}
	}

	var results []File
	err = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		name := d.Name()

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if !matchesGlobs(rel, opts.Include, true) || matchesGlobs(rel, opts.Exclude, false) {
			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		lang, ok := model.LanguageFromExtension(ext)
		if !ok {
			return nil
		}
		if len(langSet) > 0 {
			if _, ok := langSet[lang]; !ok {
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		fp, err := fingerprint(path)
		if err != nil {
			return nil
		}

		results = append(results, File{
			Path:        rel,
			AbsPath:     path,
			Language:    lang,
			Fingerprint: fp,
			Mtime:       info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// matchesGlobs reports whether rel matches any of the patterns.
// emptyResult is returned for an empty pattern list.
func matchesGlobs(rel string, patterns []string, emptyResult bool) bool {
	if len(patterns) == 0 {
		return emptyResult
	}
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// fingerprint hashes a file's contents.
func fingerprint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := highwayhash.Sum64(data, fingerprintKey[:])
	return fmt.Sprintf("%016x", sum), nil
}
