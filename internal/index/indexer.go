// Package index runs the extraction pipeline: discovery feeds a worker
// pool, one task per file, each worker holding its own parser instances;
// results stream into the persistence adapter as atomic per-file writes.
package index

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"statik/internal/discovery"
	staterr "statik/internal/errors"
	"statik/internal/logging"
	"statik/internal/model"
	"statik/internal/parser"
	"statik/internal/storage"
)

// Options configure one index run.
type Options struct {
	Include   []string
	Exclude   []string
	Languages []model.Language
	// Workers bounds the parse pool; 0 = available parallelism.
	Workers int
}

// Stats summarizes an index run.
type Stats struct {
	RunId        string `json:"runId"`
	FilesSeen    int    `json:"filesSeen"`
	FilesIndexed int    `json:"filesIndexed"`
	FilesSkipped int    `json:"filesSkipped"`
	FilesRemoved int    `json:"filesRemoved"`
	FilesPartial int    `json:"filesPartial"`
	FilesFailed  int    `json:"filesFailed"`
}

// Indexer drives the pipeline.
type Indexer struct {
	db     *storage.DB
	root   string
	logger *logging.Logger
}

// New creates an indexer for a project root.
func New(db *storage.DB, root string, logger *logging.Logger) *Indexer {
	return &Indexer{db: db, root: root, logger: logger}
}

// parseTask carries one file through the pool.
type parseTask struct {
	file discovery.File
}

// parseOutcome is a worker's result for one file.
type parseOutcome struct {
	file   discovery.File
	result model.ParseResult
	failed bool
}

// Run discovers candidate files, re-parses the changed ones, and removes
// records for files that disappeared. Cancellation aborts after the
// currently-parsing files complete their atomic write.
func (ix *Indexer) Run(ctx context.Context, opts Options) (*Stats, error) {
	files, err := discovery.Discover(ix.root, discovery.Options{
		Include:   opts.Include,
		Exclude:   opts.Exclude,
		Languages: opts.Languages,
	})
	if err != nil {
		return nil, err
	}

	stats := &Stats{RunId: uuid.NewString(), FilesSeen: len(files)}
	if err := ix.db.BeginRun(stats.RunId); err != nil {
		return nil, staterr.New(staterr.PersistenceIO, "failed to record index run", err)
	}

	// Skip files whose content fingerprint is unchanged.
	var tasks []parseTask
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Path] = true
		existing, err := ix.db.FileByPath(f.Path)
		if err != nil {
			return nil, staterr.New(staterr.PersistenceIO, "failed to read file record", err)
		}
		if existing != nil && existing.Fingerprint == f.Fingerprint {
			stats.FilesSkipped++
			continue
		}
		tasks = append(tasks, parseTask{file: f})
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tasks) && len(tasks) > 0 {
		workers = len(tasks)
	}

	taskCh := make(chan parseTask)
	outcomeCh := make(chan parseOutcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Parser state is not sharable; each worker holds its own
			// registry with per-language parser instances.
			registry := parser.NewRegistry()
			for task := range taskCh {
				outcomeCh <- ix.parseOne(registry, task)
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case <-ctx.Done():
				return
			case taskCh <- task:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomeCh)
	}()

	// Persistence is sequential: one atomic ReplaceFile per outcome, in
	// arrival order. Cross-file ordering is not observable.
	cancelled := false
	for outcome := range outcomeCh {
		if outcome.failed {
			stats.FilesFailed++
			continue
		}
		record := model.FileRecord{
			Id:          model.NewFileId(outcome.file.Path),
			Path:        outcome.file.Path,
			Language:    outcome.file.Language,
			Fingerprint: outcome.file.Fingerprint,
			Mtime:       outcome.file.Mtime,
			SourceSet:   model.DefaultSourceSet,
			Partial:     outcome.result.Partial,
		}
		if err := ix.db.ReplaceFile(record, outcome.result); err != nil {
			return nil, staterr.New(staterr.PersistenceIO, "failed to persist "+outcome.file.Path, err)
		}
		stats.FilesIndexed++
		if outcome.result.Partial {
			stats.FilesPartial++
			ix.logger.Warn("File parsed with errors", map[string]interface{}{
				"path": outcome.file.Path,
			})
		}
		if ctx.Err() != nil {
			cancelled = true
		}
	}

	if cancelled || ctx.Err() != nil {
		_ = ix.db.FinishRun(stats.RunId, stats.FilesSeen, stats.FilesIndexed, stats.FilesFailed)
		return stats, staterr.New(staterr.Cancelled, "indexing interrupted", ctx.Err())
	}

	// Files that disappeared from discovery lose their records.
	existing, err := ix.db.AllFiles()
	if err != nil {
		return nil, staterr.New(staterr.PersistenceIO, "failed to list indexed files", err)
	}
	for _, rec := range existing {
		if seen[rec.Path] {
			continue
		}
		if matchesRunScope(rec.Path, opts) {
			if err := ix.db.DeleteFile(rec.Id); err != nil {
				return nil, staterr.New(staterr.PersistenceIO, "failed to remove "+rec.Path, err)
			}
			stats.FilesRemoved++
		}
	}

	if err := ix.db.FinishRun(stats.RunId, stats.FilesSeen, stats.FilesIndexed, stats.FilesFailed); err != nil {
		return nil, staterr.New(staterr.PersistenceIO, "failed to finish index run", err)
	}

	ix.logger.Info("Index run complete", map[string]interface{}{
		"runId":   stats.RunId,
		"seen":    stats.FilesSeen,
		"indexed": stats.FilesIndexed,
		"skipped": stats.FilesSkipped,
		"removed": stats.FilesRemoved,
		"partial": stats.FilesPartial,
	})
	return stats, nil
}

// parseOne reads and parses a single file. No single bad file aborts the
// run: a read failure marks the outcome failed, and a parser error yields an
// empty, partial result.
func (ix *Indexer) parseOne(registry *parser.Registry, task parseTask) parseOutcome {
	source, err := os.ReadFile(task.file.AbsPath)
	if err != nil {
		ix.logger.Warn("Failed to read source file", map[string]interface{}{
			"path":  task.file.Path,
			"error": err.Error(),
		})
		return parseOutcome{file: task.file, failed: true}
	}

	fileId := model.NewFileId(task.file.Path)
	result, err := registry.Parse(fileId, source, task.file.Path, task.file.Language)
	if err != nil {
		ix.logger.Warn("Parser error", map[string]interface{}{
			"path":  task.file.Path,
			"error": err.Error(),
		})
		return parseOutcome{file: task.file, result: model.ParseResult{Partial: true}}
	}
	return parseOutcome{file: task.file, result: result}
}

// matchesRunScope restricts deletion to files the run's filters could have
// rediscovered, so a scoped index run does not drop the rest of the index.
func matchesRunScope(path string, opts Options) bool {
	if len(opts.Include) == 0 && len(opts.Exclude) == 0 && len(opts.Languages) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	if len(ext) > 0 {
		ext = ext[1:]
	}
	lang, ok := model.LanguageFromExtension(ext)
	if !ok {
		return false
	}
	if len(opts.Languages) > 0 {
		found := false
		for _, l := range opts.Languages {
			if l == lang {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return len(opts.Include) == 0
}
