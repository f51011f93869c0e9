package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"statik/internal/model"
)

// SQLite integers are signed; identifiers are stored as their two's
// complement int64 and converted back on read.
func fid(id model.FileId) int64    { return int64(id) }
func sid(id model.SymbolId) int64  { return int64(id) }
func toFid(v int64) model.FileId   { return model.FileId(uint64(v)) }
func toSid(v int64) model.SymbolId { return model.SymbolId(uint64(v)) }

// ReplaceFile atomically replaces a file record and all of its extraction
// rows. A file persisted with fingerprint F has exactly the symbol, import,
// export, and reference rows produced by parsing F.
func (db *DB) ReplaceFile(file model.FileRecord, res model.ParseResult) error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := deleteFileRows(tx, file.Id); err != nil {
			return err
		}

		_, err := tx.Exec(`
			INSERT INTO files (id, path, language, fingerprint, mtime, source_set, partial)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				path = excluded.path,
				language = excluded.language,
				fingerprint = excluded.fingerprint,
				mtime = excluded.mtime,
				source_set = excluded.source_set,
				partial = excluded.partial
		`, fid(file.Id), file.Path, string(file.Language), file.Fingerprint, file.Mtime, file.SourceSet, boolInt(file.Partial))
		if err != nil {
			return fmt.Errorf("failed to upsert file %s: %w", file.Path, err)
		}

		for _, s := range res.Symbols {
			_, err := tx.Exec(`
				INSERT INTO symbols (id, file_id, name, qualified_name, kind, line, col, end_line, parent, visibility, signature)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, sid(s.Id), fid(file.Id), s.Name, s.QualifiedName, string(s.Kind), s.Line, s.Column, s.EndLine, sid(s.Parent), string(s.Visibility), nullString(s.Signature))
			if err != nil {
				return fmt.Errorf("failed to insert symbol %s: %w", s.QualifiedName, err)
			}
		}

		for _, imp := range res.Imports {
			names, err := json.Marshal(imp.Names)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`
				INSERT INTO imports (file_id, specifier, names, type_only, dynamic, mod_decl, line)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, fid(file.Id), imp.Specifier, string(names), boolInt(imp.TypeOnly), boolInt(imp.Dynamic), boolInt(imp.ModDecl), imp.Line)
			if err != nil {
				return fmt.Errorf("failed to insert import %q: %w", imp.Specifier, err)
			}
		}

		for _, exp := range res.Exports {
			_, err := tx.Exec(`
				INSERT INTO exports (file_id, symbol_id, name, reexport, source, type_only, line)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, fid(file.Id), sid(exp.Symbol), exp.Name, boolInt(exp.Reexport), exp.Source, boolInt(exp.TypeOnly), exp.Line)
			if err != nil {
				return fmt.Errorf("failed to insert export %q: %w", exp.Name, err)
			}
		}

		for _, ref := range res.References {
			_, err := tx.Exec(`
				INSERT INTO refs (file_id, source_id, target_id, target_name, kind, line)
				VALUES (?, ?, ?, ?, ?, ?)
			`, fid(file.Id), sid(ref.Source), sid(ref.Target), ref.TargetName, string(ref.Kind), ref.Line)
			if err != nil {
				return fmt.Errorf("failed to insert reference: %w", err)
			}
		}

		for _, sup := range res.Suppressions {
			_, err := tx.Exec(`
				INSERT INTO suppressions (file_id, line, rule_id)
				VALUES (?, ?, ?)
			`, fid(file.Id), sup.Line, sup.RuleId)
			if err != nil {
				return fmt.Errorf("failed to insert suppression: %w", err)
			}
		}

		return nil
	})
}

// DeleteFile removes a file and all of its extraction rows.
func (db *DB) DeleteFile(id model.FileId) error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := deleteFileRows(tx, id); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM files WHERE id = ?", fid(id))
		return err
	})
}

func deleteFileRows(tx *sql.Tx, id model.FileId) error {
	for _, table := range []string{"symbols", "imports", "exports", "refs", "suppressions"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE file_id = ?", fid(id)); err != nil {
			return fmt.Errorf("failed to clear %s for file: %w", table, err)
		}
	}
	return nil
}

// FileByPath looks up a file record by its project-relative path.
// Returns nil when the path is not indexed.
func (db *DB) FileByPath(path string) (*model.FileRecord, error) {
	row := db.conn.QueryRow(`
		SELECT id, path, language, fingerprint, mtime, source_set, partial
		FROM files WHERE path = ?
	`, path)
	return scanFile(row)
}

// AllFiles returns every indexed file, ordered by path.
func (db *DB) AllFiles() ([]model.FileRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, language, fingerprint, mtime, source_set, partial
		FROM files ORDER BY path
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var files []model.FileRecord
	for rows.Next() {
		var f model.FileRecord
		var id int64
		var lang string
		var partial int
		if err := rows.Scan(&id, &f.Path, &lang, &f.Fingerprint, &f.Mtime, &f.SourceSet, &partial); err != nil {
			return nil, err
		}
		f.Id = toFid(id)
		f.Language = model.Language(lang)
		f.Partial = partial != 0
		files = append(files, f)
	}
	return files, rows.Err()
}

func scanFile(row *sql.Row) (*model.FileRecord, error) {
	var f model.FileRecord
	var id int64
	var lang string
	var partial int
	err := row.Scan(&id, &f.Path, &lang, &f.Fingerprint, &f.Mtime, &f.SourceSet, &partial)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.Id = toFid(id)
	f.Language = model.Language(lang)
	f.Partial = partial != 0
	return &f, nil
}

// ImportsByFile returns a file's import records in source order.
func (db *DB) ImportsByFile(id model.FileId) ([]model.ImportRecord, error) {
	rows, err := db.conn.Query(`
		SELECT file_id, specifier, names, type_only, dynamic, mod_decl, line
		FROM imports WHERE file_id = ? ORDER BY line
	`, fid(id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanImports(rows)
}

// AllImports returns every import record grouped by owning file.
func (db *DB) AllImports() (map[model.FileId][]model.ImportRecord, error) {
	rows, err := db.conn.Query(`
		SELECT file_id, specifier, names, type_only, dynamic, mod_decl, line
		FROM imports ORDER BY file_id, line
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	imports, err := scanImports(rows)
	if err != nil {
		return nil, err
	}
	grouped := make(map[model.FileId][]model.ImportRecord)
	for _, imp := range imports {
		grouped[imp.File] = append(grouped[imp.File], imp)
	}
	return grouped, nil
}

func scanImports(rows *sql.Rows) ([]model.ImportRecord, error) {
	var imports []model.ImportRecord
	for rows.Next() {
		var imp model.ImportRecord
		var fileId int64
		var names string
		var typeOnly, dynamic, modDecl int
		if err := rows.Scan(&fileId, &imp.Specifier, &names, &typeOnly, &dynamic, &modDecl, &imp.Line); err != nil {
			return nil, err
		}
		imp.File = toFid(fileId)
		imp.TypeOnly = typeOnly != 0
		imp.Dynamic = dynamic != 0
		imp.ModDecl = modDecl != 0
		if err := json.Unmarshal([]byte(names), &imp.Names); err != nil {
			return nil, fmt.Errorf("corrupt imported names for %q: %w", imp.Specifier, err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// ExportsByFile returns a file's export records in source order.
func (db *DB) ExportsByFile(id model.FileId) ([]model.ExportRecord, error) {
	rows, err := db.conn.Query(`
		SELECT file_id, symbol_id, name, reexport, source, type_only, line
		FROM exports WHERE file_id = ? ORDER BY line
	`, fid(id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanExports(rows)
}

// AllExports returns every export record grouped by owning file.
func (db *DB) AllExports() (map[model.FileId][]model.ExportRecord, error) {
	rows, err := db.conn.Query(`
		SELECT file_id, symbol_id, name, reexport, source, type_only, line
		FROM exports ORDER BY file_id, line
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	exports, err := scanExports(rows)
	if err != nil {
		return nil, err
	}
	grouped := make(map[model.FileId][]model.ExportRecord)
	for _, exp := range exports {
		grouped[exp.File] = append(grouped[exp.File], exp)
	}
	return grouped, nil
}

func scanExports(rows *sql.Rows) ([]model.ExportRecord, error) {
	var exports []model.ExportRecord
	for rows.Next() {
		var exp model.ExportRecord
		var fileId, symbolId int64
		var reexport, typeOnly int
		if err := rows.Scan(&fileId, &symbolId, &exp.Name, &reexport, &exp.Source, &typeOnly, &exp.Line); err != nil {
			return nil, err
		}
		exp.File = toFid(fileId)
		exp.Symbol = toSid(symbolId)
		exp.Reexport = reexport != 0
		exp.TypeOnly = typeOnly != 0
		exports = append(exports, exp)
	}
	return exports, rows.Err()
}

// SymbolsByFile returns a file's symbols in source order.
func (db *DB) SymbolsByFile(id model.FileId) ([]model.Symbol, error) {
	return db.querySymbols("WHERE file_id = ? ORDER BY line, col", fid(id))
}

// SymbolsByName returns symbols with the given display name.
func (db *DB) SymbolsByName(name string) ([]model.Symbol, error) {
	return db.querySymbols("WHERE name = ? ORDER BY file_id, line", name)
}

// SymbolsByKind returns all symbols of the given kind.
func (db *DB) SymbolsByKind(kind model.SymbolKind) ([]model.Symbol, error) {
	return db.querySymbols("WHERE kind = ? ORDER BY file_id, line", string(kind))
}

// AllSymbols returns every symbol in the index.
func (db *DB) AllSymbols() ([]model.Symbol, error) {
	return db.querySymbols("ORDER BY file_id, line, col")
}

func (db *DB) querySymbols(clause string, args ...interface{}) ([]model.Symbol, error) {
	rows, err := db.conn.Query(`
		SELECT id, file_id, name, qualified_name, kind, line, col, end_line, parent, visibility, signature
		FROM symbols `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var symbols []model.Symbol
	for rows.Next() {
		var s model.Symbol
		var id, fileId, parent int64
		var kind, visibility string
		var signature sql.NullString
		if err := rows.Scan(&id, &fileId, &s.Name, &s.QualifiedName, &kind, &s.Line, &s.Column, &s.EndLine, &parent, &visibility, &signature); err != nil {
			return nil, err
		}
		s.Id = toSid(id)
		s.File = toFid(fileId)
		s.Parent = toSid(parent)
		s.Kind = model.SymbolKind(kind)
		s.Visibility = model.Visibility(visibility)
		s.Signature = signature.String
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// ReferencesByTarget returns references to a resolved symbol id.
func (db *DB) ReferencesByTarget(id model.SymbolId) ([]model.Reference, error) {
	return db.queryRefs("WHERE target_id = ? ORDER BY file_id, line", sid(id))
}

// ReferencesByTargetName returns references whose unresolved target name
// matches.
func (db *DB) ReferencesByTargetName(name string) ([]model.Reference, error) {
	return db.queryRefs("WHERE target_name = ? ORDER BY file_id, line", name)
}

// ReferencesByFile returns all references recorded inside one file.
func (db *DB) ReferencesByFile(id model.FileId) ([]model.Reference, error) {
	return db.queryRefs("WHERE file_id = ? ORDER BY line", fid(id))
}

// AllReferences returns every reference in the index.
func (db *DB) AllReferences() ([]model.Reference, error) {
	return db.queryRefs("ORDER BY file_id, line")
}

func (db *DB) queryRefs(clause string, args ...interface{}) ([]model.Reference, error) {
	rows, err := db.conn.Query(`
		SELECT file_id, source_id, target_id, target_name, kind, line
		FROM refs `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var refs []model.Reference
	for rows.Next() {
		var r model.Reference
		var fileId, source, target int64
		var kind string
		if err := rows.Scan(&fileId, &source, &target, &r.TargetName, &kind, &r.Line); err != nil {
			return nil, err
		}
		r.File = toFid(fileId)
		r.Source = toSid(source)
		r.Target = toSid(target)
		r.Kind = model.RefKind(kind)
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// AllSuppressions returns every suppression grouped by owning file.
func (db *DB) AllSuppressions() (map[model.FileId][]model.Suppression, error) {
	rows, err := db.conn.Query(`
		SELECT file_id, line, rule_id FROM suppressions ORDER BY file_id, line
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	grouped := make(map[model.FileId][]model.Suppression)
	for rows.Next() {
		var s model.Suppression
		var fileId int64
		if err := rows.Scan(&fileId, &s.Line, &s.RuleId); err != nil {
			return nil, err
		}
		s.File = toFid(fileId)
		grouped[s.File] = append(grouped[s.File], s)
	}
	return grouped, rows.Err()
}

// Counts holds table row counts for the summary command.
type Counts struct {
	Files   int `json:"files"`
	Symbols int `json:"symbols"`
	Imports int `json:"imports"`
	Exports int `json:"exports"`
	Refs    int `json:"references"`
}

// Count returns row counts for all record families.
func (db *DB) Count() (Counts, error) {
	var c Counts
	tables := []struct {
		name string
		dst  *int
	}{
		{"files", &c.Files},
		{"symbols", &c.Symbols},
		{"imports", &c.Imports},
		{"exports", &c.Exports},
		{"refs", &c.Refs},
	}
	for _, t := range tables {
		if err := db.conn.QueryRow("SELECT COUNT(*) FROM " + t.name).Scan(t.dst); err != nil {
			return c, err
		}
	}
	return c, nil
}

// RunRecord captures metadata about one index run.
type RunRecord struct {
	RunId        string `json:"runId"`
	StartedAt    string `json:"startedAt"`
	FinishedAt   string `json:"finishedAt,omitempty"`
	FilesSeen    int    `json:"filesSeen"`
	FilesIndexed int    `json:"filesIndexed"`
	FilesFailed  int    `json:"filesFailed"`
}

// BeginRun records the start of an index run.
func (db *DB) BeginRun(runId string) error {
	_, err := db.conn.Exec(`
		INSERT INTO index_runs (run_id, started_at) VALUES (?, ?)
	`, runId, time.Now().UTC().Format(time.RFC3339))
	return err
}

// FinishRun records the completion of an index run.
func (db *DB) FinishRun(runId string, seen, indexed, failed int) error {
	_, err := db.conn.Exec(`
		UPDATE index_runs SET finished_at = ?, files_seen = ?, files_indexed = ?, files_failed = ?
		WHERE run_id = ?
	`, time.Now().UTC().Format(time.RFC3339), seen, indexed, failed, runId)
	return err
}

// LastRun returns the most recent index run record, or nil if none exists.
func (db *DB) LastRun() (*RunRecord, error) {
	row := db.conn.QueryRow(`
		SELECT run_id, started_at, finished_at, files_seen, files_indexed, files_failed
		FROM index_runs ORDER BY started_at DESC LIMIT 1
	`)
	var r RunRecord
	var finished sql.NullString
	err := row.Scan(&r.RunId, &r.StartedAt, &finished, &r.FilesSeen, &r.FilesIndexed, &r.FilesFailed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.FinishedAt = finished.String
	return &r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
