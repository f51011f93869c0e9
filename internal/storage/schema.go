package storage

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// initializeSchema creates all tables. Idempotent: every statement uses
// IF NOT EXISTS so reopening an existing database is a no-op.
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		schema := `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER NOT NULL
			);

			CREATE TABLE IF NOT EXISTS files (
				id INTEGER PRIMARY KEY,
				path TEXT NOT NULL UNIQUE,
				language TEXT NOT NULL,
				fingerprint TEXT NOT NULL,
				mtime INTEGER NOT NULL,
				source_set TEXT NOT NULL DEFAULT 'default',
				partial INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);

			CREATE TABLE IF NOT EXISTS symbols (
				id INTEGER NOT NULL,
				file_id INTEGER NOT NULL,
				name TEXT NOT NULL,
				qualified_name TEXT NOT NULL,
				kind TEXT NOT NULL,
				line INTEGER NOT NULL,
				col INTEGER NOT NULL,
				end_line INTEGER NOT NULL,
				parent INTEGER NOT NULL DEFAULT 0,
				visibility TEXT NOT NULL,
				signature TEXT,
				PRIMARY KEY (id, file_id)
			);
			CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
			CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
			CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);

			CREATE TABLE IF NOT EXISTS imports (
				file_id INTEGER NOT NULL,
				specifier TEXT NOT NULL,
				names TEXT NOT NULL,
				type_only INTEGER NOT NULL DEFAULT 0,
				dynamic INTEGER NOT NULL DEFAULT 0,
				mod_decl INTEGER NOT NULL DEFAULT 0,
				line INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);

			CREATE TABLE IF NOT EXISTS exports (
				file_id INTEGER NOT NULL,
				symbol_id INTEGER NOT NULL DEFAULT 0,
				name TEXT NOT NULL,
				reexport INTEGER NOT NULL DEFAULT 0,
				source TEXT NOT NULL DEFAULT '',
				type_only INTEGER NOT NULL DEFAULT 0,
				line INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_exports_file ON exports(file_id);
			CREATE INDEX IF NOT EXISTS idx_exports_name ON exports(name);

			CREATE TABLE IF NOT EXISTS refs (
				file_id INTEGER NOT NULL,
				source_id INTEGER NOT NULL DEFAULT 0,
				target_id INTEGER NOT NULL DEFAULT 0,
				target_name TEXT NOT NULL DEFAULT '',
				kind TEXT NOT NULL,
				line INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_refs_file ON refs(file_id);
			CREATE INDEX IF NOT EXISTS idx_refs_source ON refs(source_id);
			CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target_id);
			CREATE INDEX IF NOT EXISTS idx_refs_target_name ON refs(target_name);

			CREATE TABLE IF NOT EXISTS suppressions (
				file_id INTEGER NOT NULL,
				line INTEGER NOT NULL,
				rule_id TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_suppressions_file ON suppressions(file_id);

			CREATE TABLE IF NOT EXISTS index_runs (
				run_id TEXT PRIMARY KEY,
				started_at TEXT NOT NULL,
				finished_at TEXT,
				files_seen INTEGER NOT NULL DEFAULT 0,
				files_indexed INTEGER NOT NULL DEFAULT 0,
				files_failed INTEGER NOT NULL DEFAULT 0
			);
		`
		if _, err := tx.Exec(schema); err != nil {
			return err
		}

		var count int
		if err := tx.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
				return err
			}
			return nil
		}

		var version int
		if err := tx.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
			return err
		}
		if version != currentSchemaVersion {
			return fmt.Errorf("unsupported index schema version %d (expected %d); re-run `statik index` after removing %s",
				version, currentSchemaVersion, StoreDirName)
		}
		return nil
	})
}
