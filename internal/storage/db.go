// Package storage is the persistence adapter: a durable store of per-file
// extraction records keyed by file identity, backed by SQLite in WAL mode.
// The core depends only on the operations exposed here.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"statik/internal/logging"
)

// StoreDirName is the directory under the project root that holds all
// persisted state.
const StoreDirName = ".statik"

// DBFileName is the index database file inside StoreDirName.
const DBFileName = "index.db"

// DB represents a database connection with transaction helpers
type DB struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the index database at <projectRoot>/.statik/index.db.
// If the database doesn't exist, it is created along with all tables.
func Open(projectRoot string, logger *logging.Logger) (*DB, error) {
	storeDir := filepath.Join(projectRoot, StoreDirName)
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", StoreDirName, err)
	}

	return OpenPath(filepath.Join(storeDir, DBFileName), logger)
}

// OpenPath opens or creates an index database at an explicit path. Used by
// diff to open baseline snapshots.
func OpenPath(dbPath string, logger *logging.Logger) (*DB, error) {
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one so
	// every query sees the same schema.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Pragmas for performance and reliability. WAL gives us the
	// single-writer/many-reader behavior the indexer relies on.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	db := &DB{
		conn:   conn,
		logger: logger,
		dbPath: dbPath,
	}

	if !dbExists {
		logger.Info("Creating new index database", map[string]interface{}{
			"path": dbPath,
		})
	}
	if err := db.initializeSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// OpenMemory opens an in-memory database. Used by tests.
func OpenMemory(logger *logging.Logger) (*DB, error) {
	return OpenPath(":memory:", logger)
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.dbPath
}

// WithTx executes a function within a transaction.
// If the function returns an error, the transaction is rolled back.
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-throw panic after rollback
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction", map[string]interface{}{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
