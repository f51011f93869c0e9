package storage

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"statik/internal/logging"
)

// OpenSnapshot opens a baseline index snapshot for diffing. A `.zst`
// compressed snapshot is decompressed to a temporary file transparently.
// The returned cleanup must be called after the snapshot is no longer
// needed.
func OpenSnapshot(path string, logger *logging.Logger) (*DB, func(), error) {
	if !strings.HasSuffix(path, ".zst") {
		db, err := OpenPath(path, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	}

	compressed, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer compressed.Close()

	decoder, err := zstd.NewReader(compressed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read zstd snapshot: %w", err)
	}
	defer decoder.Close()

	tmp, err := os.CreateTemp("", "statik-snapshot-*.db")
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(tmp, decoder); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, nil, err
	}

	db, err := OpenPath(tmp.Name(), logger)
	if err != nil {
		os.Remove(tmp.Name())
		return nil, nil, err
	}
	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(tmp.Name())
	}
	return db, cleanup, nil
}

// WriteSnapshot copies the current index database into a zstd-compressed
// snapshot file.
func WriteSnapshot(db *DB, dest string) error {
	src, err := os.Open(db.Path())
	if err != nil {
		return fmt.Errorf("failed to open index database: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	encoder, err := zstd.NewWriter(out)
	if err != nil {
		out.Close()
		return err
	}
	if _, err := io.Copy(encoder, src); err != nil {
		encoder.Close()
		out.Close()
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := encoder.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
