package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// WriteFlag persists a named boolean flag.
func (r *BlockTreeRepository) WriteFlag(ctx context.Context, name string, value bool) (err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("write_flag", err, started)
	}()

	stored := 0
	if value {
		stored = 1
	}
	if _, err = r.db.ExecContext(ctx, "INSERT OR REPLACE INTO flag VALUES(?, ?)", name, stored); err != nil {
		return fmt.Errorf("write flag %q: %w", name, err)
	}
	return nil
}

// ReadFlag reads a named boolean flag; found is false when the flag was never
// written.
func (r *BlockTreeRepository) ReadFlag(ctx context.Context, name string) (value, found bool, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("read_flag", err, started)
	}()

	var stored int
	err = r.db.QueryRowContext(ctx, "SELECT value FROM flag WHERE name = ?", name).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("read flag %q: %w", name, err)
	}
	return stored != 0, true, nil
}

// WriteReindexing records whether a reindex is in progress.
func (r *BlockTreeRepository) WriteReindexing(ctx context.Context, reindexing bool) error {
	return r.WriteFlag(ctx, "reindexing", reindexing)
}

// ReadReindexing reports whether a reindex was in progress when the process
// last stopped. A missing flag means no reindex was running.
func (r *BlockTreeRepository) ReadReindexing(ctx context.Context) (bool, error) {
	value, found, err := r.ReadFlag(ctx, "reindexing")
	if err != nil {
		return false, err
	}
	return found && value, nil
}

// ReadLastBlockFile returns the number of the last block file in use; found
// is false for a store that has never flushed block metadata.
func (r *BlockTreeRepository) ReadLastBlockFile(ctx context.Context) (file int32, found bool, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("read_last_block_file", err, started)
	}()

	err = r.db.QueryRowContext(ctx, "SELECT value FROM flag WHERE name = 'last_block'").Scan(&file)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read last block file: %w", err)
	}
	return file, true, nil
}
