// Package sqlite persists the chain state (UTXO set, block index, tx index)
// in embedded SQLite databases with write-ahead logging.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Config controls how a store database is opened.
type Config struct {
	// Path is the database file location. Ignored when Memory is set.
	Path string
	// Memory opens an ephemeral in-memory database, mainly for tests.
	Memory bool
	// CacheSize is the page-cache budget in bytes. Zero keeps the engine
	// default.
	CacheSize int64
	// Wipe clears all tables on open, used on resync.
	Wipe bool
	// CrashRatio enables the crash-simulation hook in coin batch writes:
	// at every crash checkpoint the process aborts with probability
	// 1/CrashRatio. Zero disables the hook entirely.
	CrashRatio int64
}

// openDatabase opens or creates a store database on a single pooled
// connection. The pool is pinned to one connection so that per-connection
// pragmas (cache_size, temp_store, synchronous) hold for every statement.
func openDatabase(cfg Config) (*sql.DB, error) {
	dsn := cfg.Path
	if cfg.Memory {
		dsn = ":memory:"
	}
	if dsn == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := configureDatabase(db, cfg.CacheSize); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func configureDatabase(db *sql.DB, cacheSize int64) error {
	if cacheSize > 0 {
		// Negative cache_size is a budget in KB.
		if _, err := db.Exec(fmt.Sprintf("PRAGMA cache_size=-%d", cacheSize>>10)); err != nil {
			return fmt.Errorf("set cache size: %w", err)
		}
	}

	pragmas := []string{
		"PRAGMA temp_store=MEMORY",
		"PRAGMA case_sensitive_like=true",
		// No disk sync after each commit; durability is escalated
		// explicitly at batch boundaries via syncDatabase.
		"PRAGMA synchronous=OFF",
		// 4k page size * 4000 = 16MB
		"PRAGMA wal_autocheckpoint=4000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	// journal_mode returns the resulting mode as a row; in-memory databases
	// stay on the "memory" journal, which is fine for ephemeral stores.
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("enable write-ahead logging: %w", err)
	}
	return nil
}

// syncDatabase forces the write-ahead log onto stable storage. It is the
// caller-requested durability escalation on top of the engine's own WAL.
func syncDatabase(ctx context.Context, db *sql.DB) error {
	var busy, logFrames, checkpointed int
	err := db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)").
		Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	if busy != 0 {
		return fmt.Errorf("wal checkpoint blocked: %d of %d frames written", checkpointed, logFrames)
	}
	return nil
}

// sqliteErrCode extracts the engine error code for diagnostics, or -1 when
// the error did not originate in the engine.
func sqliteErrCode(err error) int {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return int(serr.Code)
	}
	return -1
}

// Metrics observes the outcome and duration of one repository operation.
type Metrics interface {
	Observe(operation string, err error, started time.Time)
}
