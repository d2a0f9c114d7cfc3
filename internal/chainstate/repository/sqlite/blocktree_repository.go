package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const blockTreeSchema = `
CREATE TABLE IF NOT EXISTS block_file (
	file INTEGER NOT NULL PRIMARY KEY,
	blocks INTEGER NOT NULL,
	size INTEGER NOT NULL,
	undoSize INTEGER NOT NULL,
	heightFirst INTEGER NOT NULL,
	heightLast INTEGER NOT NULL,
	timeFirst INTEGER NOT NULL,
	timeLast INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS block_info (
	hash BLOB NOT NULL PRIMARY KEY,
	prevHash BLOB NOT NULL,
	height INTEGER NOT NULL,
	file INTEGER NOT NULL,
	dataPos INTEGER NOT NULL,
	undoPos INTEGER NOT NULL,
	txCount INTEGER NOT NULL,
	status INTEGER NOT NULL,
	version INTEGER NOT NULL,
	rootTxHash BLOB NOT NULL,
	rootTrieHash BLOB NOT NULL,
	time INTEGER NOT NULL,
	bits INTEGER NOT NULL,
	nonce INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS tx_to_block (
	txID BLOB NOT NULL PRIMARY KEY,
	file INTEGER NOT NULL,
	blockPos INTEGER NOT NULL,
	txPos INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS flag (
	name TEXT NOT NULL PRIMARY KEY,
	value INTEGER NOT NULL
);
-- not unique: forks are retained, several blocks may share a height
CREATE INDEX IF NOT EXISTS block_info_height ON block_info (height);`

// BlockTreeRepository persists block metadata, per-file statistics, the
// optional transaction index and small operational flags.
type BlockTreeRepository struct {
	db      *sql.DB
	metrics Metrics
	logger  *zap.Logger
}

// NewBlockTreeRepository opens or creates the block index store.
func NewBlockTreeRepository(cfg Config, metrics Metrics, logger *zap.Logger) (*BlockTreeRepository, error) {
	if metrics == nil {
		return nil, errors.New("block tree repository metrics is required")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(blockTreeSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create block tree schema: %w", err)
	}
	if cfg.Wipe {
		const wipe = `
DELETE FROM block_file;
DELETE FROM block_info;
DELETE FROM tx_to_block;
DELETE FROM flag`
		if _, err := db.Exec(wipe); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("wipe block tree store: %w", err)
		}
	}

	return &BlockTreeRepository{db: db, metrics: metrics, logger: logger}, nil
}

// Close releases the underlying database connection.
func (r *BlockTreeRepository) Close() error {
	return r.db.Close()
}
