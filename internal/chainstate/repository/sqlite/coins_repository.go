package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"go.uber.org/zap"
)

const coinsSchema = `
CREATE TABLE IF NOT EXISTS unspent (
	txID BLOB NOT NULL COLLATE BINARY,
	txN INTEGER NOT NULL,
	isCoinbase INTEGER NOT NULL,
	blockHeight INTEGER NOT NULL,
	amount INTEGER NOT NULL,
	script BLOB NOT NULL COLLATE BINARY,
	address TEXT,
	PRIMARY KEY(txID, txN)
);
CREATE INDEX IF NOT EXISTS unspent_address ON unspent(address);
CREATE TABLE IF NOT EXISTS marker (
	name TEXT NOT NULL PRIMARY KEY,
	value BLOB NOT NULL
);`

// crashCheckInterval is how many drained entries pass between two rolls of
// the crash-simulation die.
const crashCheckInterval = 200000

// CoinsRepository stores the unspent transaction output set together with the
// head/best chain-tip markers that make tip updates crash-safe.
type CoinsRepository struct {
	db      *sql.DB
	params  *chaincfg.Params
	metrics Metrics
	logger  *zap.Logger

	crashRatio int64
	crashEvery int64
	crashFn    func()
	rng        *rand.Rand
}

// NewCoinsRepository opens or creates the coin store, configures the engine
// and creates the schema idempotently.
func NewCoinsRepository(cfg Config, params *chaincfg.Params, metrics Metrics, logger *zap.Logger) (*CoinsRepository, error) {
	if params == nil {
		return nil, errors.New("chain params are required")
	}
	if metrics == nil {
		return nil, errors.New("coins repository metrics is required")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(coinsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create coins schema: %w", err)
	}
	if cfg.Wipe {
		if _, err := db.Exec("DELETE FROM unspent; DELETE FROM marker"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("wipe coins store: %w", err)
		}
	}

	r := &CoinsRepository{
		db:         db,
		params:     params,
		metrics:    metrics,
		logger:     logger,
		crashRatio: cfg.CrashRatio,
		crashEvery: crashCheckInterval,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if cfg.CrashRatio > 0 {
		r.crashFn = func() {
			logger.Info("simulating a crash, goodbye")
			os.Exit(0)
		}
	}
	return r, nil
}

// Close releases the underlying database connection.
func (r *CoinsRepository) Close() error {
	return r.db.Close()
}

// deriveAddress extracts a human-readable destination from an output script.
// Scripts without a standard destination yield an empty string; that is never
// an error for persistence.
func (r *CoinsRepository) deriveAddress(script []byte) string {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(script, r.params)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0].EncodeAddress()
}
