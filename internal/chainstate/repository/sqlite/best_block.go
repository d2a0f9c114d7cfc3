package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BestBlock returns the hash of the last fully-committed chain tip, or the
// zero hash if the store has never been written.
func (r *CoinsRepository) BestBlock(ctx context.Context) (_ chainhash.Hash, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("best_block", err, started)
	}()

	const query = `SELECT value FROM marker WHERE name = 'best_block'`

	var raw []byte
	err = r.db.QueryRowContext(ctx, query).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return chainhash.Hash{}, nil
	}
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("query best block: %w", err)
	}

	hash, err := hashFromRaw(raw)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("best block marker: %w", err)
	}
	return hash, nil
}

func hashFromRaw(raw []byte) (chainhash.Hash, error) {
	var hash chainhash.Hash
	if len(raw) != chainhash.HashSize {
		return hash, fmt.Errorf("unexpected hash length %d", len(raw))
	}
	copy(hash[:], raw)
	return hash, nil
}
