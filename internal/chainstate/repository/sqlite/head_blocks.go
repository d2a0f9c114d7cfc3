package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// HeadBlocks is the recovery probe for interrupted tip updates. During normal
// operation only the best_block marker exists and the result is empty. When a
// flush was interrupted mid-update, both markers exist and the result is the
// pair [head_block (new tip), best_block (old tip)], in that order.
func (r *CoinsRepository) HeadBlocks(ctx context.Context) (_ []chainhash.Hash, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("head_blocks", err, started)
	}()

	// Descending name order puts head_block before best_block.
	const query = `SELECT value FROM marker ORDER BY name DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	var heads []chainhash.Hash
	for rows.Next() {
		var raw []byte
		if err = rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		hash, herr := hashFromRaw(raw)
		if herr != nil {
			err = fmt.Errorf("marker value: %w", herr)
			return nil, err
		}
		heads = append(heads, hash)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate markers: %w", err)
	}

	if len(heads) != 2 {
		return nil, nil
	}
	return heads, nil
}
