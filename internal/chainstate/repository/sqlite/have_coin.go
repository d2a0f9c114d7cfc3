package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"
)

// HaveCoin reports whether an unspent output exists for the outpoint without
// materializing the record.
func (r *CoinsRepository) HaveCoin(ctx context.Context, outpoint wire.OutPoint) (_ bool, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("have_coin", err, started)
	}()

	const query = `SELECT 1 FROM unspent WHERE txID = ? AND txN = ?`

	var one int
	err = r.db.QueryRowContext(ctx, query, outpoint.Hash[:], outpoint.Index).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query coin existence: %w", err)
	}
	return true, nil
}
