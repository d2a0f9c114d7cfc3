package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/model"
)

// GetCoin returns the unspent output for an outpoint, or nil when no such
// record exists.
func (r *CoinsRepository) GetCoin(ctx context.Context, outpoint wire.OutPoint) (_ *model.Coin, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("get_coin", err, started)
	}()

	const query = `
SELECT isCoinbase, blockHeight, amount, script
FROM unspent
WHERE txID = ? AND txN = ?`

	var (
		coinbase int
		coin     model.Coin
	)
	err = r.db.QueryRowContext(ctx, query, outpoint.Hash[:], outpoint.Index).
		Scan(&coinbase, &coin.Height, &coin.Amount, &coin.PkScript)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query coin: %w", err)
	}

	coin.IsCoinbase = coinbase != 0
	return &coin, nil
}
