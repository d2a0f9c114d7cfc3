package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/model"
	"go.uber.org/zap"
)

// WriteTxIndex upserts transaction locators in one transaction. An empty list
// succeeds without touching the store.
func (r *BlockTreeRepository) WriteTxIndex(ctx context.Context, entries []model.TxIndexEntry) (err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("write_tx_index", err, started)
	}()

	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ins, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO tx_to_block VALUES(?,?,?,?)")
	if err != nil {
		return fmt.Errorf("prepare locator upsert: %w", err)
	}
	defer func() { _ = ins.Close() }()

	for _, entry := range entries {
		if _, err = ins.ExecContext(ctx, entry.TxID[:],
			entry.Locator.File, entry.Locator.BlockPos, entry.Locator.TxOffset); err != nil {
			return fmt.Errorf("upsert locator: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("committing tx index failed",
			zap.Int("sqliteError", sqliteErrCode(err)), zap.Error(err))
		return fmt.Errorf("commit tx index: %w", err)
	}
	committed = true
	return nil
}

// ReadTxIndex returns the locator for a transaction id, or nil when the
// transaction was never indexed.
func (r *BlockTreeRepository) ReadTxIndex(ctx context.Context, txid chainhash.Hash) (_ *model.TxLocator, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("read_tx_index", err, started)
	}()

	const query = `SELECT file, blockPos, txPos FROM tx_to_block WHERE txID = ?`

	var locator model.TxLocator
	err = r.db.QueryRowContext(ctx, query, txid[:]).
		Scan(&locator.File, &locator.BlockPos, &locator.TxOffset)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query tx locator: %w", err)
	}
	return &locator, nil
}
