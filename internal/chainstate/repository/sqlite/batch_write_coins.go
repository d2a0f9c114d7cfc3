package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/model"
	"go.uber.org/zap"
)

// BatchWrite atomically persists a dirty coin set together with the new chain
// tip. Entries are removed from the map as they are persisted so very large
// reorganizations free memory incrementally. The tip update is two-phased:
// head_block is written at the start of the transaction and replaced by
// best_block at the end, so an interrupted flush is detectable through
// HeadBlocks on the next open.
//
// On a commit failure the map is left partially drained; callers must treat
// that as fatal for the in-memory cache since the persisted state is
// ambiguous. When sync is requested the write-ahead log is flushed to stable
// storage after the commit; a sync failure is reported but the transaction
// stays committed.
func (r *CoinsRepository) BatchWrite(ctx context.Context, coins map[wire.OutPoint]*model.CoinEntry, tip chainhash.Hash, sync bool) (err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("batch_write", err, started)
	}()

	if tip == (chainhash.Hash{}) {
		err = errors.New("batch tip hash is required")
		return err
	}

	best, err := r.BestBlock(ctx)
	if err != nil {
		return err
	}
	if best == (chainhash.Hash{}) {
		// Possibly resuming an interrupted flush; the markers must then
		// name the very tip being replayed.
		heads, herr := r.HeadBlocks(ctx)
		if herr != nil {
			err = herr
			return err
		}
		if len(heads) == 2 && heads[0] != tip {
			err = fmt.Errorf("replaying %s over in-flight %s: %w", tip, heads[0], ErrHeadMismatch)
			return err
		}
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

	if _, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO marker VALUES('head_block', ?)", tip[:]); err != nil {
		return fmt.Errorf("mark head block: %w", err)
	}

	del, err := tx.PrepareContext(ctx, "DELETE FROM unspent WHERE txID = ? AND txN = ?")
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer func() { _ = del.Close() }()

	ins, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO unspent VALUES(?,?,?,?,?,?,?)")
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = ins.Close() }()

	var count, changed int64
	for outpoint, entry := range coins {
		if entry.Dirty {
			if entry.Spent() {
				// Spent covers both actual spends and entries
				// rolled back during a reorganization.
				if _, err = del.ExecContext(ctx, outpoint.Hash[:], outpoint.Index); err != nil {
					return fmt.Errorf("delete spent coin: %w", err)
				}
			} else {
				coin := entry.Coin
				coinbase := 0
				if coin.IsCoinbase {
					coinbase = 1
				}
				address := r.deriveAddress(coin.PkScript)
				if _, err = ins.ExecContext(ctx, outpoint.Hash[:], outpoint.Index,
					coinbase, coin.Height, coin.Amount, coin.PkScript, address); err != nil {
					return fmt.Errorf("upsert coin: %w", err)
				}
			}
			changed++
		}
		count++
		delete(coins, outpoint)

		if r.crashRatio > 0 && count%r.crashEvery == 0 && r.rng.Int63n(r.crashRatio) == 0 {
			r.crashFn()
		}
	}

	if _, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO marker VALUES('best_block', ?)", tip[:]); err != nil {
		return fmt.Errorf("mark best block: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM marker WHERE name = 'head_block'"); err != nil {
		return fmt.Errorf("clear head block: %w", err)
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("committing coin changes failed",
			zap.Int("sqliteError", sqliteErrCode(err)), zap.Error(err))
		return fmt.Errorf("commit coin changes: %w", err)
	}
	committed = true

	r.logger.Debug("committed coin changes",
		zap.Int64("changed", changed), zap.Int64("total", count),
		zap.Stringer("tip", &tip))

	if sync {
		if err = syncDatabase(ctx, r.db); err != nil {
			r.logger.Error("syncing coin database failed",
				zap.Int("sqliteError", sqliteErrCode(err)), zap.Error(err))
			return fmt.Errorf("sync coin database: %w", err)
		}
	}
	return nil
}
