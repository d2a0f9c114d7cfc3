package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/model"
	"go.uber.org/zap"
)

// BatchWrite persists file statistics, the last-active-file flag and block
// metadata records in a single transaction. Each block's previous hash is
// resolved from its in-memory parent pointer, or stored as the zero hash for
// the genesis. The commit and sync failure contract matches
// CoinsRepository.BatchWrite.
func (r *BlockTreeRepository) BatchWrite(ctx context.Context, fileInfos []model.BlockFileUpdate, lastFile int32, nodes []*model.BlockNode, sync bool) (err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("batch_write", err, started)
	}()

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

	insFile, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO block_file(file, blocks, size, undoSize, heightFirst, heightLast, timeFirst, timeLast)
VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare file info upsert: %w", err)
	}
	defer func() { _ = insFile.Close() }()

	for _, update := range fileInfos {
		info := update.Info
		if _, err = insFile.ExecContext(ctx, update.File, info.Blocks, info.Size, info.UndoSize,
			info.HeightFirst, info.HeightLast, info.TimeFirst, info.TimeLast); err != nil {
			return fmt.Errorf("upsert file info: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO flag VALUES('last_block', ?)", lastFile); err != nil {
		return fmt.Errorf("write last block file: %w", err)
	}

	insBlock, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO block_info(hash, prevHash, height, file, dataPos, undoPos,
	txCount, status, version, rootTxHash, rootTrieHash, time, bits, nonce)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare block info upsert: %w", err)
	}
	defer func() { _ = insBlock.Close() }()

	for _, node := range nodes {
		prev := node.PrevHash()
		if _, err = insBlock.ExecContext(ctx,
			node.Hash[:], prev[:], node.Height, node.File, node.DataPos, node.UndoPos,
			node.TxCount, uint32(node.Status), node.Version,
			node.MerkleRoot[:], node.TrieRoot[:],
			node.Time, node.Bits, node.Nonce); err != nil {
			return fmt.Errorf("upsert block info: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("committing block index failed",
			zap.Int("sqliteError", sqliteErrCode(err)), zap.Error(err))
		return fmt.Errorf("commit block index: %w", err)
	}
	committed = true

	r.logger.Debug("committed block index",
		zap.Int("files", len(fileInfos)), zap.Int("blocks", len(nodes)),
		zap.Int32("lastFile", lastFile))

	if sync {
		if err = syncDatabase(ctx, r.db); err != nil {
			r.logger.Error("syncing block database failed",
				zap.Int("sqliteError", sqliteErrCode(err)), zap.Error(err))
			return fmt.Errorf("sync block database: %w", err)
		}
	}
	return nil
}
