package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/chainstate7000/internal/chainstate"
	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/model"
	"github.com/goodnatureofminers/chainstate7000/pkg/safe"
	"go.uber.org/zap"
)

// shutdownCheckMask gates the cooperative cancellation probe to every 1024th
// record.
const shutdownCheckMask = 0x3ff

// BlockNodeInserter returns the in-memory block index node for a hash,
// creating it if needed. It is expected to return nil for the zero hash so
// genesis records end up without a parent.
type BlockNodeInserter func(hash *chainhash.Hash) *model.BlockNode

// LoadBlockIndex streams every stored block metadata record ordered by
// ascending height, rebuilding the in-memory block forest through the insert
// callback and revalidating each record's proof of work. A failed
// revalidation aborts the load with ErrBadProofOfWork; a pending context
// cancellation aborts it cleanly with the context's error.
func (r *BlockTreeRepository) LoadBlockIndex(ctx context.Context, params *chaincfg.Params, insert BlockNodeInserter) (err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("load_block_index", err, started)
	}()

	const query = `
SELECT hash, prevHash, height, file, dataPos, undoPos, txCount,
	version, rootTxHash, rootTrieHash, time, bits, nonce, status
FROM block_info
ORDER BY height`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query block index: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	var loaded int64
	for rows.Next() {
		var (
			rawHash, rawPrev, rawMerkle, rawTrie          []byte
			height, file, version                         int64
			dataPos, undoPos, txCount, btime, bits, nonce int64
			status                                        int64
		)
		if err = rows.Scan(&rawHash, &rawPrev, &height, &file, &dataPos, &undoPos, &txCount,
			&version, &rawMerkle, &rawTrie, &btime, &bits, &nonce, &status); err != nil {
			return fmt.Errorf("scan block info: %w", err)
		}

		hash, herr := hashFromRaw(rawHash)
		if herr != nil {
			err = fmt.Errorf("block hash: %w", herr)
			return err
		}
		prevHash, herr := hashFromRaw(rawPrev)
		if herr != nil {
			err = fmt.Errorf("block %s prev hash: %w", hash, herr)
			return err
		}

		node := insert(&hash)
		node.Prev = insert(&prevHash)
		node.Height = int32(height)
		node.File = int32(file)
		node.Version = int32(version)
		if err = populateUnsigned(node, dataPos, undoPos, txCount, btime, bits, nonce, status); err != nil {
			return fmt.Errorf("block %s: %w", hash, err)
		}
		if merkle, herr := hashFromRaw(rawMerkle); herr != nil {
			err = fmt.Errorf("block %s merkle root: %w", hash, herr)
			return err
		} else {
			node.MerkleRoot = merkle
		}
		if trie, herr := hashFromRaw(rawTrie); herr != nil {
			err = fmt.Errorf("block %s trie root: %w", hash, herr)
			return err
		} else {
			node.TrieRoot = trie
		}

		if err = chainstate.CheckProofOfWork(&node.Hash, node.Bits, params); err != nil {
			r.logger.Error("stored block fails proof of work",
				zap.Stringer("hash", &node.Hash), zap.Uint32("bits", node.Bits),
				zap.Int32("height", node.Height), zap.Error(err))
			return fmt.Errorf("block %s at height %d: %w", hash, height, err)
		}

		loaded++
		// Don't probe for shutdown on every single block.
		if loaded&shutdownCheckMask == shutdownCheckMask {
			if err = ctx.Err(); err != nil {
				return err
			}
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("iterate block index: %w", err)
	}

	r.logger.Info("loaded block index", zap.Int64("blocks", loaded))
	return nil
}

func populateUnsigned(node *model.BlockNode, dataPos, undoPos, txCount, btime, bits, nonce, status int64) error {
	var err error
	if node.DataPos, err = safe.Uint32(dataPos); err != nil {
		return fmt.Errorf("data offset: %w", err)
	}
	if node.UndoPos, err = safe.Uint32(undoPos); err != nil {
		return fmt.Errorf("undo offset: %w", err)
	}
	if node.TxCount, err = safe.Uint32(txCount); err != nil {
		return fmt.Errorf("tx count: %w", err)
	}
	if node.Time, err = safe.Uint32(btime); err != nil {
		return fmt.Errorf("time: %w", err)
	}
	if node.Bits, err = safe.Uint32(bits); err != nil {
		return fmt.Errorf("bits: %w", err)
	}
	if node.Nonce, err = safe.Uint32(nonce); err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	rawStatus, err := safe.Uint32(status)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	node.Status = model.BlockStatus(rawStatus)
	return nil
}
