package sqlite

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/chainstate7000/internal/chainstate"
	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/model"
	"github.com/stretchr/testify/require"
)

// regtestBits satisfies the regression-network proof-of-work limit for any
// hash with only low-order bytes set.
const regtestBits = 0x207fffff

// forest is a test BlockNodeInserter backed by a map; the zero hash resolves
// to nil so genesis records end up without a parent.
type forest struct {
	nodes []*model.BlockNode
	byKey map[chainhash.Hash]*model.BlockNode
}

func newForest() *forest {
	return &forest{byKey: map[chainhash.Hash]*model.BlockNode{}}
}

func (f *forest) insert(hash *chainhash.Hash) *model.BlockNode {
	if *hash == (chainhash.Hash{}) {
		return nil
	}
	if node, ok := f.byKey[*hash]; ok {
		return node
	}
	node := &model.BlockNode{Hash: *hash}
	f.byKey[*hash] = node
	f.nodes = append(f.nodes, node)
	return node
}

func chainOfNodes(length int) []*model.BlockNode {
	nodes := make([]*model.BlockNode, 0, length)
	var prev *model.BlockNode
	for i := 0; i < length; i++ {
		node := &model.BlockNode{
			Hash:       chainhash.Hash{byte(i + 1), byte((i + 1) >> 8)},
			Prev:       prev,
			Height:     int32(i),
			File:       0,
			DataPos:    uint32(i * 1000),
			TxCount:    1,
			Status:     model.StatusDataStored,
			Version:    1,
			MerkleRoot: chainhash.Hash{0x4d},
			Time:       uint32(1600000000 + i),
			Bits:       regtestBits,
			Nonce:      uint32(i),
		}
		nodes = append(nodes, node)
		prev = node
	}
	return nodes
}

func TestBlockTreeRepository_LoadBlockIndexRebuildsForest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newBlockTreeRepository(t, Config{Memory: true})

	written := chainOfNodes(5)
	// A fork at height 2 makes the height index non-unique.
	fork := &model.BlockNode{
		Hash:    chainhash.Hash{0xfa},
		Prev:    written[1],
		Height:  2,
		TxCount: 1,
		Version: 1,
		Time:    1600000100,
		Bits:    regtestBits,
	}
	written = append(written, fork)

	require.NoError(t, repo.BatchWrite(ctx, nil, 0, written, false))

	f := newForest()
	require.NoError(t, repo.LoadBlockIndex(ctx, &chaincfg.RegressionNetParams, f.insert))

	require.Len(t, f.nodes, len(written))

	lastHeight := int32(-1)
	for _, loaded := range f.nodes {
		want, ok := f.byKey[loaded.Hash]
		require.True(t, ok)
		require.Same(t, want, loaded)

		require.GreaterOrEqual(t, loaded.Height, lastHeight,
			"load order must be non-decreasing in height")
		lastHeight = loaded.Height

		if loaded.Height > 0 {
			require.NotNil(t, loaded.Prev, "non-genesis node must resolve its parent")
			require.Equal(t, loaded.Height-1, loaded.Prev.Height)
		} else {
			require.Nil(t, loaded.Prev)
		}
	}

	genesis := f.byKey[chainhash.Hash{0x01}]
	require.NotNil(t, genesis)
	require.Equal(t, uint32(1), genesis.TxCount)
	require.Equal(t, model.StatusDataStored, genesis.Status)
	require.Equal(t, uint32(regtestBits), genesis.Bits)

	forkLoaded := f.byKey[chainhash.Hash{0xfa}]
	require.NotNil(t, forkLoaded)
	require.Equal(t, int32(2), forkLoaded.Height)
	require.Equal(t, chainhash.Hash{0x02}, forkLoaded.Prev.Hash)
}

func TestBlockTreeRepository_LoadBlockIndexRejectsBadProofOfWork(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newBlockTreeRepository(t, Config{Memory: true})

	// A hash with the topmost byte set exceeds any mainnet-style target.
	var badHash chainhash.Hash
	badHash[31] = 0xff
	bad := &model.BlockNode{
		Hash:   badHash,
		Height: 0,
		Bits:   0x1d00ffff,
		Time:   1600000000,
	}
	require.NoError(t, repo.BatchWrite(ctx, nil, 0, []*model.BlockNode{bad}, false))

	f := newForest()
	err := repo.LoadBlockIndex(ctx, &chaincfg.RegressionNetParams, f.insert)
	require.ErrorIs(t, err, chainstate.ErrBadProofOfWork)
}

func TestBlockTreeRepository_LoadBlockIndexHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newBlockTreeRepository(t, Config{Memory: true})

	// Enough records to reach the periodic shutdown probe.
	require.NoError(t, repo.BatchWrite(ctx, nil, 0, chainOfNodes(1200), false))

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	f := newForest()
	err := repo.LoadBlockIndex(canceled, &chaincfg.RegressionNetParams, f.insert)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, chainstate.ErrBadProofOfWork,
		"cancellation must be distinguishable from corruption")
}
