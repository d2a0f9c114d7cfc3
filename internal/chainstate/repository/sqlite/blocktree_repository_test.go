package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBlockTreeRepository(t *testing.T, cfg Config) *BlockTreeRepository {
	t.Helper()

	repo, err := NewBlockTreeRepository(cfg, nopMetrics{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestBlockTreeRepository_BlockFileInfoMissing(t *testing.T) {
	t.Parallel()

	repo := newBlockTreeRepository(t, Config{Memory: true})

	info, err := repo.BlockFileInfo(context.Background(), 0)
	require.NoError(t, err)
	require.Nil(t, info)
}

func TestBlockTreeRepository_BatchWritePersistsFileStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newBlockTreeRepository(t, Config{Memory: true})

	info := &model.BlockFileInfo{}
	info.AddBlock(100, 1600000000)
	info.AddBlock(101, 1600000600)
	info.Size = 2048
	info.UndoSize = 512

	require.NoError(t, repo.BatchWrite(ctx,
		[]model.BlockFileUpdate{{File: 3, Info: info}}, 3, nil, false))

	got, err := repo.BlockFileInfo(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, *info, *got)

	file, found, err := repo.ReadLastBlockFile(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int32(3), file)
}

func TestBlockTreeRepository_LastBlockFileUnset(t *testing.T) {
	t.Parallel()

	repo := newBlockTreeRepository(t, Config{Memory: true})

	_, found, err := repo.ReadLastBlockFile(context.Background())
	require.NoError(t, err)
	require.False(t, found)
}

func TestBlockTreeRepository_Flags(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newBlockTreeRepository(t, Config{Memory: true})

	_, found, err := repo.ReadFlag(ctx, "txindex")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, repo.WriteFlag(ctx, "txindex", true))

	value, found, err := repo.ReadFlag(ctx, "txindex")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, value)

	require.NoError(t, repo.WriteFlag(ctx, "txindex", false))

	value, found, err = repo.ReadFlag(ctx, "txindex")
	require.NoError(t, err)
	require.True(t, found)
	require.False(t, value)
}

func TestBlockTreeRepository_Reindexing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newBlockTreeRepository(t, Config{Memory: true})

	reindexing, err := repo.ReadReindexing(ctx)
	require.NoError(t, err)
	require.False(t, reindexing, "missing flag means no reindex in progress")

	require.NoError(t, repo.WriteReindexing(ctx, true))

	reindexing, err = repo.ReadReindexing(ctx)
	require.NoError(t, err)
	require.True(t, reindexing)
}

func TestBlockTreeRepository_DurableAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "block_index.sqlite")

	repo, err := NewBlockTreeRepository(Config{Path: path}, nopMetrics{}, zap.NewNop())
	require.NoError(t, err)

	node := &model.BlockNode{
		Hash:   chainhash.Hash{0x01},
		Height: 0,
		Bits:   0x207fffff,
		Status: model.StatusDataStored,
	}
	require.NoError(t, repo.BatchWrite(ctx,
		[]model.BlockFileUpdate{{File: 0, Info: &model.BlockFileInfo{Blocks: 1}}},
		0, []*model.BlockNode{node}, true))
	require.NoError(t, repo.Close())

	reopened := newBlockTreeRepository(t, Config{Path: path})

	info, err := reopened.BlockFileInfo(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, uint32(1), info.Blocks)

	var count int
	require.NoError(t, reopened.db.QueryRow("SELECT COUNT(*) FROM block_info").Scan(&count))
	require.Equal(t, 1, count)
}

func TestBlockTreeRepository_WipeOnOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "block_index.sqlite")

	repo, err := NewBlockTreeRepository(Config{Path: path}, nopMetrics{}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, repo.WriteFlag(ctx, "reindexing", true))
	require.NoError(t, repo.Close())

	wiped := newBlockTreeRepository(t, Config{Path: path, Wipe: true})

	_, found, err := wiped.ReadFlag(ctx, "reindexing")
	require.NoError(t, err)
	require.False(t, found)
}
