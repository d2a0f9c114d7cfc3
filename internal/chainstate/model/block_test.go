package model

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func TestBlockFileInfo_AddBlock(t *testing.T) {
	t.Parallel()

	var info BlockFileInfo
	info.AddBlock(100, 5000)
	info.AddBlock(98, 4900)
	info.AddBlock(103, 5100)

	if info.Blocks != 3 {
		t.Fatalf("blocks = %d, want 3", info.Blocks)
	}
	if info.HeightFirst != 98 || info.HeightLast != 103 {
		t.Fatalf("height range = [%d, %d], want [98, 103]", info.HeightFirst, info.HeightLast)
	}
	if info.TimeFirst != 4900 || info.TimeLast != 5100 {
		t.Fatalf("time range = [%d, %d], want [4900, 5100]", info.TimeFirst, info.TimeLast)
	}
}

func TestBlockFileInfo_AddBlockFirstEntry(t *testing.T) {
	t.Parallel()

	// The first block sets both ends of each range even when the zero
	// values would compare lower.
	var info BlockFileInfo
	info.AddBlock(0, 0)
	info.AddBlock(1, 1)

	if info.Blocks != 2 {
		t.Fatalf("blocks = %d, want 2", info.Blocks)
	}
	if info.HeightFirst != 0 || info.HeightLast != 1 {
		t.Fatalf("height range = [%d, %d], want [0, 1]", info.HeightFirst, info.HeightLast)
	}
}

func TestBlockNode_PrevHash(t *testing.T) {
	t.Parallel()

	genesis := &BlockNode{Hash: chainhash.Hash{0x01}}
	if genesis.PrevHash() != (chainhash.Hash{}) {
		t.Fatal("genesis parent hash should be zero")
	}

	child := &BlockNode{Hash: chainhash.Hash{0x02}, Prev: genesis}
	if child.PrevHash() != genesis.Hash {
		t.Fatal("child parent hash should match genesis hash")
	}
}
