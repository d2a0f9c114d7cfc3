package model

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// BlockStatus is the validation-state bitfield persisted per block.
type BlockStatus uint32

const (
	// StatusValidHeader means the header passed contextual checks.
	StatusValidHeader BlockStatus = 1 << iota
	// StatusValidTree means all parent headers are known and valid.
	StatusValidTree
	// StatusValidTransactions means the block passed transaction checks.
	StatusValidTransactions
	// StatusDataStored means the full block is available in a block file.
	StatusDataStored
	// StatusUndoStored means undo data is available in an undo file.
	StatusUndoStored
	// StatusFailed means the block failed validation.
	StatusFailed
)

// BlockNode is one node of the in-memory block index forest. The store only
// reads and populates its fields; ownership stays with the caller.
type BlockNode struct {
	Hash chainhash.Hash
	Prev *BlockNode

	Height  int32
	File    int32
	DataPos uint32
	UndoPos uint32
	TxCount uint32
	Status  BlockStatus

	Version    int32
	MerkleRoot chainhash.Hash
	TrieRoot   chainhash.Hash
	Time       uint32
	Bits       uint32
	Nonce      uint32
}

// PrevHash returns the parent hash, or the zero hash for a node without a
// resolved parent (genesis).
func (n *BlockNode) PrevHash() chainhash.Hash {
	if n.Prev == nil {
		return chainhash.Hash{}
	}
	return n.Prev.Hash
}

// BlockFileInfo aggregates statistics for one on-disk block file.
type BlockFileInfo struct {
	Blocks      uint32
	Size        uint32
	UndoSize    uint32
	HeightFirst uint32
	HeightLast  uint32
	TimeFirst   uint64
	TimeLast    uint64
}

// AddBlock updates the aggregates for a block appended to the file.
func (f *BlockFileInfo) AddBlock(height uint32, time uint64) {
	if f.Blocks == 0 || height < f.HeightFirst {
		f.HeightFirst = height
	}
	if f.Blocks == 0 || time < f.TimeFirst {
		f.TimeFirst = time
	}
	f.Blocks++
	if height > f.HeightLast {
		f.HeightLast = height
	}
	if time > f.TimeLast {
		f.TimeLast = time
	}
}

// BlockFileUpdate pairs a file number with its statistics for a batched write.
type BlockFileUpdate struct {
	File int32
	Info *BlockFileInfo
}
