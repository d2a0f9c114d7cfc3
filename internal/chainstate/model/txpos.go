package model

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// TxLocator points at a transaction inside a block file: the file number, the
// byte offset of the block within the file, and the byte offset of the
// transaction within the block.
type TxLocator struct {
	File     int32
	BlockPos uint32
	TxOffset uint32
}

// TxIndexEntry pairs a transaction id with its locator for a batched index
// write.
type TxIndexEntry struct {
	TxID    chainhash.Hash
	Locator TxLocator
}
