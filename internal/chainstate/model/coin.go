// Package model defines domain models for chain-state persistence.
package model

// Coin represents a single unspent transaction output plus the metadata
// needed to validate a later spend of it.
type Coin struct {
	IsCoinbase bool
	Height     uint32
	Amount     int64
	PkScript   []byte
}

// CoinEntry is one entry of the in-memory coin cache handed to the store for
// flushing. A nil Coin is a tombstone for a spent (or rolled back) output.
type CoinEntry struct {
	Coin *Coin
	// Dirty marks entries whose state differs from what is on disk; only
	// dirty entries are persisted.
	Dirty bool
	// Fresh marks entries created since the last flush, meaning the store
	// has never seen the outpoint.
	Fresh bool
}

// Spent reports whether the entry is a tombstone.
func (e *CoinEntry) Spent() bool {
	return e.Coin == nil
}
