// Package chainstate provides the persistent chain-state layer of a full
// node: the UTXO set, the block index, and their supporting indexes.
package chainstate

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrBadProofOfWork is returned when a stored block header fails proof-of-work
// revalidation. A hit during block index reload means the on-disk index is
// corrupt or tampered with and must not be trusted.
var ErrBadProofOfWork = errors.New("invalid proof of work")

// CheckProofOfWork verifies that powHash satisfies the target difficulty
// encoded in bits, and that the target itself is within the valid range for
// the given network parameters. It is the only consensus coupling of the
// chain-state stores.
func CheckProofOfWork(powHash *chainhash.Hash, bits uint32, params *chaincfg.Params) error {
	target := blockchain.CompactToBig(bits)

	if target.Sign() <= 0 {
		return fmt.Errorf("target difficulty %064x is not positive: %w", target, ErrBadProofOfWork)
	}
	if target.Cmp(params.PowLimit) > 0 {
		return fmt.Errorf("target difficulty %064x exceeds network limit %064x: %w",
			target, params.PowLimit, ErrBadProofOfWork)
	}

	if blockchain.HashToBig(powHash).Cmp(target) > 0 {
		return fmt.Errorf("block hash %s is above target %064x: %w", powHash, target, ErrBadProofOfWork)
	}
	return nil
}
