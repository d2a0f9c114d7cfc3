package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/model"
)

// CoinsCursor is a forward-only, single-pass iterator over the full unspent
// set, used for chainstate rebuild and verification. It captures the best
// block hash at open time.
//
// The cursor holds the store's single database connection until Close is
// called; other repository operations block while it is open.
type CoinsCursor struct {
	rows *sql.Rows
	best chainhash.Hash

	key   wire.OutPoint
	coin  model.Coin
	addr  sql.NullString
	valid bool
	err   error
}

// Cursor opens a cursor positioned at the first unspent record.
func (r *CoinsRepository) Cursor(ctx context.Context) (_ *CoinsCursor, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("cursor", err, started)
	}()

	best, err := r.BestBlock(ctx)
	if err != nil {
		return nil, err
	}

	const query = `SELECT txID, txN, isCoinbase, blockHeight, amount, script, address FROM unspent`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query unspent set: %w", err)
	}

	c := &CoinsCursor{rows: rows, best: best}
	c.Next()
	if c.err != nil {
		err = c.err
		return nil, err
	}
	return c, nil
}

// Valid reports whether the cursor is positioned on a record.
func (c *CoinsCursor) Valid() bool {
	return c.valid
}

// Next advances to the next record. Advancing past the end is a no-op that
// leaves the cursor invalid.
func (c *CoinsCursor) Next() {
	if c.err != nil {
		c.valid = false
		return
	}
	if !c.rows.Next() {
		c.valid = false
		if err := c.rows.Err(); err != nil {
			c.err = fmt.Errorf("iterate unspent set: %w", err)
		}
		return
	}

	var (
		txID     []byte
		coinbase int
	)
	c.coin = model.Coin{}
	c.addr = sql.NullString{}
	if err := c.rows.Scan(&txID, &c.key.Index, &coinbase,
		&c.coin.Height, &c.coin.Amount, &c.coin.PkScript, &c.addr); err != nil {
		c.valid = false
		c.err = fmt.Errorf("scan unspent row: %w", err)
		return
	}
	hash, err := hashFromRaw(txID)
	if err != nil {
		c.valid = false
		c.err = fmt.Errorf("unspent txID: %w", err)
		return
	}
	c.key.Hash = hash
	c.coin.IsCoinbase = coinbase != 0
	c.valid = true
}

// Key returns the outpoint at the cursor position.
func (c *CoinsCursor) Key() (wire.OutPoint, error) {
	if !c.valid {
		return wire.OutPoint{}, c.exhausted()
	}
	return c.key, nil
}

// Value returns the coin at the cursor position.
func (c *CoinsCursor) Value() (model.Coin, error) {
	if !c.valid {
		return model.Coin{}, c.exhausted()
	}
	return c.coin, nil
}

// Address returns the indexed address column at the cursor position; empty
// for scripts without a standard destination.
func (c *CoinsCursor) Address() (string, error) {
	if !c.valid {
		return "", c.exhausted()
	}
	return c.addr.String, nil
}

// BestBlock returns the tip hash captured when the cursor was opened.
func (c *CoinsCursor) BestBlock() chainhash.Hash {
	return c.best
}

// Close releases the cursor's result set and connection.
func (c *CoinsCursor) Close() error {
	c.valid = false
	return c.rows.Close()
}

func (c *CoinsCursor) exhausted() error {
	if c.err != nil {
		return c.err
	}
	return ErrCursorExhausted
}
