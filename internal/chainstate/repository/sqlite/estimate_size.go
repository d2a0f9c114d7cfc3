package sqlite

import (
	"context"
	"fmt"
	"time"
)

// estimatedRowOverhead is the assumed on-disk footprint of one unspent row.
const estimatedRowOverhead = 100

// EstimateSize returns a coarse byte-size estimate of the coin store, meant
// only for cache-sizing decisions.
func (r *CoinsRepository) EstimateSize(ctx context.Context) (_ uint64, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("estimate_size", err, started)
	}()

	var rows uint64
	if err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM unspent").Scan(&rows); err != nil {
		return 0, fmt.Errorf("count unspent rows: %w", err)
	}
	return rows * estimatedRowOverhead, nil
}
