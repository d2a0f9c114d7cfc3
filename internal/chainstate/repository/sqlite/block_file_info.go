package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/model"
)

// BlockFileInfo returns the aggregate statistics for one block file, or nil
// when the file is unknown.
func (r *BlockTreeRepository) BlockFileInfo(ctx context.Context, file int32) (_ *model.BlockFileInfo, err error) {
	started := time.Now()
	defer func() {
		r.metrics.Observe("block_file_info", err, started)
	}()

	const query = `
SELECT blocks, size, undoSize, heightFirst, heightLast, timeFirst, timeLast
FROM block_file
WHERE file = ?`

	var info model.BlockFileInfo
	err = r.db.QueryRowContext(ctx, query, file).Scan(
		&info.Blocks,
		&info.Size,
		&info.UndoSize,
		&info.HeightFirst,
		&info.HeightLast,
		&info.TimeFirst,
		&info.TimeLast,
	)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query block file info: %w", err)
	}
	return &info, nil
}
