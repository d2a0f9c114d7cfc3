// Package txindexer populates the optional transaction-location index in the
// background, buffering locator entries and flushing them in batches.
package txindexer

import (
	"context"
	"errors"
	"time"

	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/model"
	"github.com/goodnatureofminers/chainstate7000/pkg/batcher"
	"go.uber.org/zap"
)

const (
	defaultFlushSize     = 4096
	defaultFlushInterval = 2 * time.Second
	defaultFlushRPS      = 50
)

// Repository describes the persistence the indexer needs.
type Repository interface {
	WriteTxIndex(ctx context.Context, entries []model.TxIndexEntry) error
}

// Service buffers transaction locators and writes them through the block tree
// repository in size- or interval-triggered batches.
type Service struct {
	logger  *zap.Logger
	batcher *batcher.Batcher[model.TxIndexEntry]
}

// New builds an indexer service over the given repository.
func New(repo Repository, logger *zap.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("tx index repository is required")
	}

	s := &Service{logger: logger.Named("txindexer")}
	s.batcher = batcher.New(s.logger, func(ctx context.Context, entries []model.TxIndexEntry) error {
		return repo.WriteTxIndex(ctx, entries)
	}, defaultFlushSize, defaultFlushInterval, defaultFlushRPS)
	s.batcher.OnFlushError(func(err error) {
		s.logger.Error("tx index flush failed; locators lost until reindex", zap.Error(err))
	})
	return s, nil
}

// Start begins background flushing.
func (s *Service) Start(ctx context.Context) {
	s.batcher.Start(ctx)
}

// Stop flushes pending entries and stops the background loop.
func (s *Service) Stop() {
	s.batcher.Stop()
}

// Index queues one transaction locator for persistence.
func (s *Service) Index(ctx context.Context, entry model.TxIndexEntry) error {
	return s.batcher.Add(ctx, entry)
}
