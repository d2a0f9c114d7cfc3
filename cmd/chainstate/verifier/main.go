// Command verifier walks the whole coin store, re-derives the indexed
// address of every unspent script and reports aggregate statistics. It is
// meant to be pointed at a live database after an unclean shutdown, or run
// periodically as a consistency check.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/model"
	"github.com/goodnatureofminers/chainstate7000/internal/chainstate/repository/sqlite"
	"github.com/goodnatureofminers/chainstate7000/internal/clock"
	"github.com/goodnatureofminers/chainstate7000/internal/metrics"
	"github.com/goodnatureofminers/chainstate7000/pkg/workerpool"
)

var config struct {
	DBPath      string        `long:"db-path" env:"VERIFIER_DB_PATH" default:"chainstate.db" description:"path to the coin store database"`
	Network     string        `long:"network" env:"VERIFIER_NETWORK" default:"mainnet" description:"network the store was built for"`
	Workers     int           `long:"workers" env:"VERIFIER_WORKERS" default:"8" description:"script decode workers"`
	Interval    time.Duration `long:"interval" env:"VERIFIER_INTERVAL" description:"re-run every interval; run once when zero"`
	MetricsAddr string        `long:"metrics-addr" env:"VERIFIER_METRICS_ADDR" description:"expose /metrics on this address when set"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()
	if _, err := flags.ParseArgs(&config, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("Failed to parse arguments", zap.Error(err))
	}

	params, err := chainParamsForNetwork(config.Network)
	if err != nil {
		logger.Fatal("Unsupported network", zap.Error(err))
	}

	if config.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s := &http.Server{
			Addr:              config.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-ctx.Done()
			_ = s.Shutdown(context.Background())
		}()
		go func() {
			if serveErr := s.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("Failed to serve metrics", zap.Error(serveErr))
			}
		}()
	}

	repo, err := sqlite.NewCoinsRepository(
		sqlite.Config{Path: config.DBPath},
		params,
		metrics.NewStoreRepository("coins"),
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to open coin store", zap.Error(err))
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Error("Failed to close coin store", zap.Error(closeErr))
		}
	}()

	for {
		if err := verify(ctx, repo, params, config.Workers, logger); err != nil {
			logger.Fatal("Verification failed", zap.Error(err))
		}
		if config.Interval <= 0 {
			return
		}
		if err := clock.SleepWithContext(ctx, config.Interval); err != nil {
			logger.Info("Shutting down", zap.Error(err))
			return
		}
	}
}

// record pairs one unspent output with the address column persisted next to
// it, so the script can be re-decoded and compared offline.
type record struct {
	coin   model.Coin
	stored string
}

// verify drains the cursor into memory first: the store runs on a single
// connection and the open cursor holds it until closed.
func verify(ctx context.Context, repo *sqlite.CoinsRepository, params *chaincfg.Params, workers int, logger *zap.Logger) error {
	started := time.Now()

	cursor, err := repo.Cursor(ctx)
	if err != nil {
		return fmt.Errorf("open cursor: %w", err)
	}
	best := cursor.BestBlock()

	var records []record
	for ; cursor.Valid(); cursor.Next() {
		coin, err := cursor.Value()
		if err != nil {
			_ = cursor.Close()
			return fmt.Errorf("read coin: %w", err)
		}
		stored, err := cursor.Address()
		if err != nil {
			_ = cursor.Close()
			return fmt.Errorf("read address: %w", err)
		}
		records = append(records, record{coin: coin, stored: stored})
	}
	if err := cursor.Close(); err != nil {
		return fmt.Errorf("close cursor: %w", err)
	}

	var total, unaddressed, mismatched int64
	err = workerpool.Process(ctx, workers, records, func(_ context.Context, rec record) error {
		atomic.AddInt64(&total, rec.coin.Amount)
		derived := deriveAddress(rec.coin.PkScript, params)
		if derived == "" {
			atomic.AddInt64(&unaddressed, 1)
		}
		if derived != rec.stored {
			atomic.AddInt64(&mismatched, 1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("decode scripts: %w", err)
	}

	size, err := repo.EstimateSize(ctx)
	if err != nil {
		return fmt.Errorf("estimate size: %w", err)
	}

	logger.Info("Coin store verified",
		zap.Stringer("best_block", &best),
		zap.Int("coins", len(records)),
		zap.Stringer("total_amount", btcutil.Amount(total)),
		zap.Int64("without_address", unaddressed),
		zap.Int64("address_mismatches", mismatched),
		zap.Uint64("estimated_bytes", size),
		zap.Duration("elapsed", time.Since(started)),
	)
	if mismatched > 0 {
		return fmt.Errorf("%d unspent records have a stale address column", mismatched)
	}
	return nil
}

// deriveAddress mirrors the derivation the store applies on write. Scripts
// without a standard destination map to the empty string.
func deriveAddress(script []byte, params *chaincfg.Params) string {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(script, params)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0].EncodeAddress()
}

func chainParamsForNetwork(network string) (*chaincfg.Params, error) {
	switch network {
	case "main", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}
}
