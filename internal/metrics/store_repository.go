// Package metrics exposes Prometheus collectors for chainstate components.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainstate7000",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Count of chain-state store operations.",
	}, []string{"operation", "store", "status"})
	storeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainstate7000",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of chain-state store operations.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30},
	}, []string{"operation", "store", "status"})
)

// StoreRepository tracks metrics for one chain-state store (coins or block
// tree).
type StoreRepository struct {
	store string
}

// NewStoreRepository creates a collector labeled with the store name.
func NewStoreRepository(store string) *StoreRepository {
	if store == "" {
		store = "unknown"
	}
	return &StoreRepository{store: store}
}

// Observe records duration and status of a store operation.
func (m StoreRepository) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	storeOperationsTotal.WithLabelValues(operation, m.store, status).Inc()
	storeOperationDuration.WithLabelValues(operation, m.store, status).Observe(time.Since(started).Seconds())
}
