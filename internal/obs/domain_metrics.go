package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ComparisonViewTotal counts comparison view computations by outcome.
	ComparisonViewTotal *prometheus.CounterVec
	// ComparisonRecomputeLatency records full view recompute latency in milliseconds.
	ComparisonRecomputeLatency prometheus.Histogram
	// CoverageMissingItems records how many requested items were left uncovered per recompute.
	CoverageMissingItems prometheus.Histogram
	// PriceEditTotal counts permanent price edit submissions by outcome.
	PriceEditTotal *prometheus.CounterVec
	// SupplierSyncTotal counts supplier response sync runs by outcome.
	SupplierSyncTotal *prometheus.CounterVec
	// SupplierSyncQuotes counts quotes ingested from supplier responses.
	SupplierSyncQuotes prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ComparisonViewTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparison_view_total",
			Help:      "Count of comparison view computations by outcome.",
		}, []string{"result"})
		ComparisonRecomputeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "comparison_recompute_duration_ms",
			Help:      "Latency for full comparison view recomputes in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		})
		CoverageMissingItems = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "coverage_missing_items",
			Help:      "Requested items left uncovered per comparison recompute.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		})
		PriceEditTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_edit_total",
			Help:      "Count of permanent price edit submissions by outcome.",
		}, []string{"result"})
		SupplierSyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supplier_sync_total",
			Help:      "Count of supplier response sync runs by outcome.",
		}, []string{"result"})
		SupplierSyncQuotes = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supplier_sync_quotes_total",
			Help:      "Total number of quotes ingested from supplier responses.",
		})

		mustRegisterCollector(reg, ComparisonViewTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ComparisonViewTotal = v
			}
		})
		mustRegisterCollector(reg, ComparisonRecomputeLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				ComparisonRecomputeLatency = v
			}
		})
		mustRegisterCollector(reg, CoverageMissingItems, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				CoverageMissingItems = v
			}
		})
		mustRegisterCollector(reg, PriceEditTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PriceEditTotal = v
			}
		})
		mustRegisterCollector(reg, SupplierSyncTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SupplierSyncTotal = v
			}
		})
		mustRegisterCollector(reg, SupplierSyncQuotes, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SupplierSyncQuotes = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
