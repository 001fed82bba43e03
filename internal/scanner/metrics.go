package scanner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for pool scans.
type Metrics struct {
	lookupsTotal   *prometheus.CounterVec
	lookupDuration prometheus.Histogram
	scansTotal     *prometheus.CounterVec
	poolsScanned   prometheus.Gauge
}

// NewMetrics creates and registers the scanner metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_pool_lookups_total",
			Help: "Pool lookups, labeled by outcome.",
		}, []string{"status"}),
		lookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_pool_lookup_duration_seconds",
			Help:    "Time taken by a single pool lookup.",
			Buckets: prometheus.DefBuckets,
		}),
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_scans_total",
			Help: "Completed pool scans, labeled by result.",
		}, []string{"result"}),
		poolsScanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_pools_last_scan",
			Help: "Number of pools returned by the last successful scan.",
		}),
	}
	reg.MustRegister(m.lookupsTotal, m.lookupDuration, m.scansTotal, m.poolsScanned)
	return m
}

func (m *Metrics) observeLookup(status Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(status.String()).Inc()
	m.lookupDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeScan(pools int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.scansTotal.WithLabelValues("error").Inc()
		return
	}
	m.scansTotal.WithLabelValues("ok").Inc()
	m.poolsScanned.Set(float64(pools))
}
