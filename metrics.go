package tracker

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts what the market data caches, the batch operations and the
// remote sync did. A nil *Metrics records nothing.
type Metrics struct {
	quoteLookups *prometheus.CounterVec
	rateLookups  *prometheus.CounterVec
	syncOps      *prometheus.CounterVec
	batchItems   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg (when not nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		quoteLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "quote_lookups_total",
			Help:      "Quote lookups by cache and result (hit, fetched, failed).",
		}, []string{"cache", "result"}),
		rateLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "rate_lookups_total",
			Help:      "Exchange rate lookups by result (identity, hit, fetched, stale, fallback).",
		}, []string{"result"}),
		syncOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "sync_operations_total",
			Help:      "Remote store operations by kind (load, save) and result.",
		}, []string{"op", "result"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "batch_items_total",
			Help:      "Items processed by ingestion and refresh, by operation and result.",
		}, []string{"op", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.quoteLookups, m.rateLookups, m.syncOps, m.batchItems)
	}
	return m
}

func (m *Metrics) quote(cache, result string) {
	if m != nil {
		m.quoteLookups.WithLabelValues(cache, result).Inc()
	}
}

func (m *Metrics) rate(result string) {
	if m != nil {
		m.rateLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) sync(op, result string) {
	if m != nil {
		m.syncOps.WithLabelValues(op, result).Inc()
	}
}

func (m *Metrics) batch(op, result string) {
	if m != nil {
		m.batchItems.WithLabelValues(op, result).Inc()
	}
}
