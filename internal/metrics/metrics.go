package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the Prometheus collectors for pool sync and position actions.
type Metrics struct {
	subgraphRequests *prometheus.CounterVec
	priceLookups     *prometheus.CounterVec
	positionReads    *prometheus.CounterVec
	transactions     *prometheus.CounterVec
	txWait           *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. A nil reg leaves them
// unregistered, which keeps tests and one-shot commands free of global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		subgraphRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stake_subgraph_requests_total",
			Help: "Pool queries sent to the indexing service, labeled by result.",
		}, []string{"result"}),
		priceLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stake_price_lookups_total",
			Help: "Price lookups, labeled by lookup mode and result.",
		}, []string{"mode", "result"}),
		positionReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stake_position_reads_total",
			Help: "On-chain position reads, labeled by field and result.",
		}, []string{"field", "result"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stake_transactions_total",
			Help: "Submitted transactions, labeled by kind and result.",
		}, []string{"kind", "result"}),
		txWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stake_tx_wait_seconds",
			Help:    "Time from submission to inclusion.",
			Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.subgraphRequests, m.priceLookups, m.positionReads, m.transactions, m.txWait)
	}
	return m
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func (m *Metrics) ObserveSubgraph(err error) {
	if m == nil {
		return
	}
	m.subgraphRequests.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObservePrice(mode string, err error) {
	if m == nil {
		return
	}
	m.priceLookups.WithLabelValues(mode, result(err)).Inc()
}

func (m *Metrics) ObserveRead(field string, err error) {
	if m == nil {
		return
	}
	m.positionReads.WithLabelValues(field, result(err)).Inc()
}

// ObserveTx records a transaction outcome and, on success, its inclusion latency.
func (m *Metrics) ObserveTx(kind string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(kind, result(err)).Inc()
	if err == nil {
		m.txWait.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	}
}
