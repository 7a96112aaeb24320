package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lottery"

// Metrics groups the collectors updated by the lottery workflow. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	transactions   *prometheus.CounterVec
	confirmSeconds *prometheus.HistogramVec
	snapshotReads  *prometheus.CounterVec
	participants   prometheus.Gauge
	draws          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "State-changing lottery transactions by operation and outcome.",
		}, []string{"operation", "result"}),
		confirmSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirmation_seconds",
			Help:      "Time from submission to the first confirmation.",
			Buckets:   []float64{1, 5, 12, 30, 60, 120, 300},
		}, []string{"operation"}),
		snapshotReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_reads_total",
			Help:      "Contract snapshot reads by outcome.",
		}, []string{"result"}),
		participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "participants",
			Help:      "Entries seen in the last snapshot, duplicates included.",
		}),
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_total",
			Help:      "Completed winner selections by whether the winner was inferred.",
		}, []string{"winner"}),
	}
	reg.MustRegister(m.transactions, m.confirmSeconds, m.snapshotReads, m.participants, m.draws)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveTx records the outcome of a state-changing operation
func (m *Metrics) ObserveTx(operation string, err error) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(operation, result(err)).Inc()
}

// ObserveConfirmation records how long a transaction took to be mined
func (m *Metrics) ObserveConfirmation(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.confirmSeconds.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveSnapshot records a snapshot read and the entry count it found
func (m *Metrics) ObserveSnapshot(participants int, err error) {
	if m == nil {
		return
	}
	m.snapshotReads.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.participants.Set(float64(participants))
	}
}

// ObserveDraw records a completed draw
func (m *Metrics) ObserveDraw(winnerKnown bool) {
	if m == nil {
		return
	}
	label := "unknown"
	if winnerKnown {
		label = "known"
	}
	m.draws.WithLabelValues(label).Inc()
}
