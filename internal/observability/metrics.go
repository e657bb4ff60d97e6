package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the payout engine's Prometheus collectors. All helper
// methods are nil-safe so tests and partial wirings can pass a nil *Metrics.
type Metrics struct {
	schedulerRuns    *prometheus.CounterVec
	payoutsProcessed *prometheus.CounterVec
	payoutAmount     prometheus.Counter
	transferAttempts prometheus.Counter
	transferRetries  prometheus.Counter
	rateLimitHits    prometheus.Counter
	transferSeconds  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		schedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_scheduler_runs_total",
			Help: "Scheduler executions by outcome.",
		}, []string{"outcome"}),
		payoutsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payouts_processed_total",
			Help: "Payout attempts by result.",
		}, []string{"result"}),
		payoutAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payout_amount_jpy_total",
			Help: "Total JPY moved by completed transfers.",
		}),
		transferAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transfer_attempts_total",
			Help: "Transfer API attempts including retries.",
		}),
		transferRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transfer_retries_total",
			Help: "Transfer API retry attempts.",
		}),
		rateLimitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transfer_rate_limit_hits_total",
			Help: "Rate-limit responses from the processor.",
		}),
		transferSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transfer_duration_seconds",
			Help:    "Wall time of CreateTransfer including retries.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.schedulerRuns, m.payoutsProcessed, m.payoutAmount,
		m.transferAttempts, m.transferRetries, m.rateLimitHits, m.transferSeconds)
	return m
}

func (m *Metrics) SchedulerRun(outcome string) {
	if m == nil {
		return
	}
	m.schedulerRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PayoutProcessed(result string, amount int64) {
	if m == nil {
		return
	}
	m.payoutsProcessed.WithLabelValues(result).Inc()
	if result == "success" && amount > 0 {
		m.payoutAmount.Add(float64(amount))
	}
}

func (m *Metrics) TransferAttempt() {
	if m == nil {
		return
	}
	m.transferAttempts.Inc()
}

func (m *Metrics) TransferRetry() {
	if m == nil {
		return
	}
	m.transferRetries.Inc()
}

func (m *Metrics) RateLimitHit() {
	if m == nil {
		return
	}
	m.rateLimitHits.Inc()
}

func (m *Metrics) TransferDuration(seconds float64) {
	if m == nil {
		return
	}
	m.transferSeconds.Observe(seconds)
}
