package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC metrics
	rpcCallsTotal     *prometheus.CounterVec
	rpcCallDuration   *prometheus.HistogramVec
	rpcRateLimitHits  *prometheus.CounterVec
	batchRetriesTotal prometheus.Counter

	// Decode pipeline metrics
	transactionsParsedTotal *prometheus.CounterVec
	tradesEmittedTotal      prometheus.Counter
	tradesDroppedTotal      *prometheus.CounterVec

	// Token resolution metrics
	tokenResolutionsTotal *prometheus.CounterVec

	// Retrieval engine metrics
	historyDuration  prometheus.Histogram
	batchesProcessed prometheus.Counter

	// NATS metrics
	natsPublishesTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),
		rpcRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_rate_limit_hits_total",
				Help: "Total number of Solana RPC rate limit hits (429 errors)",
			},
			[]string{"method"},
		),
		batchRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "trade_batch_retries_total",
				Help: "Total number of transaction batch fetches retried after throttling",
			},
		),
		transactionsParsedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_parsed_total",
				Help: "Total number of transactions run through the swap parser by outcome",
			},
			[]string{"outcome"},
		),
		tradesEmittedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "trades_emitted_total",
				Help: "Total number of formatted trades emitted to sinks",
			},
		),
		tradesDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trades_dropped_total",
				Help: "Total number of trades dropped before emission by reason",
			},
			[]string{"reason"},
		),
		tokenResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_resolutions_total",
				Help: "Total number of token metadata resolutions by source tier",
			},
			[]string{"source"},
		),
		historyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trade_history_duration_seconds",
				Help:    "Wall time of complete trade history retrievals",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		batchesProcessed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "trade_batches_processed_total",
				Help: "Total number of signature batches processed",
			},
		),
		natsPublishesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_publishes_total",
				Help: "Total number of NATS publish attempts by status",
			},
			[]string{"status"},
		),
	}
}

// RecordRPCCall records a Solana RPC call with its duration.
func (m *Metrics) RecordRPCCall(method, status string, seconds float64) {
	m.rpcCallsTotal.WithLabelValues(method, status).Inc()
	m.rpcCallDuration.WithLabelValues(method).Observe(seconds)
}

// RecordRateLimitHit records an upstream 429 response.
func (m *Metrics) RecordRateLimitHit(method string) {
	m.rpcRateLimitHits.WithLabelValues(method).Inc()
}

// RecordBatchRetry records a batch fetch retry after throttling.
func (m *Metrics) RecordBatchRetry() {
	m.batchRetriesTotal.Inc()
}

// RecordTransactionParsed records a parser outcome: "trade", "no_trade",
// "failed_tx", or "missing".
func (m *Metrics) RecordTransactionParsed(outcome string) {
	m.transactionsParsedTotal.WithLabelValues(outcome).Inc()
}

// RecordTradeEmitted records a formatted trade handed to a sink.
func (m *Metrics) RecordTradeEmitted() {
	m.tradesEmittedTotal.Inc()
}

// RecordTradeDropped records a trade dropped before emission.
func (m *Metrics) RecordTradeDropped(reason string) {
	m.tradesDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordTokenResolution records where a token lookup was satisfied:
// "memory", "store", "chain", "fallback", or "dropped".
func (m *Metrics) RecordTokenResolution(source string, count int) {
	m.tokenResolutionsTotal.WithLabelValues(source).Add(float64(count))
}

// RecordHistoryDuration records the wall time of a full retrieval call.
func (m *Metrics) RecordHistoryDuration(seconds float64) {
	m.historyDuration.Observe(seconds)
}

// RecordBatchProcessed records one fully processed signature batch.
func (m *Metrics) RecordBatchProcessed() {
	m.batchesProcessed.Inc()
}

// RecordNATSPublish records a publish attempt to the trade stream.
func (m *Metrics) RecordNATSPublish(status string) {
	m.natsPublishesTotal.WithLabelValues(status).Inc()
}
