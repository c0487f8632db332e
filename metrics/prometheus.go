// Package metrics provides Prometheus metrics for the FlightSurety chaincode.
//
// Counters are incremented during endorsement, so they count simulated
// transactions, not committed ones.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Manager owns the chaincode's Prometheus collectors.
type Manager struct {
	namespace string
	subsystem string
	registry  prometheus.Registerer

	transactions  *prometheus.CounterVec
	finalizations *prometheus.CounterVec
	payouts       prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "flightsurety",
		subsystem: "chaincode",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	m.transactions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transactions_total",
		Help:      "Transaction function invocations by function and outcome",
	}, []string{"function", "outcome"})
	m.finalizations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "oracle_finalizations_total",
		Help:      "Oracle requests that reached quorum, by finalized status",
	}, []string{"status"})
	m.payouts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "payouts_total",
		Help:      "Insurance payouts withdrawn by passengers",
	})
}

// RecordTransaction counts one invocation of function; err selects the outcome.
func (m *Manager) RecordTransaction(function string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeRejected
	}
	m.transactions.WithLabelValues(function, outcome).Inc()
}

// RecordFinalization counts a quorum finalization.
func (m *Manager) RecordFinalization(status string) {
	m.finalizations.WithLabelValues(status).Inc()
}

// RecordPayout counts a withdrawn payout.
func (m *Manager) RecordPayout() {
	m.payouts.Inc()
}

// RecordTransaction records on the global manager.
func RecordTransaction(function string, err error) {
	globalManager.RecordTransaction(function, err)
}

// RecordFinalization records on the global manager.
func RecordFinalization(status string) {
	globalManager.RecordFinalization(status)
}

// RecordPayout records on the global manager.
func RecordPayout() {
	globalManager.RecordPayout()
}

// Handler exposes the global registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrServeFailed, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
