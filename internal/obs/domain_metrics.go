package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// EvaluationTotal counts promotion evaluation outcomes by result
	// (combo, coupon, combo_coupon, none, stacking_denied, error).
	EvaluationTotal *prometheus.CounterVec
	// ReservationTotal counts usage reservation outcomes by promotion kind
	// and result (ok, cap_exceeded, error).
	ReservationTotal *prometheus.CounterVec
	// ReleaseTotal counts reservation releases by kind and result
	// (ok, frozen, noop, error).
	ReleaseTotal *prometheus.CounterVec
	// SettlementTotal counts settlement outcomes (ok, replay, error).
	SettlementTotal *prometheus.CounterVec
	// SettlementLatency records settlement handler latency in milliseconds.
	SettlementLatency prometheus.Histogram
	// OrderTransitionTotal counts order status transitions by target state
	// and result (ok, rejected, conflict).
	OrderTransitionTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the engine's
// Prometheus collectors. Safe to call more than once.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		EvaluationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_evaluation_total",
			Help:      "Count of promotion evaluation outcomes.",
		}, []string{"result"})
		ReservationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_reservation_total",
			Help:      "Count of usage reservation outcomes.",
		}, []string{"kind", "result"})
		ReleaseTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_release_total",
			Help:      "Count of usage release outcomes.",
		}, []string{"kind", "result"})
		SettlementTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_total",
			Help:      "Count of commission settlement outcomes.",
		}, []string{"result"})
		SettlementLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_duration_ms",
			Help:      "Latency of settlement runs in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		})
		OrderTransitionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transition_total",
			Help:      "Count of order status transition outcomes.",
		}, []string{"to", "result"})

		mustRegisterCollector(reg, EvaluationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				EvaluationTotal = v
			}
		})
		mustRegisterCollector(reg, ReservationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReservationTotal = v
			}
		})
		mustRegisterCollector(reg, ReleaseTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReleaseTotal = v
			}
		})
		mustRegisterCollector(reg, SettlementTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettlementTotal = v
			}
		})
		mustRegisterCollector(reg, SettlementLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SettlementLatency = v
			}
		})
		mustRegisterCollector(reg, OrderTransitionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderTransitionTotal = v
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
