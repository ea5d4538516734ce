// Package observability exposes the engine's runtime counters as
// Prometheus metrics. It replaces the teacher's general-purpose pub/sub
// event bus (internal/events/event_bus.go) with the narrower concern this
// engine actually needs: a handful of counters and a latency histogram
// that the cycle controller and order submission path update directly,
// scraped over internal/statusapi's /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds every metric the engine emits. One Recorder is created
// at startup and threaded into the cycle controller and strategy state,
// mirroring the teacher's single-event-bus-per-process convention.
type Recorder struct {
	CyclesRun       prometheus.Counter
	CycleDuration   prometheus.Histogram
	SignalsGenerated *prometheus.CounterVec
	OrdersSubmitted  *prometheus.CounterVec
	OrdersRejected   *prometheus.CounterVec
	OrderLatency     prometheus.Histogram
	ActivePositions  prometheus.Gauge
	BrokerConnected  prometheus.Gauge
}

// NewRecorder registers every metric against reg and returns the Recorder.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		CyclesRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signalengine",
			Name:      "cycles_total",
			Help:      "Number of cycle controller ticks completed.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "signalengine",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of one full cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		SignalsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalengine",
			Name:      "signals_generated_total",
			Help:      "Signals generated, by strategy_id and signal_type.",
		}, []string{"strategy_id", "signal_type"}),
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalengine",
			Name:      "orders_submitted_total",
			Help:      "Orders submitted to the broker, by status.",
		}, []string{"status"}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalengine",
			Name:      "orders_rejected_total",
			Help:      "Orders rejected before submission, by reason.",
		}, []string{"reason"}),
		OrderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "signalengine",
			Name:      "order_submission_latency_seconds",
			Help:      "Time spent in the broker place_order round trip.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActivePositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "signalengine",
			Name:      "active_positions",
			Help:      "Number of currently open positions across all strategies.",
		}),
		BrokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "signalengine",
			Name:      "broker_connected",
			Help:      "1 if the broker adapter is connected, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		r.CyclesRun, r.CycleDuration, r.SignalsGenerated,
		r.OrdersSubmitted, r.OrdersRejected, r.OrderLatency,
		r.ActivePositions, r.BrokerConnected,
	)
	return r
}
