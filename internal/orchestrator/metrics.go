// metrics.go exposes Prometheus counters and gauges for the
// orchestrator's lifecycle events, served alongside a /healthz endpoint.
//
// Grounded on chidi150c-coinbase's metrics.go/main.go: metrics declared
// as package-level prometheus.Collector vars, registered in init(), and
// served over promhttp.Handler() next to a trivial /healthz handler.
package orchestrator

import "github.com/prometheus/client_golang/prometheus"

var (
	candidatesScanned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbitd_candidates_scanned_total",
		Help: "Best candidates handed from the scanner to the executor.",
	})

	sequencesAdmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbitd_sequences_admitted_total",
		Help: "Candidate sequences that passed admission control and were handed to the executor.",
	})

	ordersDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arbitd_orders_dispatched_total",
		Help: "PENDING order updates reported by exchange adapters.",
	}, []string{"exchange"})

	ordersCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arbitd_orders_completed_total",
		Help: "Orders that reached COMPLETED status.",
	}, []string{"exchange"})

	ordersRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arbitd_orders_rejected_total",
		Help: "Orders that reached REJECTED status.",
	}, []string{"exchange"})

	activeSequences = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arbitd_active_sequences",
		Help: "Number of arbitrage sequences currently in flight.",
	})
)

func init() {
	prometheus.MustRegister(candidatesScanned, sequencesAdmitted)
	prometheus.MustRegister(ordersDispatched, ordersCompleted, ordersRejected)
	prometheus.MustRegister(activeSequences)
}
