package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "manager",
		Name:      "loads_total",
		Help:      "Total successful model loads",
	})

	loadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "manager",
		Name:      "load_failures_total",
		Help:      "Total failed model loads",
	})

	swapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "manager",
		Name:      "swaps_total",
		Help:      "Total completed model swaps",
	})

	forcedCancelsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "manager",
		Name:      "forced_cancels_total",
		Help:      "In-flight requests cancelled by drain timeouts",
	})

	tokensTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "manager",
		Name:      "generated_tokens_total",
		Help:      "Total generated tokens across all requests",
	})
)

func init() {
	prometheus.MustRegister(loadsTotal, loadFailuresTotal, swapsTotal, forcedCancelsTotal, tokensTotal)
}
