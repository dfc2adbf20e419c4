package metrics

import "github.com/prometheus/client_golang/prometheus"

// Routing and resolution Prometheus metrics.
var (
	RoutingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newave_agent",
			Name:      "routing_decisions_total",
			Help:      "Routing decisions by outcome kind",
		},
		[]string{"kind"}, // "execute" / "disambiguate" / "none"
	)

	RoutingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "newave_agent",
			Name:      "routing_duration_seconds",
			Help:      "End-to-end routing duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	RoutingToolsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "newave_agent",
			Name:      "routing_tools_dropped_total",
			Help:      "Tools dropped from ranking after a failed embedding fetch",
		},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newave_agent",
			Name:      "resolutions_total",
			Help:      "Entity resolutions by winning strategy ('none' when every strategy failed)",
		},
		[]string{"strategy"},
	)
)

var routingMetricsRegistered bool

// RegisterRoutingMetrics registers Prometheus routing metrics. Must be
// called once from main.
func RegisterRoutingMetrics() {
	if routingMetricsRegistered {
		return
	}
	prometheus.MustRegister(RoutingDecisionsTotal)
	prometheus.MustRegister(RoutingDuration)
	prometheus.MustRegister(RoutingToolsDropped)
	prometheus.MustRegister(ResolutionsTotal)
	routingMetricsRegistered = true
}
