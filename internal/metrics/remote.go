package metrics

import "github.com/prometheus/client_golang/prometheus"

// Remote backend Prometheus metrics (Vision Product Search, object storage).
var (
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shoplens",
			Name:      "remote_requests_total",
			Help:      "Total number of remote backend requests",
		},
		[]string{"backend", "op", "status"},
	)

	RemoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shoplens",
			Name:      "remote_request_duration_seconds",
			Help:      "Remote backend request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend", "op"},
	)

	ImportProductsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shoplens",
			Name:      "import_products_total",
			Help:      "Total products processed by catalog imports",
		},
		[]string{"result"}, // "succeeded" / "failed"
	)

	SearchResultsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shoplens",
			Name:      "search_results_returned",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)
)

var remoteMetricsRegistered bool

// RegisterRemoteMetrics registers Prometheus remote backend metrics. Must be called once from main.
func RegisterRemoteMetrics() {
	if remoteMetricsRegistered {
		return
	}
	prometheus.MustRegister(RemoteRequestsTotal)
	prometheus.MustRegister(RemoteRequestDuration)
	prometheus.MustRegister(ImportProductsTotal)
	prometheus.MustRegister(SearchResultsReturned)
	remoteMetricsRegistered = true
}
