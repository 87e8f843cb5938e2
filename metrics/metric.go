package metrics

import (
	"net/http"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zlog"

var (
	Registry = prometheus.NewRegistry()

	GRPCMetrics = grpcprometheus.NewServerMetrics(
		func(c *prometheus.CounterOpts) {
			c.Namespace = namespace
		},
	)

	// ExecCounter counts object class method calls by outcome.
	ExecCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "objclass",
			Name:      "exec_total",
			Help:      "object class method calls",
		},
		[]string{"class", "method", "code"},
	)

	ExecDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "objclass",
			Name:      "exec_duration_seconds",
			Help:      "object class method latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"class", "method"},
	)

	ExecBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "objclass",
			Name:      "exec_bytes_total",
			Help:      "object class method input and output bytes",
		},
		[]string{"class", "direction"},
	)
)

func init() {
	Registry.MustRegister(
		GRPCMetrics,
		ExecCounter,
		ExecDuration,
		ExecBytes,
	)
	GRPCMetrics.EnableHandlingTimeHistogram(
		func(h *prometheus.HistogramOpts) {
			h.Namespace = namespace
		},
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
