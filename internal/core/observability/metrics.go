package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	snapshotResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_results_total",
			Help: "Snapshot fetches by endpoint family and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	rateGateBlocks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_gate_blocks_total",
			Help: "Fetches refused locally because the token is inside a 429 window.",
		},
	)

	rateGateOpSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rate_gate_operation_duration_seconds",
			Help:    "Latency of rate gate store operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "result"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)

	collectorsAll = []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds, upstreamLatencySeconds,
		snapshotResults, rateGateBlocks, rateGateOpSeconds, buildInfo,
	}
)

func init() {
	Register(prometheus.DefaultRegisterer)
}

// Register adds the service collectors to reg. Registering twice is a no-op.
func Register(reg prometheus.Registerer) {
	for _, c := range collectorsAll {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

// Snapshot outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeServiceErr  = "service_error"
	OutcomeTransport   = "transport_error"
	OutcomeUndecodable = "undecodable"
	OutcomeRateLimited = "rate_limited"
	OutcomeCancelled   = "cancelled"
	OutcomeInvalid     = "invalid"
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

func IncSnapshotResult(endpoint, outcome string) {
	snapshotResults.WithLabelValues(endpoint, outcome).Inc()
}

func IncRateGateBlock() { rateGateBlocks.Inc() }

// ObserveGateOp records one store round trip.
func ObserveGateOp(op string, err error, seconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	rateGateOpSeconds.WithLabelValues(op, result).Observe(seconds)
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
