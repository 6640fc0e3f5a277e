// Package metrics assembles the Prometheus registry the snapshot proxy
// exposes on its metrics route.
package metrics

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/static-snapshot/internal/core/observability"
)

// Build describes the running binary.
type Build struct {
	Version  string
	Revision string
	Branch   string
	Date     string
}

// BuildFromEnv fills the VCS fields from BUILD_REVISION, BUILD_BRANCH and
// BUILD_DATE.
func BuildFromEnv(version string) Build {
	return Build{
		Version:  version,
		Revision: os.Getenv("BUILD_REVISION"),
		Branch:   os.Getenv("BUILD_BRANCH"),
		Date:     os.Getenv("BUILD_DATE"),
	}
}

// Registry holds the runtime collectors, the snapshot collectors and the
// build gauge on a registry separate from the default one.
type Registry struct {
	reg *prometheus.Registry
}

func New(b Build) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observability.Register(reg)

	details := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "app_build_details",
		Help: "Build of the snapshot proxy (value is always 1).",
	}, []string{"version", "revision", "branch", "build_date"})
	reg.MustRegister(details)
	if b.Version == "" {
		b.Version = "dev"
	}
	details.WithLabelValues(b.Version, b.Revision, b.Branch, b.Date).Set(1)

	return &Registry{reg: reg}
}

// Handler serves the registry. Collection errors are logged and the
// remaining metrics are still served; scrapes of the handler itself are
// counted in promhttp_metric_handler_requests_total.
func (r *Registry) Handler(log *slog.Logger) http.Handler {
	opts := promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
		Registry:      r.reg,
	}
	if log != nil {
		opts.ErrorLog = slog.NewLogLogger(log.Handler(), slog.LevelWarn)
	}
	return promhttp.InstrumentMetricHandler(r.reg, promhttp.HandlerFor(r.reg, opts))
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
