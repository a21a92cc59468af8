package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dependencies probed by /healthz.
const (
	DepPostgres = "postgres"
	DepRedis    = "redis"
)

var (
	dependencyUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dependency",
		Name:      "up",
		Help:      "1 when the last health probe of the dependency succeeded.",
	}, []string{"dependency"})

	// Probes run under a 500ms deadline, so buckets stop there.
	dependencyPing = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "dependency",
		Name:      "ping_seconds",
		Help:      "Health probe latency per dependency.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5},
	}, []string{"dependency"})
)

// ObservePing records one health probe of dependency.
func ObservePing(dependency string, took time.Duration, err error) {
	dep := label(dependency, "unknown")
	dependencyPing.WithLabelValues(dep).Observe(took.Seconds())
	if err != nil {
		dependencyUp.WithLabelValues(dep).Set(0)
		return
	}
	dependencyUp.WithLabelValues(dep).Set(1)
}
