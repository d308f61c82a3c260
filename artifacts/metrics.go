package artifacts

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.vocdoni.io/guardians/apiclient"
	"go.vocdoni.io/guardians/metrics"
)

// Guardian fetch collectors
var (
	fetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardians",
		Subsystem: "fetch",
		Name:      "total",
		Help:      "Guardian retrievals by outcome (ok, server_error, transport_error, error)",
	}, []string{"outcome"})
	fetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "guardians",
		Subsystem: "fetch",
		Name:      "duration_seconds",
		Help:      "Duration of guardian retrievals",
		Buckets:   prometheus.DefBuckets,
	})
	staleResponses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "guardians",
		Subsystem: "fetch",
		Name:      "stale_total",
		Help:      "Guardian responses discarded because another retrieval superseded them",
	})
)

// RegisterMetrics registers the fetch collectors on the metrics agent.
func RegisterMetrics(ma *metrics.Agent) {
	if ma == nil {
		return
	}
	ma.Register(fetches)
	ma.Register(fetchLatency)
	ma.Register(staleResponses)
}

func observeFetch(d time.Duration, err error) {
	fetchLatency.Observe(d.Seconds())
	fetches.WithLabelValues(fetchOutcome(err)).Inc()
}

func fetchOutcome(err error) string {
	var serr *apiclient.ServerError
	var terr *apiclient.TransportError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &serr):
		return "server_error"
	case errors.As(err, &terr):
		return "transport_error"
	default:
		return "error"
	}
}
