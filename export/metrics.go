package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.vocdoni.io/guardians/metrics"
)

// Export collectors
var (
	exports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardians",
		Subsystem: "export",
		Name:      "total",
		Help:      "Manifests handed to a sink, by kind (field, guardian, all)",
	}, []string{"kind"})
	rejectedExports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardians",
		Subsystem: "export",
		Name:      "rejected_total",
		Help:      "Exports rejected because there was no data to export",
	}, []string{"kind"})
)

// RegisterMetrics registers the export collectors on the metrics agent.
func RegisterMetrics(ma *metrics.Agent) {
	if ma == nil {
		return
	}
	ma.Register(exports)
	ma.Register(rejectedExports)
}
