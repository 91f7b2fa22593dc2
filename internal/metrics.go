package internal

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics counts what a run of the tools did. Being batch jobs, they write
// the counters to a file for the node exporter's textfile collector rather
// than serving them.
type metrics struct {
	registry    *prometheus.Registry
	documents   *prometheus.CounterVec
	fileActions *prometheus.CounterVec
	matches     *prometheus.CounterVec
}

func NewMetrics() *metrics {
	registry := prometheus.NewRegistry()
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitops",
		Subsystem: "manifests",
		Name:      "classified_total",
		Help:      "Total number of manifests classified, by scope",
	}, []string{"scope"})
	registry.MustRegister(documents)
	fileActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitops",
		Subsystem: "files",
		Name:      "total",
		Help:      "Total number of files handled, by action",
	}, []string{"action"})
	registry.MustRegister(fileActions)
	matches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitops",
		Subsystem: "push_secret",
		Name:      "matches_total",
		Help:      "Total number of push secret matches considered, by outcome",
	}, []string{"outcome"})
	registry.MustRegister(matches)

	return &metrics{
		registry:    registry,
		documents:   documents,
		fileActions: fileActions,
		matches:     matches,
	}
}

// WriteTextfile writes the counters to path in the Prometheus text format.
// Nothing is written if path is empty.
func (m *metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
