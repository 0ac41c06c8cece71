// Package metrics exposes Prometheus instrumentation for ingestion runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	documentsTotal *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	runsTotal      prometheus.Counter
)

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		documentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guidance_intake",
			Name:      "documents_total",
			Help:      "Documents processed, by country and outcome.",
		}, []string{"country", "outcome"})

		sourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guidance_intake",
			Name:      "source_failures_total",
			Help:      "Sources skipped because discovery or state loading failed.",
		}, []string{"country"})

		runsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "guidance_intake",
			Name:      "runs_total",
			Help:      "Ingestion runs started.",
		})
	})
}

// RecordDocument counts one processed document outcome.
func RecordDocument(country, outcome string) {
	if documentsTotal == nil {
		return
	}
	documentsTotal.WithLabelValues(country, outcome).Inc()
}

// RecordSourceFailure counts a source that was skipped entirely.
func RecordSourceFailure(country string) {
	if sourceFailures == nil {
		return
	}
	sourceFailures.WithLabelValues(country).Inc()
}

// RecordRun counts the start of an ingestion run.
func RecordRun() {
	if runsTotal == nil {
		return
	}
	runsTotal.Inc()
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
