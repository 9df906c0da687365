// Package metrics records pipeline counters for Prometheus. Every method is
// safe to call on a nil *Recorder, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notam"

// Oracle request outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeBadResponse = "bad_response"
	OutcomeUnavailable = "unavailable"
)

// Recorder owns a private registry and the pipeline collectors
type Recorder struct {
	registry *prometheus.Registry

	pagesRetained  prometheus.Counter
	crops          prometheus.Counter
	stamps         prometheus.Counter
	unmatched      prometheus.Counter
	failures       *prometheus.CounterVec
	oracleRequests *prometheus.CounterVec
	oracleLatency  *prometheus.HistogramVec
}

// New creates a Recorder with the Go runtime and process collectors
// registered alongside the pipeline metrics
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		pagesRetained: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_retained_total",
			Help:      "Pages kept by crop operations",
		}),
		crops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crops_total",
			Help:      "Cropped documents written",
		}),
		stamps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stamps_total",
			Help:      "Classification tags stamped next to notice headers",
		}),
		unmatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmatched_identifiers_total",
			Help:      "Tagged identifiers with no header occurrence in the document",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_failures_total",
			Help:      "Failed pipeline invocations by operation and error kind",
		}, []string{"operation", "kind"}),
		oracleRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_requests_total",
			Help:      "Language model requests by operation and outcome",
		}, []string{"operation", "outcome"}),
		oracleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_latency_seconds",
			Help:      "Language model request latency",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~51s
		}, []string{"operation"}),
	}
}

// Registry returns the registry backing the recorder
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// CropWritten records a cropped document keeping pages pages
func (r *Recorder) CropWritten(pages int) {
	if r == nil {
		return
	}
	r.crops.Inc()
	r.pagesRetained.Add(float64(pages))
}

// StampsApplied records one stamping run
func (r *Recorder) StampsApplied(stamped, unmatched int) {
	if r == nil {
		return
	}
	r.stamps.Add(float64(stamped))
	r.unmatched.Add(float64(unmatched))
}

// PipelineFailed records a failed invocation
func (r *Recorder) PipelineFailed(operation, kind string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(operation, kind).Inc()
}

// OracleRequest records one language model call
func (r *Recorder) OracleRequest(operation, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.oracleRequests.WithLabelValues(operation, outcome).Inc()
	r.oracleLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}
