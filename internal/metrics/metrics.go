// Package metrics exposes Prometheus collectors for the moderation service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "moderation"

// Metrics holds every collector the service reports.
type Metrics struct {
	admissions   *prometheus.CounterVec
	handouts     *prometheus.CounterVec
	verdicts     *prometheus.CounterVec
	opDuration   *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	events       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		admissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Videos submitted for moderation, by whether they were new.",
		}, []string{"result"}),
		handouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handouts_total",
			Help:      "Queue requests by moderators, by whether a video was handed out.",
		}, []string{"result"}),
		verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Verdict attempts by outcome.",
		}, []string{"outcome"}),
		opDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of core moderation operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_cache_lookups_total",
			Help:      "Video metadata cache lookups by result.",
		}, []string{"result"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Moderation events sent to the broker, by type and result.",
		}, []string{"type", "result"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveAdmission counts an admission; created is false for repeats.
func (m *Metrics) ObserveAdmission(created bool) {
	if m == nil {
		return
	}
	result := "existing"
	if created {
		result = "created"
	}
	m.admissions.WithLabelValues(result).Inc()
}

// ObserveHandout counts a queue request; assigned is false when the queue was empty.
func (m *Metrics) ObserveHandout(assigned bool) {
	if m == nil {
		return
	}
	result := "empty"
	if assigned {
		result = "assigned"
	}
	m.handouts.WithLabelValues(result).Inc()
}

// ObserveVerdict counts a verdict attempt. outcome is the resulting status
// on success, or a short error kind.
func (m *Metrics) ObserveVerdict(outcome string) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(outcome).Inc()
}

// ObserveOperation records how long a core operation took.
func (m *Metrics) ObserveOperation(operation string, started time.Time) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveCacheLookup counts a metadata cache hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveEvent counts a publish attempt.
func (m *Metrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.events.WithLabelValues(eventType, result).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(route, method, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
