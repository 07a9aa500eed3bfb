package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coursevault"

// Metrics records the domain and transport counters exposed on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requestDuration   *prometheus.HistogramVec
	paymentsSettled   *prometheus.CounterVec
	entitlements      *prometheus.CounterVec
	watchEvents       prometheus.Counter
	coursesCompleted  prometheus.Counter
	certificates      prometheus.Counter
	certificateChecks *prometheus.CounterVec
	outboxDeliveries  *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
	jobRuns           *prometheus.CounterVec
}

// New registers the metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		paymentsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_settled_total",
			Help:      "Payments moved out of pending, by outcome.",
		}, []string{"outcome"}),
		entitlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entitlements_granted_total",
			Help:      "Course entitlements newly granted, by source.",
		}, []string{"source"}),
		watchEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "Recorded watch progress events.",
		}),
		coursesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "courses_completed_total",
			Help:      "Progress records that reached completion.",
		}),
		certificates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "certificates_issued_total",
			Help:      "Certificates minted.",
		}),
		certificateChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "certificate_verifications_total",
			Help:      "Public certificate verifications, by result.",
		}, []string{"valid"}),
		outboxDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_deliveries_total",
			Help:      "Outbox events handled by the publisher.",
		}, []string{"event_type", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cron_job_duration_seconds",
			Help:      "Duration of scheduled jobs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cron_job_runs_total",
			Help:      "Scheduled job runs, by result.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(
		m.requestDuration,
		m.paymentsSettled,
		m.entitlements,
		m.watchEvents,
		m.coursesCompleted,
		m.certificates,
		m.certificateChecks,
		m.outboxDeliveries,
		m.jobDuration,
		m.jobRuns,
	)
	return m
}

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves a specific gatherer, used when the API owns its registry.
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

func (m *Metrics) PaymentSettled(outcome string) {
	if m == nil || m.paymentsSettled == nil {
		return
	}
	m.paymentsSettled.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) EntitlementsGranted(source string, count int) {
	if m == nil || m.entitlements == nil || count <= 0 {
		return
	}
	m.entitlements.WithLabelValues(normalizeLabel(source)).Add(float64(count))
}

func (m *Metrics) WatchRecorded() {
	if m == nil || m.watchEvents == nil {
		return
	}
	m.watchEvents.Inc()
}

func (m *Metrics) CourseCompleted() {
	if m == nil || m.coursesCompleted == nil {
		return
	}
	m.coursesCompleted.Inc()
}

func (m *Metrics) CertificateIssued() {
	if m == nil || m.certificates == nil {
		return
	}
	m.certificates.Inc()
}

func (m *Metrics) CertificateVerified(valid bool) {
	if m == nil || m.certificateChecks == nil {
		return
	}
	m.certificateChecks.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

func (m *Metrics) OutboxDelivery(eventType, result string) {
	if m == nil || m.outboxDeliveries == nil {
		return
	}
	m.outboxDeliveries.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// JobRun records one scheduled job execution.
func (m *Metrics) JobRun(job string, duration time.Duration, err error) {
	if m == nil || m.jobDuration == nil || m.jobRuns == nil {
		return
	}
	label := normalizeLabel(job)
	m.jobDuration.WithLabelValues(label).Observe(duration.Seconds())
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.jobRuns.WithLabelValues(label, result).Inc()
}
