package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for lead capture flows.
type LeadMetrics struct {
	submissionsTotal   *prometheus.CounterVec
	submissionLatency  *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
	exportsTotal       *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadradar",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Lead submissions by result code",
		}, []string{"result"}),
		submissionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadradar",
			Subsystem: "leads",
			Name:      "submission_duration_seconds",
			Help:      "Latency of lead validation and persistence",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadradar",
			Subsystem: "notify",
			Name:      "dispatch_total",
			Help:      "Lead notification dispatch outcomes",
		}, []string{"outcome"}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadradar",
			Subsystem: "leads",
			Name:      "exports_total",
			Help:      "CSV exports by scope",
		}, []string{"scope"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.submissionLatency, m.notificationsTotal, m.exportsTotal)
	return m
}

// ObserveSubmission records a submission result ("created" or an error code).
func (m *LeadMetrics) ObserveSubmission(result string, seconds float64) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(result).Inc()
	m.submissionLatency.WithLabelValues(result).Observe(seconds)
}

func (m *LeadMetrics) ObserveNotification(outcome string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *LeadMetrics) ObserveExport(perForm bool) {
	if m == nil {
		return
	}
	scope := "all"
	if perForm {
		scope = "form"
	}
	m.exportsTotal.WithLabelValues(scope).Inc()
}
