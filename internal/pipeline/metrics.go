package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts pipeline activity. All metrics are labeled by profile name
// so one process can serve several document families.
type Metrics struct {
	documents  *prometheus.CounterVec
	rows       *prometheus.CounterVec
	mismatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the pipeline metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		documents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docpipe_documents_total",
			Help: "Documents processed, by profile and outcome.",
		}, []string{"profile", "status"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docpipe_rows_total",
			Help: "Line-item rows seen, by profile and disposition.",
		}, []string{"profile", "disposition"}),
		mismatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docpipe_reconciliation_mismatches_total",
			Help: "Documents whose computed total disagreed with the stated total.",
		}, []string{"profile"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docpipe_document_duration_seconds",
			Help:    "Wall time of one document's pipeline run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"profile"}),
	}
}

func (m *Metrics) document(profileName, status string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(profileName, status).Inc()
}

func (m *Metrics) countRows(profileName, disposition string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rows.WithLabelValues(profileName, disposition).Add(float64(n))
}

func (m *Metrics) mismatch(profileName string) {
	if m == nil {
		return
	}
	m.mismatches.WithLabelValues(profileName).Inc()
}

func (m *Metrics) observeDuration(profileName string, seconds float64) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(profileName).Observe(seconds)
}
