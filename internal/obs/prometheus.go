package obs

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromMetricsRecorder exports stage metrics through a Prometheus registry,
// for runs long enough to scrape. Counters cover rows entering, surviving
// and dropped per stage; durations land in a histogram labeled by outcome.
type PromMetricsRecorder struct {
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
	dropped  *prometheus.CounterVec
}

// NewPromMetricsRecorder registers the recorder's collectors with reg.
// Registering the same recorder twice on one registry panics, as usual for
// Prometheus collectors.
func NewPromMetricsRecorder(reg prometheus.Registerer) *PromMetricsRecorder {
	factory := promauto.With(reg)
	return &PromMetricsRecorder{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "edcohort",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of pipeline stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edcohort",
			Name:      "stage_rows_total",
			Help:      "Rows entering and surviving each stage.",
		}, []string{"stage", "direction"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edcohort",
			Name:      "stage_dropped_rows_total",
			Help:      "Rows dropped by each stage.",
		}, []string{"stage"}),
	}
}

// Observe records a stage outcome.
func (r *PromMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.duration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// ObserveAttrition records survivor counts for a filter stage.
func (r *PromMetricsRecorder) ObserveAttrition(_ context.Context, stage string, rowsIn, rowsOut int) {
	if stage == "" {
		return
	}
	r.rows.WithLabelValues(stage, "in").Add(float64(rowsIn))
	r.rows.WithLabelValues(stage, "out").Add(float64(rowsOut))
	if d := rowsIn - rowsOut; d > 0 {
		r.dropped.WithLabelValues(stage).Add(float64(d))
	}
}
