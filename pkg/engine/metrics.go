package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// metrics is a container of metrics for an engine.
type metrics struct {
	// registry to collect metrics as a unit.
	reg *prometheus.Registry

	callsTotal  *prometheus.CounterVec
	rowsTotal   *prometheus.CounterVec
	callSeconds *prometheus.HistogramVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()

	return &metrics{
		reg: reg,

		callsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "arraykernels_calls_total",
			Help: "Total number of kernel calls by function and status",
		}, []string{"function", "status"}),
		rowsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "arraykernels_rows_total",
			Help: "Total number of rows produced by successful kernel calls",
		}, []string{"function"}),

		callSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "arraykernels_call_duration_seconds",
			Help: "Number of seconds a kernel call took, including failed calls",

			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: time.Hour,
		}, []string{"function"}),
	}
}

// Register registers metrics to report to reg.
func (m *metrics) Register(reg prometheus.Registerer) error { return reg.Register(m.reg) }

// Unregister unregisters metrics from the provided Registerer.
func (m *metrics) Unregister(reg prometheus.Registerer) { reg.Unregister(m.reg) }
