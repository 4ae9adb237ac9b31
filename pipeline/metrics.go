package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------
// Prometheus Metrics
// ---------------------------------------------------------------------

var (
	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "spender_stage_duration_seconds",
		Help: "Pipeline stage latency distribution",
	}, []string{"stage"})
	rowsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spender_rows_processed_total",
		Help: "Rows written by completed runs",
	})
	cellsImputed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spender_cells_imputed_total",
		Help: "Cells filled or defaulted by the cleaning rules",
	}, []string{"column"})
)

func init() {
	prometheus.MustRegister(stageDuration, rowsProcessed, cellsImputed)
}
