package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "straintrack_runs_total",
		Help: "Pipeline runs by terminal status.",
	}, []string{"status"})

	rowsLoadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "straintrack_rows_loaded_total",
		Help: "Fact rows loaded across all ingestion runs.",
	})

	rowsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "straintrack_rows_rejected_total",
		Help: "Rows rejected by validation across all ingestion runs.",
	})
)
