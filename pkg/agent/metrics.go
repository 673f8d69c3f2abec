package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "agent",
			Name:      "steps_total",
			Help:      "Reasoning steps executed across all runs.",
		},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "agent",
			Name:      "runs_total",
			Help:      "Finished runs by outcome (answered, depth_exceeded).",
		},
		[]string{"outcome"},
	)

	parseSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "toolcall",
			Name:      "parse_skipped_total",
			Help:      "Tool calls found in model output but not dispatched.",
		},
		[]string{"reason"},
	)
)
