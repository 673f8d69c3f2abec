package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Name:      "tool_call_duration_seconds",
			Help:      "Wall time of a tool invocation including session setup.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)
