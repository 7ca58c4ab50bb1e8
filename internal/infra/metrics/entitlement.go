package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(panelCallDuration) }

var panelCallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "panel_call_duration_seconds",
		Help:    "Latency of VPN panel API calls by operation and success.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
	[]string{"op", "success"},
)

func ObservePanelCall(op string, start time.Time, err error) {
	success := "true"
	if err != nil {
		success = "false"
	}
	panelCallDuration.WithLabelValues(norm(op), success).Observe(time.Since(start).Seconds())
}
