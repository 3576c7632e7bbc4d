package product

import "github.com/prometheus/client_golang/prometheus"

const (
	eventApprove = "approve"
	eventReject  = "reject"
	eventRerate  = "eco_rating"
)

var moderationTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "eco_haat_moderation_transitions_total",
		Help: "Moderation attempts by event and outcome",
	},
	[]string{"event", "outcome"},
)

func init() { prometheus.MustRegister(moderationTotal) }

func observe(event string, err error) {
	moderationTotal.WithLabelValues(event, outcome(err)).Inc()
}
