package alert

import "github.com/prometheus/client_golang/prometheus"

var (
	alertCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airwatch_alert_cycles_total",
			Help: "Alert evaluation cycles by decision.",
		},
		[]string{"decision"},
	)
	alertDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airwatch_alert_dispatch_total",
			Help: "Alert dispatch attempts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(alertCyclesTotal)
	prometheus.MustRegister(alertDispatchTotal)
}
