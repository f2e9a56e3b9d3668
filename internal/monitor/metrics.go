package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	currentAQI = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "airwatch_current_aqi",
			Help: "AQI of the most recently ingested reading.",
		},
	)
	readingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airwatch_readings_total",
			Help: "Ingested readings by AQI status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(currentAQI)
	prometheus.MustRegister(readingsTotal)
}
