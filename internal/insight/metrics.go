package insight

import "github.com/prometheus/client_golang/prometheus"

var (
	forecastQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airwatch_forecast_queries_total",
			Help: "Forecast queries by result kind.",
		},
		[]string{"kind"},
	)
	forecastMargin = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "airwatch_forecast_margin",
			Help: "Error margin of the most recent successful forecast.",
		},
	)
	forecastRMSE = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "airwatch_forecast_rmse",
			Help: "In-sample RMSE of the most recent successful forecast.",
		},
	)
)

func init() {
	prometheus.MustRegister(forecastQueriesTotal)
	prometheus.MustRegister(forecastMargin)
	prometheus.MustRegister(forecastRMSE)
}
