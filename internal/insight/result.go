package insight

import (
	"encoding/json"

	"github.com/HerbHall/airwatch/internal/insight/forecast"
	"github.com/HerbHall/airwatch/pkg/models"
)

// Kind tells the three forecast result shapes apart.
type Kind string

const (
	KindOK           Kind = "ok"
	KindInsufficient Kind = "insufficient_history"
	KindError        Kind = "error"
)

// ReasonNotEnoughHistory is the reason reported with KindInsufficient.
const ReasonNotEnoughHistory = "not_enough_history"

// Result is the outcome of one forecast query. Forecast is set only for
// KindOK and Err only for KindError.
type Result struct {
	Kind           Kind
	HorizonMinutes int
	HistoryCount   int
	Forecast       *forecast.Forecast
	Err            string
}

type okBody struct {
	OK             bool                   `json:"ok"`
	HorizonMinutes int                    `json:"horizon_minutes"`
	HistoryCount   int                    `json:"history_count"`
	ForecastCount  int                    `json:"forecast_count"`
	MAE            float64                `json:"mae"`
	RMSE           float64                `json:"rmse"`
	MarginError    float64                `json:"margin_error"`
	MarginMethod   string                 `json:"margin_method"`
	Forecast       []models.ForecastPoint `json:"forecast"`
}

type insufficientBody struct {
	OK           bool                   `json:"ok"`
	Reason       string                 `json:"reason"`
	HistoryCount int                    `json:"history_count"`
	Forecast     []models.ForecastPoint `json:"forecast"`
}

type errorBody struct {
	OK       bool                   `json:"ok"`
	Error    string                 `json:"error"`
	Forecast []models.ForecastPoint `json:"forecast"`
}

// MarshalJSON writes the wire shape for r.Kind.
func (r Result) MarshalJSON() ([]byte, error) {
	switch {
	case r.Kind == KindOK && r.Forecast != nil:
		f := r.Forecast
		return json.Marshal(okBody{
			OK:             true,
			HorizonMinutes: r.HorizonMinutes,
			HistoryCount:   r.HistoryCount,
			ForecastCount:  len(f.Points),
			MAE:            f.Fit.MAE,
			RMSE:           f.Fit.RMSE,
			MarginError:    f.Margin,
			MarginMethod:   forecast.MarginMethod,
			Forecast:       f.Points,
		})
	case r.Kind == KindInsufficient:
		return json.Marshal(insufficientBody{
			Reason:       ReasonNotEnoughHistory,
			HistoryCount: r.HistoryCount,
			Forecast:     []models.ForecastPoint{},
		})
	default:
		msg := r.Err
		if msg == "" {
			msg = "forecast unavailable"
		}
		return json.Marshal(errorBody{Error: msg, Forecast: []models.ForecastPoint{}})
	}
}
