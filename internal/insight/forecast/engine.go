package forecast

import (
	"time"

	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/pkg/models"
)

// DefaultStep is the spacing between projected points.
const DefaultStep = 60 * time.Second

// MarginMethod names how Forecast.Margin is derived.
const MarginMethod = "rmse_over_sqrt_n"

// Forecast is the output of one projection.
type Forecast struct {
	Fit            *RegressionFit
	Margin         float64
	HorizonMinutes int
	Points         []models.ForecastPoint
}

// Engine projects AQI forward from a history window.
type Engine struct {
	table *aqi.Table
	step  time.Duration
}

// NewEngine creates an Engine. Projected values are clamped with table; a
// non-positive step falls back to DefaultStep.
func NewEngine(table *aqi.Table, step time.Duration) *Engine {
	if step <= 0 {
		step = DefaultStep
	}
	return &Engine{table: table, step: step}
}

// Step returns the configured spacing between points.
func (e *Engine) Step() time.Duration { return e.step }

// Steps returns how many points cover horizonMinutes, never fewer than one.
func (e *Engine) Steps(horizonMinutes int) int {
	n := int(float64(horizonMinutes) * 60 / e.step.Seconds())
	if n < 1 {
		return 1
	}
	return n
}

// Project fits the AQI series in history and extends it horizonMinutes past
// the last sample. history must be oldest-first; readings without an AQI
// value are skipped. It returns ErrInsufficientHistory or ErrDegenerateFit
// when no line can be fitted.
func (e *Engine) Project(history []models.Reading, horizonMinutes int) (*Forecast, error) {
	samples := SamplesFromReadings(history)
	fit, err := Fit(samples)
	if err != nil {
		return nil, err
	}

	margin := fit.Margin()
	last := samples[len(samples)-1].Time
	steps := e.Steps(horizonMinutes)

	points := make([]models.ForecastPoint, steps)
	for i := 0; i < steps; i++ {
		ts := last.Add(time.Duration(i+1) * e.step)
		points[i] = models.ForecastPoint{
			Timestamp:    ts,
			PredictedAQI: e.table.Clamp(fit.At(ts)),
			Margin:       margin,
		}
	}

	return &Forecast{
		Fit:            fit,
		Margin:         margin,
		HorizonMinutes: horizonMinutes,
		Points:         points,
	}, nil
}

// SamplesFromReadings extracts (time, AQI) pairs, dropping readings where
// AQI is absent.
func SamplesFromReadings(history []models.Reading) []Sample {
	samples := make([]Sample, 0, len(history))
	for _, r := range history {
		v, ok := r.Values.Get(models.SensorAQI)
		if !ok {
			continue
		}
		samples = append(samples, Sample{Time: r.Timestamp, Value: v})
	}
	return samples
}
