package forecast

import (
	"errors"
	"math"
	"time"
)

// MinHistory is the smallest number of samples Fit will regress over.
const MinHistory = 3

var (
	// ErrInsufficientHistory is returned when fewer than MinHistory samples are available.
	ErrInsufficientHistory = errors.New("not enough history")
	// ErrDegenerateFit is returned when every sample shares one timestamp.
	ErrDegenerateFit = errors.New("degenerate regression: zero time variance")
)

// Sample is one (time, AQI) observation.
type Sample struct {
	Time  time.Time
	Value float64
}

// RegressionFit is the least-squares line through a sample set, with x in
// seconds relative to Origin.
type RegressionFit struct {
	Slope     float64   // AQI per second
	Intercept float64   // AQI at Origin
	MAE       float64   // Mean absolute in-sample residual
	RMSE      float64   // Root-mean-square in-sample residual
	N         int       // Samples used
	Origin    time.Time // Time of the first sample
}

// At evaluates the fitted line at t.
func (f *RegressionFit) At(t time.Time) float64 {
	return f.Intercept + f.Slope*t.Sub(f.Origin).Seconds()
}

// Margin is the symmetric error band, RMSE / sqrt(N).
func (f *RegressionFit) Margin() float64 {
	return Margin(f.RMSE, f.N)
}

// Margin returns rmse / sqrt(n). It shrinks as n grows for a fixed rmse.
func Margin(rmse float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return rmse / math.Sqrt(float64(n))
}

// Fit performs ordinary least squares of value against time. Times are
// re-centred on the first sample so large absolute timestamps do not lose
// precision. samples must be in ascending time order.
func Fit(samples []Sample) (*RegressionFit, error) {
	n := len(samples)
	if n < MinHistory {
		return nil, ErrInsufficientHistory
	}

	origin := samples[0].Time
	xs := SecondsSince(origin, samples)

	var sumX, sumY, sumXX, sumXY float64
	for i := 0; i < n; i++ {
		x, y := xs[i], samples[i].Value
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
	}

	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return nil, ErrDegenerateFit
	}

	slope := (nf*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / nf

	var absSum, sqSum float64
	for i := 0; i < n; i++ {
		r := samples[i].Value - (intercept + slope*xs[i])
		absSum += math.Abs(r)
		sqSum += r * r
	}

	return &RegressionFit{
		Slope:     slope,
		Intercept: intercept,
		MAE:       absSum / nf,
		RMSE:      math.Sqrt(sqSum / nf),
		N:         n,
		Origin:    origin,
	}, nil
}

// SecondsSince converts sample times to seconds relative to origin.
func SecondsSince(origin time.Time, samples []Sample) []float64 {
	if len(samples) == 0 {
		return nil
	}
	xs := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.Time.Sub(origin).Seconds()
	}
	return xs
}
