// Package trend gives a coarse AQI direction for alert phrasing. It is not a
// forecast; see package forecast for the fitted projection.
package trend

import (
	"time"

	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/pkg/models"
)

// Direction is the sign of the slope as it is worded in messages.
type Direction string

const (
	Rising  Direction = "up"
	Falling Direction = "down"
	Stable  Direction = "stable"
)

// Summary is the two-point AQI trend over a window.
type Summary struct {
	SlopePerMinute float64 `json:"slope"`
	CurrentAQI     float64 `json:"current_aqi"`
	PredictedPeak  float64 `json:"predicted_peak"`
}

// Direction classifies the slope.
func (s Summary) Direction() Direction {
	switch {
	case s.SlopePerMinute > 0:
		return Rising
	case s.SlopePerMinute < 0:
		return Falling
	default:
		return Stable
	}
}

// Summarize returns the slope between the first and last readings that carry
// an AQI value, projected aheadMinutes past the last one. The peak is clamped
// with table. ok is false when fewer than two readings exist or the two
// anchors are not strictly ordered in time.
func Summarize(table *aqi.Table, history []models.Reading, aheadMinutes int) (Summary, bool) {
	if len(history) < 2 {
		return Summary{}, false
	}

	var (
		first, last        float64
		firstAt, lastAt    time.Time
		haveFirst, haveAny bool
	)
	for _, r := range history {
		v, ok := r.Values.Get(models.SensorAQI)
		if !ok {
			continue
		}
		if !haveFirst {
			first, firstAt, haveFirst = v, r.Timestamp, true
		}
		last, lastAt, haveAny = v, r.Timestamp, true
	}
	if !haveAny {
		return Summary{}, false
	}

	minutes := lastAt.Sub(firstAt).Minutes()
	if minutes <= 0 {
		return Summary{}, false
	}

	slope := (last - first) / minutes
	return Summary{
		SlopePerMinute: slope,
		CurrentAQI:     last,
		PredictedPeak:  table.Clamp(last + slope*float64(aheadMinutes)),
	}, true
}
