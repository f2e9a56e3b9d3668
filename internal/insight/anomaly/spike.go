// Package anomaly decides which sensors are spiking in a reading.
package anomaly

import (
	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/pkg/models"
)

// DefaultRelativeFactor is how far above baseline a value must rise for the
// relative rule to fire.
const DefaultRelativeFactor = 1.4

// Rule names which check flagged a sensor.
type Rule string

const (
	RuleAbsolute Rule = "absolute"
	RuleRelative Rule = "relative"
)

// Finding is one spiking sensor with the evidence that flagged it.
type Finding struct {
	Key       models.SensorKey
	Rule      Rule
	Value     float64
	Threshold float64 // absolute level, or baseline*factor for the relative rule
	Baseline  float64 // zero for absolute findings
}

// Detector applies the absolute and relative spike rules from a shared table.
type Detector struct {
	table  *aqi.Table
	factor float64
}

// NewDetector creates a Detector. A factor <= 0 selects DefaultRelativeFactor.
func NewDetector(table *aqi.Table, factor float64) *Detector {
	if factor <= 0 {
		factor = DefaultRelativeFactor
	}
	return &Detector{table: table, factor: factor}
}

// Factor returns the relative factor in use.
func (d *Detector) Factor() float64 { return d.factor }

// Detect returns the spiking sensors in models.SensorKeys order. baseline may
// be nil, in which case only absolute thresholds apply.
func (d *Detector) Detect(current, baseline models.Values) models.SpikeSet {
	findings := d.Evaluate(current, baseline)
	if len(findings) == 0 {
		return nil
	}
	set := make(models.SpikeSet, len(findings))
	for i, f := range findings {
		set[i] = f.Key
	}
	return set
}

// Evaluate is Detect with the evidence for each finding.
//
// For every sensor with a current value, the absolute rule fires when the
// value is at or above the table threshold. Otherwise the relative rule fires
// when a positive baseline exists, the value is at least baseline*factor and
// the rise over baseline is at least the sensor's minimum delta.
func (d *Detector) Evaluate(current, baseline models.Values) []Finding {
	var out []Finding
	for _, key := range models.SensorKeys {
		v, ok := current.Get(key)
		if !ok {
			continue
		}

		if limit, ok := d.table.Threshold(key); ok && v >= limit {
			out = append(out, Finding{Key: key, Rule: RuleAbsolute, Value: v, Threshold: limit})
			continue
		}

		b, ok := baseline.Get(key)
		if !ok || b <= 0 {
			continue
		}
		minDelta := d.table.MinSpikeDelta[key]
		if v >= b*d.factor && v-b >= minDelta {
			out = append(out, Finding{Key: key, Rule: RuleRelative, Value: v, Threshold: b * d.factor, Baseline: b})
		}
	}
	return out
}
