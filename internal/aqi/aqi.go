package aqi

import (
	"math"
	"time"

	"github.com/HerbHall/airwatch/pkg/models"
)

// RawSample is one set of physical sensor readings. Nil fields are sensors
// that did not report.
type RawSample struct {
	Timestamp         time.Time `json:"ts"`
	TemperatureC      *float64  `json:"temperature_c"`
	HumidityPercent   *float64  `json:"humidity_percent"`
	ConcentrationUgM3 *float64  `json:"concentration_ug_m3"` // dust sensor PM2.5 approximation
	MQ2Voltage        *float64  `json:"mq2_voltage"`         // smoke / flammable gas
	MQ135Voltage      *float64  `json:"mq135_voltage"`       // VOC / toxic gas
}

// Computer turns raw samples into derived metrics using a shared Table.
type Computer struct {
	table *Table
}

// NewComputer creates a Computer bound to table.
func NewComputer(table *Table) *Computer {
	return &Computer{table: table}
}

// Table returns the table the computer uses.
func (c *Computer) Table() *Table {
	return c.table
}

// Compute derives the metrics record for s. It has no side effects.
func (c *Computer) Compute(s RawSample) models.Metrics {
	t := c.table
	m := models.Metrics{
		Timestamp:       s.Timestamp,
		TemperatureC:    s.TemperatureC,
		HumidityPercent: s.HumidityPercent,
		PM25Raw:         s.ConcentrationUgM3,
	}

	if s.ConcentrationUgM3 != nil {
		pm25 := *s.ConcentrationUgM3 * t.PMCalibration
		pm10 := pm25 * t.PM10Ratio
		m.PM25 = &pm25
		m.PM10 = &pm10
	}

	mq2 := valueOrZero(s.MQ2Voltage)
	mq135 := valueOrZero(s.MQ135Voltage)
	m.VOCIndex = t.scaledIndex(mq135, t.VOC)
	m.ToxicIndex = t.scaledIndex(mq135, t.Toxic)
	m.SmokeIndex = t.scaledIndex(mq2, t.Smoke)
	m.FlammableIndex = t.scaledIndex(mq2, t.Flammable)

	m.PM25AQI = t.fromBreakpoints(valueOrZero(m.PM25), t.PM25)
	m.PM10AQI = t.fromBreakpoints(valueOrZero(m.PM10), t.PM10)

	m.AQI = t.Clamp(math.Max(m.PM25AQI, m.PM10AQI))
	m.Status = t.StatusFor(m.AQI)
	return m
}

// StatusFor returns the category label for an AQI value.
func (t *Table) StatusFor(aqi float64) models.Status {
	for _, band := range t.Status {
		if aqi <= band.Max {
			return band.Status
		}
	}
	return models.StatusHazardous
}

// scaledIndex maps a voltage linearly from [Good, Bad] onto [MinAQI, MaxAQI].
func (t *Table) scaledIndex(v float64, level GasLevel) float64 {
	if v <= level.Good {
		return t.MinAQI
	}
	if v >= level.Bad {
		return t.MaxAQI
	}
	return t.MaxAQI * (v - level.Good) / (level.Bad - level.Good)
}

// fromBreakpoints interpolates a concentration within its band. A value in
// the gap between two bands is assigned to the upper band's floor, and a
// value beyond the last band maps to MaxAQI.
func (t *Table) fromBreakpoints(v float64, bps []Breakpoint) float64 {
	for _, bp := range bps {
		if v > bp.ConcHigh {
			continue
		}
		if v <= bp.ConcLow {
			return bp.IndexLow
		}
		return bp.IndexLow + (bp.IndexHigh-bp.IndexLow)*(v-bp.ConcLow)/(bp.ConcHigh-bp.ConcLow)
	}
	return t.MaxAQI
}

func valueOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
