// Package aqi derives air quality metrics from raw sensor values. The Table
// type is the single owned source of breakpoints, gas index levels and spike
// thresholds; the same *Table is passed to the computer, the spike detector
// and the forecast engine.
package aqi

import (
	"fmt"

	"github.com/HerbHall/airwatch/pkg/models"
)

// Profile names accepted by TableForProfile.
const (
	ProfileIndoor  = "indoor"
	ProfileOutdoor = "outdoor"
)

// Breakpoint maps a concentration band onto an index band.
type Breakpoint struct {
	ConcLow   float64
	ConcHigh  float64
	IndexLow  float64
	IndexHigh float64
}

// GasLevel is the voltage band over which a gas index rises from 0 to MaxAQI.
type GasLevel struct {
	Good float64
	Bad  float64
}

// StatusBand labels every AQI up to and including Max.
type StatusBand struct {
	Max    float64
	Status models.Status
}

// Table holds every threshold the pipeline uses.
type Table struct {
	Profile string

	MinAQI float64
	MaxAQI float64

	// PMCalibration scales the raw dust sensor concentration into PM2.5.
	PMCalibration float64
	// PM10Ratio approximates PM10 from calibrated PM2.5.
	PM10Ratio float64

	PM25 []Breakpoint
	PM10 []Breakpoint

	VOC       GasLevel
	Toxic     GasLevel
	Smoke     GasLevel
	Flammable GasLevel

	Status []StatusBand

	// SpikeThresholds are absolute levels at or above which a sensor spikes.
	SpikeThresholds map[models.SensorKey]float64
	// MinSpikeDelta is the smallest absolute rise over baseline that the
	// relative spike rule accepts.
	MinSpikeDelta map[models.SensorKey]float64
}

// Clamp bounds an AQI-like value to [MinAQI, MaxAQI].
func (t *Table) Clamp(v float64) float64 {
	if v < t.MinAQI {
		return t.MinAQI
	}
	if v > t.MaxAQI {
		return t.MaxAQI
	}
	return v
}

// Threshold returns the absolute spike threshold for key.
func (t *Table) Threshold(key models.SensorKey) (float64, bool) {
	v, ok := t.SpikeThresholds[key]
	return v, ok
}

// WithThresholds returns a copy of t whose absolute spike thresholds are
// overridden by overrides. Keys not in overrides keep their table value.
func (t *Table) WithThresholds(overrides map[models.SensorKey]float64) *Table {
	cp := *t
	cp.SpikeThresholds = make(map[models.SensorKey]float64, len(t.SpikeThresholds)+len(overrides))
	for k, v := range t.SpikeThresholds {
		cp.SpikeThresholds[k] = v
	}
	for k, v := range overrides {
		cp.SpikeThresholds[k] = v
	}
	return &cp
}

// TableForProfile returns the table for a named profile. An empty name
// selects the indoor profile.
func TableForProfile(name string) (*Table, error) {
	switch name {
	case "", ProfileIndoor:
		return IndoorTable(), nil
	case ProfileOutdoor:
		return OutdoorTable(), nil
	default:
		return nil, fmt.Errorf("unknown aqi profile %q: must be %q or %q", name, ProfileIndoor, ProfileOutdoor)
	}
}

// IndoorTable uses the widened particulate bands tuned for the indoor dust
// sensor. This is the default profile.
func IndoorTable() *Table {
	indoorPM := []Breakpoint{
		{0.0, 24.0, 0, 50},
		{24.1, 70.8, 51, 100},
		{70.9, 110.8, 101, 150},
		{110.9, 300.8, 151, 200},
		{300.9, 500.8, 201, 300},
		{500.9, 1000.8, 301, 500},
	}
	t := baseTable(ProfileIndoor)
	t.PM25 = indoorPM
	t.PM10 = append([]Breakpoint(nil), indoorPM...)
	return t
}

// OutdoorTable uses the US EPA particulate breakpoints.
func OutdoorTable() *Table {
	t := baseTable(ProfileOutdoor)
	t.PM25 = []Breakpoint{
		{0.0, 12.0, 0, 50},
		{12.1, 35.4, 51, 100},
		{35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200},
		{150.5, 250.4, 201, 300},
		{250.5, 500.4, 301, 500},
	}
	t.PM10 = []Breakpoint{
		{0.0, 54.0, 0, 50},
		{55.0, 154.0, 51, 100},
		{155.0, 254.0, 101, 150},
		{255.0, 354.0, 151, 200},
		{355.0, 424.0, 201, 300},
		{425.0, 604.0, 301, 500},
	}
	return t
}

func baseTable(profile string) *Table {
	return &Table{
		Profile:       profile,
		MinAQI:        0,
		MaxAQI:        500,
		PMCalibration: 0.5,
		PM10Ratio:     1.2,
		VOC:           GasLevel{Good: 0.3, Bad: 2.5},
		Toxic:         GasLevel{Good: 0.6, Bad: 3.0},
		Smoke:         GasLevel{Good: 0.3, Bad: 2.5},
		Flammable:     GasLevel{Good: 0.5, Bad: 3.0},
		Status: []StatusBand{
			{50, models.StatusGood},
			{100, models.StatusModerate},
			{150, models.StatusSensitive},
			{200, models.StatusUnhealthy},
			{300, models.StatusVeryUnhealthy},
		},
		SpikeThresholds: map[models.SensorKey]float64{
			models.SensorAQI:       150,
			models.SensorPM25:      35,
			models.SensorPM10:      50,
			models.SensorTemp:      32,
			models.SensorHumidity:  75,
			models.SensorToxic:     1.0,
			models.SensorFlammable: 1.0,
			models.SensorSmoke:     1.0,
			models.SensorVOC:       300,
		},
		MinSpikeDelta: map[models.SensorKey]float64{
			models.SensorAQI:       25,
			models.SensorPM25:      10,
			models.SensorPM10:      15,
			models.SensorTemp:      2,
			models.SensorHumidity:  5,
			models.SensorToxic:     0.2,
			models.SensorFlammable: 0.2,
			models.SensorSmoke:     0.2,
			models.SensorVOC:       50,
		},
	}
}
