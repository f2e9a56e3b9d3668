package models

import (
	"encoding/json"
	"time"
)

// SensorKey identifies one derived measurement tracked by the monitor.
type SensorKey string

const (
	SensorAQI       SensorKey = "aqi"
	SensorPM25      SensorKey = "pm25"
	SensorPM10      SensorKey = "pm10"
	SensorTemp      SensorKey = "temp"
	SensorHumidity  SensorKey = "humidity"
	SensorToxic     SensorKey = "toxic"
	SensorFlammable SensorKey = "flammable"
	SensorSmoke     SensorKey = "smoke"
	SensorVOC       SensorKey = "voc"
)

// SensorKeys is the fixed, ordered set of sensor keys. Iteration order here
// is the order sensors appear in spike sets and alert messages.
var SensorKeys = []SensorKey{
	SensorAQI,
	SensorPM25,
	SensorPM10,
	SensorTemp,
	SensorHumidity,
	SensorToxic,
	SensorFlammable,
	SensorSmoke,
	SensorVOC,
}

// Valid reports whether k is one of the known sensor keys.
func (k SensorKey) Valid() bool {
	for _, known := range SensorKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Values maps sensor keys to readings. A missing key means the value is
// absent; zero is a real measurement.
type Values map[SensorKey]float64

// Get returns the value for key and whether it is present.
func (v Values) Get(key SensorKey) (float64, bool) {
	if v == nil {
		return 0, false
	}
	f, ok := v[key]
	return f, ok
}

// Ptr returns a pointer to the value for key, or nil when absent.
func (v Values) Ptr(key SensorKey) *float64 {
	f, ok := v.Get(key)
	if !ok {
		return nil
	}
	return &f
}

// Clone returns an independent copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, f := range v {
		out[k] = f
	}
	return out
}

// Reading is one immutable snapshot of sensor values at a point in time.
type Reading struct {
	Timestamp time.Time `json:"ts"`
	Values    Values    `json:"values"`
}

// SpikeSet is the set of sensors judged abnormal in one evaluation, kept in
// SensorKeys order.
type SpikeSet []SensorKey

// Has reports whether key is in the set.
func (s SpikeSet) Has(key SensorKey) bool {
	for _, k := range s {
		if k == key {
			return true
		}
	}
	return false
}

// Empty reports whether no sensor is spiking.
func (s SpikeSet) Empty() bool { return len(s) == 0 }

// Strings returns the set as plain strings.
func (s SpikeSet) Strings() []string {
	out := make([]string, len(s))
	for i, k := range s {
		out[i] = string(k)
	}
	return out
}

// Status is the human readable AQI category.
type Status string

const (
	StatusGood          Status = "Good"
	StatusModerate      Status = "Moderate"
	StatusSensitive     Status = "Unhealthy for sensitive groups"
	StatusUnhealthy     Status = "Unhealthy"
	StatusVeryUnhealthy Status = "Very Unhealthy"
	StatusHazardous     Status = "Hazardous"
)

// Metrics is the derived record produced from one raw sensor sample.
type Metrics struct {
	Timestamp       time.Time `json:"ts"`
	TemperatureC    *float64  `json:"temperature_c"`
	HumidityPercent *float64  `json:"humidity_percent"`
	PM25            *float64  `json:"pm2_5_ug_m3"`
	PM25Raw         *float64  `json:"pm2_5_ug_m3_raw"`
	PM10            *float64  `json:"pm10_ug_m3"`
	ToxicIndex      float64   `json:"toxic_index"`
	FlammableIndex  float64   `json:"flammable_index"`
	SmokeIndex      float64   `json:"smoke_index"`
	VOCIndex        float64   `json:"voc_index"`
	PM25AQI         float64   `json:"pm25_aqi"`
	PM10AQI         float64   `json:"pm10_aqi"`
	AQI             float64   `json:"aqi"`
	Status          Status    `json:"status"`
}

// Values flattens the metrics into the sensor key space used by history,
// spike detection and alert messages. Absent particulate or climate values
// stay absent.
func (m Metrics) Values() Values {
	v := Values{
		SensorAQI:       m.AQI,
		SensorToxic:     m.ToxicIndex,
		SensorFlammable: m.FlammableIndex,
		SensorSmoke:     m.SmokeIndex,
		SensorVOC:       m.VOCIndex,
	}
	if m.PM25 != nil {
		v[SensorPM25] = *m.PM25
	}
	if m.PM10 != nil {
		v[SensorPM10] = *m.PM10
	}
	if m.TemperatureC != nil {
		v[SensorTemp] = *m.TemperatureC
	}
	if m.HumidityPercent != nil {
		v[SensorHumidity] = *m.HumidityPercent
	}
	return v
}

// Reading converts the metrics into a history Reading.
func (m Metrics) Reading() Reading {
	return Reading{Timestamp: m.Timestamp, Values: m.Values()}
}

// ForecastPoint is one projected AQI value with its symmetric error band.
type ForecastPoint struct {
	Timestamp    time.Time `json:"-"`
	PredictedAQI float64   `json:"aqi"`
	Margin       float64   `json:"error"`
}

// MarshalJSON encodes the timestamp as unix seconds, matching the history API.
func (p ForecastPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TS     int64   `json:"ts"`
		AQI    float64 `json:"aqi"`
		Margin float64 `json:"error"`
	}{p.Timestamp.Unix(), p.PredictedAQI, p.Margin})
}

// UserSettings is one saved row of the user's preferences. The latest row
// is the current configuration.
type UserSettings struct {
	ID                     int64     `json:"-"`
	Email                  *string   `json:"email"`
	NotificationsEnabled   bool      `json:"notifications"`
	ForecastHorizonMinutes *int      `json:"forecast_duration"`
	RefreshRateSeconds     *int      `json:"refresh_rate"`
	SavedAt                time.Time `json:"-"`
}

// Recipient returns the configured email address, or "" when unset.
func (s *UserSettings) Recipient() string {
	if s == nil || s.Email == nil {
		return ""
	}
	return *s.Email
}
