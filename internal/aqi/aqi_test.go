package aqi

import (
	"math"
	"testing"
	"time"

	"github.com/HerbHall/airwatch/pkg/models"
)

func ptr(v float64) *float64 { return &v }

func TestCompute_ParticulateAQI(t *testing.T) {
	t.Parallel()

	c := NewComputer(IndoorTable())
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Raw 40 µg/m3 -> calibrated PM2.5 20 -> indoor band 0-24 -> AQI 41.67.
	// PM10 = 24 -> top of the first band -> AQI 50.
	m := c.Compute(RawSample{Timestamp: ts, ConcentrationUgM3: ptr(40)})

	if m.PM25 == nil || math.Abs(*m.PM25-20) > 1e-9 {
		t.Fatalf("PM25 = %v, want 20", m.PM25)
	}
	if m.PM10 == nil || math.Abs(*m.PM10-24) > 1e-9 {
		t.Fatalf("PM10 = %v, want 24", m.PM10)
	}
	if math.Abs(m.PM25AQI-50.0*20/24) > 1e-9 {
		t.Errorf("PM25AQI = %v, want %v", m.PM25AQI, 50.0*20/24)
	}
	if math.Abs(m.PM10AQI-50) > 1e-9 {
		t.Errorf("PM10AQI = %v, want 50", m.PM10AQI)
	}
	if m.AQI != m.PM10AQI {
		t.Errorf("AQI = %v, want max of sub-indices %v", m.AQI, m.PM10AQI)
	}
	if m.Status != models.StatusGood {
		t.Errorf("Status = %q, want %q", m.Status, models.StatusGood)
	}
	if !m.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", m.Timestamp, ts)
	}
}

func TestCompute_MissingParticulate(t *testing.T) {
	t.Parallel()

	c := NewComputer(IndoorTable())
	m := c.Compute(RawSample{TemperatureC: ptr(21), HumidityPercent: ptr(40)})

	if m.PM25 != nil || m.PM10 != nil {
		t.Fatalf("expected absent particulate values, got pm25=%v pm10=%v", m.PM25, m.PM10)
	}
	if m.AQI != 0 {
		t.Errorf("AQI = %v, want 0", m.AQI)
	}

	v := m.Values()
	if _, ok := v.Get(models.SensorPM25); ok {
		t.Error("pm25 should be absent from Values()")
	}
	if got, ok := v.Get(models.SensorTemp); !ok || got != 21 {
		t.Errorf("temp = %v (present=%v), want 21", got, ok)
	}
}

func TestCompute_AboveLastBreakpointClampsTo500(t *testing.T) {
	t.Parallel()

	c := NewComputer(IndoorTable())
	m := c.Compute(RawSample{ConcentrationUgM3: ptr(5000)})

	if m.AQI != 500 {
		t.Errorf("AQI = %v, want 500", m.AQI)
	}
	if m.Status != models.StatusHazardous {
		t.Errorf("Status = %q, want %q", m.Status, models.StatusHazardous)
	}
}

func TestCompute_GasIndices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		mq2, mq135    float64
		wantSmoke     float64
		wantFlammable float64
		wantVOC       float64
		wantToxic     float64
	}{
		{"below good", 0.1, 0.2, 0, 0, 0, 0},
		{"at bad", 3.0, 3.0, 500, 500, 500, 500},
		{"midrange", 1.4, 1.4, 250, 500.0 * 0.9 / 2.5, 250, 500.0 * 0.8 / 2.4},
	}

	c := NewComputer(IndoorTable())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := c.Compute(RawSample{MQ2Voltage: ptr(tt.mq2), MQ135Voltage: ptr(tt.mq135)})
			checks := []struct {
				field     string
				got, want float64
			}{
				{"smoke", m.SmokeIndex, tt.wantSmoke},
				{"flammable", m.FlammableIndex, tt.wantFlammable},
				{"voc", m.VOCIndex, tt.wantVOC},
				{"toxic", m.ToxicIndex, tt.wantToxic},
			}
			for _, ck := range checks {
				if math.Abs(ck.got-ck.want) > 1e-6 {
					t.Errorf("%s = %v, want %v", ck.field, ck.got, ck.want)
				}
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	table := IndoorTable()
	tests := []struct {
		aqi  float64
		want models.Status
	}{
		{0, models.StatusGood},
		{50, models.StatusGood},
		{75, models.StatusModerate},
		{150, models.StatusSensitive},
		{151, models.StatusUnhealthy},
		{250, models.StatusVeryUnhealthy},
		{301, models.StatusHazardous},
	}
	for _, tt := range tests {
		if got := table.StatusFor(tt.aqi); got != tt.want {
			t.Errorf("StatusFor(%v) = %q, want %q", tt.aqi, got, tt.want)
		}
	}
}

func TestOutdoorTable_GapBetweenBands(t *testing.T) {
	t.Parallel()

	table := OutdoorTable()
	// 12.05 sits between the 0-12.0 and 12.1-35.4 bands.
	got := table.fromBreakpoints(12.05, table.PM25)
	if got != 51 {
		t.Errorf("fromBreakpoints(12.05) = %v, want 51", got)
	}
}

func TestTableForProfile(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", ProfileIndoor, ProfileOutdoor} {
		table, err := TableForProfile(name)
		if err != nil {
			t.Fatalf("TableForProfile(%q): %v", name, err)
		}
		if table.MaxAQI != 500 {
			t.Errorf("MaxAQI = %v, want 500", table.MaxAQI)
		}
	}
	if _, err := TableForProfile("lunar"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestWithThresholds_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	base := IndoorTable()
	over := base.WithThresholds(map[models.SensorKey]float64{models.SensorPM25: 20})

	if v, _ := over.Threshold(models.SensorPM25); v != 20 {
		t.Errorf("override pm25 = %v, want 20", v)
	}
	if v, _ := base.Threshold(models.SensorPM25); v != 35 {
		t.Errorf("base pm25 = %v, want 35", v)
	}
	if v, _ := over.Threshold(models.SensorVOC); v != 300 {
		t.Errorf("override voc = %v, want 300", v)
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	table := IndoorTable()
	for _, tt := range []struct{ in, want float64 }{{-4, 0}, {0, 0}, {250, 250}, {500, 500}, {812, 500}} {
		if got := table.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
