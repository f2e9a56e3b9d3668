package anomaly

import (
	"reflect"
	"testing"

	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/pkg/models"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	d := NewDetector(aqi.IndoorTable(), 0)

	tests := []struct {
		name     string
		current  models.Values
		baseline models.Values
		want     models.SpikeSet
	}{
		{
			name:    "pm25 over absolute threshold with no baseline",
			current: models.Values{models.SensorPM25: 40},
			want:    models.SpikeSet{models.SensorPM25},
		},
		{
			name:    "exactly at threshold counts",
			current: models.Values{models.SensorAQI: 150},
			want:    models.SpikeSet{models.SensorAQI},
		},
		{
			name:     "temp relative rise",
			current:  models.Values{models.SensorTemp: 29},
			baseline: models.Values{models.SensorTemp: 20},
			want:     models.SpikeSet{models.SensorTemp},
		},
		{
			name:     "ratio met but delta too small",
			current:  models.Values{models.SensorSmoke: 0.14},
			baseline: models.Values{models.SensorSmoke: 0.1},
			want:     nil,
		},
		{
			name:     "delta met but ratio too small",
			current:  models.Values{models.SensorAQI: 130},
			baseline: models.Values{models.SensorAQI: 100},
			want:     nil,
		},
		{
			name:     "zero baseline disables relative rule",
			current:  models.Values{models.SensorVOC: 120},
			baseline: models.Values{models.SensorVOC: 0},
			want:     nil,
		},
		{
			name:     "absent current value never flagged",
			current:  models.Values{},
			baseline: models.Values{models.SensorPM25: 5},
			want:     nil,
		},
		{
			name: "output follows sensor key order",
			current: models.Values{
				models.SensorVOC:      320,
				models.SensorHumidity: 80,
				models.SensorAQI:      170,
			},
			want: models.SpikeSet{models.SensorAQI, models.SensorHumidity, models.SensorVOC},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.current, tt.baseline)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_AbsoluteTakesPrecedence(t *testing.T) {
	t.Parallel()

	d := NewDetector(aqi.IndoorTable(), DefaultRelativeFactor)
	findings := d.Evaluate(
		models.Values{models.SensorPM25: 60},
		models.Values{models.SensorPM25: 10},
	)

	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].Rule != RuleAbsolute {
		t.Errorf("Rule = %q, want %q", findings[0].Rule, RuleAbsolute)
	}
	if findings[0].Threshold != 35 {
		t.Errorf("Threshold = %v, want 35", findings[0].Threshold)
	}
}

func TestEvaluate_RelativeEvidence(t *testing.T) {
	t.Parallel()

	d := NewDetector(aqi.IndoorTable(), 1.5)
	findings := d.Evaluate(
		models.Values{models.SensorPM10: 45},
		models.Values{models.SensorPM10: 20},
	)

	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	f := findings[0]
	if f.Rule != RuleRelative || f.Baseline != 20 || f.Threshold != 30 {
		t.Errorf("finding = %+v, want relative with baseline 20 and threshold 30", f)
	}
}

func TestDetect_ThresholdOverride(t *testing.T) {
	t.Parallel()

	table := aqi.IndoorTable().WithThresholds(map[models.SensorKey]float64{models.SensorPM25: 50})
	d := NewDetector(table, 0)

	if got := d.Detect(models.Values{models.SensorPM25: 40}, nil); len(got) != 0 {
		t.Errorf("Detect() = %v, want empty with raised threshold", got)
	}
}

func TestNewDetector_DefaultFactor(t *testing.T) {
	t.Parallel()

	if f := NewDetector(aqi.IndoorTable(), -1).Factor(); f != DefaultRelativeFactor {
		t.Errorf("Factor() = %v, want %v", f, DefaultRelativeFactor)
	}
}
