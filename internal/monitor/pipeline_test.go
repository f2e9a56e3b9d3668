package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/airwatch/internal/alert"
	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/internal/event"
	"github.com/HerbHall/airwatch/internal/history"
	"github.com/HerbHall/airwatch/internal/store"
	"github.com/HerbHall/airwatch/internal/testutil"
	"github.com/HerbHall/airwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type captureEvaluator struct {
	windows [][]models.Reading
}

func (c *captureEvaluator) Evaluate(_ context.Context, h []models.Reading) alert.Outcome {
	c.windows = append(c.windows, h)
	return alert.Outcome{Decision: alert.DecisionNoSpike}
}

type countingDispatcher struct {
	mu sync.Mutex
	n  int
}

func (d *countingDispatcher) Send(context.Context, alert.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.n++
	return nil
}

type staticSettings struct{ s *models.UserSettings }

func (s staticSettings) Latest(context.Context) (*models.UserSettings, error) { return s.s, nil }

func ptr(v float64) *float64 { return &v }

func newHistory(t *testing.T) *history.Store {
	t.Helper()
	db := testutil.OpenStore(t, map[string][]store.Migration{"history": history.Migrations()})
	hs := history.NewStore(db.DB())
	hs.SetClock(func() time.Time { return testutil.Epoch.Add(time.Hour) })
	return hs
}

func TestIngest_StoresAndEvaluatesWindow(t *testing.T) {
	hs := newHistory(t)
	ev := &captureEvaluator{}
	bus := event.NewBus(zap.NewNop())

	var mu sync.Mutex
	var published []models.Metrics
	done := make(chan struct{}, 4)
	bus.Subscribe(event.TopicReadingRecorded, func(_ context.Context, e event.Event) {
		mu.Lock()
		published = append(published, e.Payload.(models.Metrics))
		mu.Unlock()
		done <- struct{}{}
	})

	p := NewPipeline(alert.DefaultConfig(), aqi.NewComputer(aqi.IndoorTable()), hs, ev, bus, zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.Ingest(ctx, aqi.RawSample{
			Timestamp:         testutil.Epoch.Add(time.Hour - time.Duration(3-i)*time.Minute),
			ConcentrationUgM3: ptr(20 + float64(i)),
		})
		require.NoError(t, err)
	}

	require.Len(t, ev.windows, 3)
	assert.Len(t, ev.windows[0], 1)
	assert.Len(t, ev.windows[2], 3)
	last := ev.windows[2][2]
	v, ok := last.Values.Get(models.SensorPM25)
	require.True(t, ok)
	assert.InDelta(t, 11.0, v, 1e-9)

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("reading.recorded not published")
		}
	}
	mu.Lock()
	assert.Len(t, published, 3)
	mu.Unlock()

	n, err := hs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIngest_BackdatedSampleIsCurrent(t *testing.T) {
	hs := newHistory(t)
	ev := &captureEvaluator{}
	p := NewPipeline(alert.DefaultConfig(), aqi.NewComputer(aqi.IndoorTable()), hs, ev, nil, zap.NewNop())
	ctx := context.Background()
	now := testutil.Epoch.Add(time.Hour)

	_, err := p.Ingest(ctx, aqi.RawSample{Timestamp: now.Add(-time.Minute), ConcentrationUgM3: ptr(10)})
	require.NoError(t, err)
	res, err := p.Ingest(ctx, aqi.RawSample{Timestamp: now.Add(-2 * time.Minute), ConcentrationUgM3: ptr(400)})
	require.NoError(t, err)

	require.Len(t, ev.windows, 2)
	window := ev.windows[1]
	require.Len(t, window, 2)
	got, ok := window[len(window)-1].Values.Get(models.SensorAQI)
	require.True(t, ok)
	assert.InDelta(t, res.Metrics.AQI, got, 1e-9, "evaluated current reading must be the ingested one")
	assert.Greater(t, got, 150.0)

	// Outside the alert window entirely.
	res, err = p.Ingest(ctx, aqi.RawSample{Timestamp: now.Add(-6 * time.Hour), ConcentrationUgM3: ptr(300)})
	require.NoError(t, err)
	window = ev.windows[2]
	got, _ = window[len(window)-1].Values.Get(models.SensorAQI)
	assert.InDelta(t, res.Metrics.AQI, got, 1e-9)
}

func TestIngest_RowCapLeavesRoomForCurrent(t *testing.T) {
	hs := newHistory(t)
	ev := &captureEvaluator{}
	cfg := alert.DefaultConfig()
	cfg.HistoryMaxRows = 3
	p := NewPipeline(cfg, aqi.NewComputer(aqi.IndoorTable()), hs, ev, nil, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := p.Ingest(ctx, aqi.RawSample{
			Timestamp:         testutil.Epoch.Add(time.Hour - time.Duration(5-i)*time.Minute),
			ConcentrationUgM3: ptr(20),
		})
		require.NoError(t, err)
	}
	assert.Len(t, ev.windows[4], 3)
}

func TestIngest_StampsMissingTimestamp(t *testing.T) {
	hs := newHistory(t)
	p := NewPipeline(alert.DefaultConfig(), aqi.NewComputer(aqi.IndoorTable()), hs, &captureEvaluator{}, nil, zap.NewNop())
	p.SetClock(func() time.Time { return testutil.Epoch })

	res, err := p.Ingest(context.Background(), aqi.RawSample{})
	require.NoError(t, err)
	assert.True(t, res.Metrics.Timestamp.Equal(testutil.Epoch))
}

type brokenRecorder struct{ *history.Store }

func (brokenRecorder) Append(context.Context, *models.Metrics) error {
	return errors.New("database is locked")
}

func TestIngest_StoreFailure(t *testing.T) {
	ev := &captureEvaluator{}
	p := NewPipeline(alert.DefaultConfig(), aqi.NewComputer(aqi.IndoorTable()), brokenRecorder{newHistory(t)}, ev, nil, zap.NewNop())

	_, err := p.Ingest(context.Background(), aqi.RawSample{Timestamp: testutil.Epoch})
	require.Error(t, err)
	assert.Empty(t, ev.windows, "no alert cycle should run when the reading was not stored")
}

func TestIngest_SmokyRoomAlertsOnce(t *testing.T) {
	hs := newHistory(t)
	dispatcher := &countingDispatcher{}
	email := "me@example.com"
	horizon := 30

	orch := alert.NewOrchestrator(alert.DefaultConfig(), alert.Deps{
		Table:      aqi.IndoorTable(),
		State:      alert.NewMemoryState(),
		Settings:   staticSettings{&models.UserSettings{Email: &email, NotificationsEnabled: true, ForecastHorizonMinutes: &horizon}},
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	orch.SetClock(func() time.Time { return testutil.Epoch.Add(time.Hour) })

	p := NewPipeline(alert.DefaultConfig(), aqi.NewComputer(aqi.IndoorTable()), hs, orch, nil, zap.NewNop())
	ctx := context.Background()

	clean, err := p.Ingest(ctx, aqi.RawSample{Timestamp: testutil.Epoch.Add(58 * time.Minute), ConcentrationUgM3: ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, alert.DecisionNoSpike, clean.Alert.Decision)

	smoky, err := p.Ingest(ctx, aqi.RawSample{Timestamp: testutil.Epoch.Add(59 * time.Minute), ConcentrationUgM3: ptr(1000)})
	require.NoError(t, err)
	assert.Equal(t, alert.DecisionDispatched, smoky.Alert.Decision)
	assert.True(t, smoky.Alert.Spikes.Has(models.SensorAQI))

	again, err := p.Ingest(ctx, aqi.RawSample{Timestamp: testutil.Epoch.Add(time.Hour), ConcentrationUgM3: ptr(1000)})
	require.NoError(t, err)
	assert.Equal(t, alert.DecisionCooldown, again.Alert.Decision)
	assert.Equal(t, 1, dispatcher.n)
}
