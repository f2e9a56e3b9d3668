package alert

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/HerbHall/airwatch/internal/store"
	"github.com/HerbHall/airwatch/internal/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type failingState struct{}

func (failingState) LastSent(context.Context) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("state store offline")
}

func (failingState) SetLastSent(context.Context, time.Time) error {
	return errors.New("state store offline")
}

func TestCooldown_SuppressesUntilElapsed(t *testing.T) {
	ctx := context.Background()
	c := NewCooldown(NewMemoryState(), zaptest.NewLogger(t))
	sentAt := testutil.Epoch

	assert.True(t, c.Elapsed(ctx, sentAt, 30), "no prior send should count as elapsed")
	require.NoError(t, c.Commit(ctx, sentAt))

	assert.False(t, c.Elapsed(ctx, sentAt.Add(5*time.Minute), 30), "T+5m should be suppressed")
	assert.Equal(t, 25*time.Minute, c.Remaining(ctx, sentAt.Add(5*time.Minute), 30))
	assert.True(t, c.Elapsed(ctx, sentAt.Add(31*time.Minute), 30), "T+31m should be permitted")
	assert.True(t, c.Elapsed(ctx, sentAt.Add(30*time.Minute), 30), "exactly the cooldown should be permitted")
}

func TestCooldown_HugeHorizonNeverElapses(t *testing.T) {
	ctx := context.Background()
	c := NewCooldown(NewMemoryState(), zaptest.NewLogger(t))
	require.NoError(t, c.Commit(ctx, testutil.Epoch))

	for _, minutes := range []int{MaxCooldownMinutes, 200_000_000, math.MaxInt32, math.MaxInt} {
		assert.False(t, c.Elapsed(ctx, testutil.Epoch.Add(time.Minute), minutes), "minutes=%d", minutes)
		assert.Positive(t, c.Remaining(ctx, testutil.Epoch.Add(time.Minute), minutes), "minutes=%d", minutes)
	}
}

func TestCooldown_LastSentInFuture(t *testing.T) {
	ctx := context.Background()
	c := NewCooldown(NewMemoryState(), zaptest.NewLogger(t))
	require.NoError(t, c.Commit(ctx, testutil.Epoch.Add(time.Hour)))

	assert.Equal(t, 30*time.Minute, c.Remaining(ctx, testutil.Epoch, 30))
}

func TestCooldown_StateErrorTreatedAsElapsed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := NewCooldown(failingState{}, zap.New(core))

	assert.True(t, c.Elapsed(context.Background(), testutil.Epoch, 30))
	assert.Equal(t, 1, logs.FilterMessage("alert state unavailable, treating cooldown as elapsed").Len())
}

// stateContract runs the behaviour every StateRepository must share.
func stateContract(t *testing.T, repo StateRepository) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := repo.LastSent(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh repository should report no send")

	first := testutil.Epoch
	require.NoError(t, repo.SetLastSent(ctx, first))
	got, ok, err := repo.LastSent(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(first), "LastSent = %v, want %v", got, first)

	later := first.Add(10 * time.Minute)
	require.NoError(t, repo.SetLastSent(ctx, later))
	require.NoError(t, repo.SetLastSent(ctx, first.Add(-time.Hour)))

	got, _, err = repo.LastSent(ctx)
	require.NoError(t, err)
	assert.True(t, got.Equal(later), "LastSent moved backwards to %v", got)
}

func TestMemoryState(t *testing.T) {
	stateContract(t, NewMemoryState())
}

func TestSQLiteState(t *testing.T) {
	db := testutil.OpenStore(t, map[string][]store.Migration{"alert": Migrations()})
	stateContract(t, NewSQLiteState(db.DB()))
}

func TestRedisState(t *testing.T) {
	srv := miniredis.RunT(t)
	client := NewRedisClient(RedisConfig{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	stateContract(t, NewRedisState(client, ""))
	assert.True(t, srv.Exists(DefaultRedisKey), "state should live under the default key")
}

func TestRedisState_CorruptDocument(t *testing.T) {
	srv := miniredis.RunT(t)
	client := NewRedisClient(RedisConfig{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, srv.Set("airwatch:state", "{not json"))
	repo := NewRedisState(client, "airwatch:state")

	_, _, err := repo.LastSent(context.Background())
	require.Error(t, err)
	assert.Error(t, repo.SetLastSent(context.Background(), testutil.Epoch), "a corrupt document must not be overwritten blindly")
}

func TestRedisState_ServerDown(t *testing.T) {
	srv := miniredis.RunT(t)
	client := NewRedisClient(RedisConfig{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	c := NewCooldown(NewRedisState(client, ""), zap.New(core))
	assert.True(t, c.Elapsed(context.Background(), testutil.Epoch, 30))
	assert.Equal(t, 1, logs.Len())
}
