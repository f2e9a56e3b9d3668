package alert

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StateRepository persists the time of the last delivered alert. It holds a
// single value that only moves forward.
type StateRepository interface {
	// LastSent returns the last successful send time. ok is false when no
	// alert has ever been delivered.
	LastSent(ctx context.Context) (t time.Time, ok bool, err error)
	// SetLastSent records t. A t earlier than the stored value is ignored.
	SetLastSent(ctx context.Context, t time.Time) error
}

// MaxCooldownMinutes bounds the cooldown window so it always fits in a
// time.Duration. Larger settings mean "effectively never" and are capped.
const MaxCooldownMinutes = 100 * 365 * 24 * 60

// Cooldown enforces the minimum interval between delivered alerts.
type Cooldown struct {
	repo   StateRepository
	logger *zap.Logger
}

// NewCooldown creates a Cooldown over repo.
func NewCooldown(repo StateRepository, logger *zap.Logger) *Cooldown {
	return &Cooldown{repo: repo, logger: logger}
}

// Remaining returns how much of a cooldown of minutes is left at now. Zero
// means a new alert may be sent. A repository error is logged and treated
// as no prior send.
func (c *Cooldown) Remaining(ctx context.Context, now time.Time, minutes int) time.Duration {
	last, ok, err := c.repo.LastSent(ctx)
	if err != nil {
		c.logger.Warn("alert state unavailable, treating cooldown as elapsed", zap.Error(err))
		return 0
	}
	if !ok {
		return 0
	}
	window := cooldownWindow(minutes)
	elapsed := now.Sub(last)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= window {
		return 0
	}
	return window - elapsed
}

func cooldownWindow(minutes int) time.Duration {
	if minutes > MaxCooldownMinutes {
		minutes = MaxCooldownMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// Elapsed reports whether an alert may be sent at now.
func (c *Cooldown) Elapsed(ctx context.Context, now time.Time, minutes int) bool {
	return c.Remaining(ctx, now, minutes) == 0
}

// Commit records a successful send at t.
func (c *Cooldown) Commit(ctx context.Context, t time.Time) error {
	return c.repo.SetLastSent(ctx, t)
}
