package alert

import (
	"context"
	"sync"
	"time"
)

var _ StateRepository = (*MemoryState)(nil)

// MemoryState keeps alert state in process memory. It is lost on restart.
type MemoryState struct {
	mu   sync.Mutex
	last time.Time
}

// NewMemoryState creates an empty MemoryState.
func NewMemoryState() *MemoryState {
	return &MemoryState{}
}

func (m *MemoryState) LastSent(_ context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, !m.last.IsZero(), nil
}

func (m *MemoryState) SetLastSent(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.After(m.last) {
		m.last = t
	}
	return nil
}
