package lock

import (
	"context"
	"sync"
	"time"

	"github.com/easyshop/backend/internal/domain/shared"
)

// MemoryLocker is a process-local KeyLocker backed by one channel per
// key. Suitable for single-instance deployments and tests; multi-instance
// deployments need the Redis locker.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewMemoryLocker creates an in-process key locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		slots: make(map[string]chan struct{}),
	}
}

// Obtain implements KeyLocker
func (l *MemoryLocker) Obtain(ctx context.Context, key string, _, wait time.Duration) (Lock, error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		return &memoryLock{slot: slot}, nil
	case <-timer.C:
		return nil, shared.ErrBusy.WithDetails("key", key)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memoryLock struct {
	slot     chan struct{}
	released bool
	mu       sync.Mutex
}

// Release implements Lock
func (m *memoryLock) Release(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return shared.NewDomainError("LOCK_ALREADY_RELEASED", "Lock was already released")
	}
	m.released = true
	<-m.slot
	return nil
}

var _ KeyLocker = (*MemoryLocker)(nil)
