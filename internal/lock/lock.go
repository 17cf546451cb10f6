// Package lock serializes work per key, such as decisions on one ticket.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAcquired is returned when a lock could not be taken in time.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive leases on a key. The returned release func must
// be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type slot struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewLocal builds an in-process locker.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// Acquire blocks until key is free or ctx is done.
func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, s)
		return nil, errors.Join(ErrNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key, s)
		})
	}, nil
}

func (l *Local) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// held reports how many keys currently have waiters or holders.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
