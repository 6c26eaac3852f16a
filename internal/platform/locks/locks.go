// Package locks provides per-key mutual exclusion used to serialize writes to a single
// content version (file-set mutations and finalization).
package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrContended is returned when a key could not be acquired within the allowed wait.
var ErrContended = errors.New("lock contended")

// Locker acquires an exclusive hold on key. A wait <= 0 means try once and fail fast.
// The returned release func is idempotent.
type Locker interface {
	Acquire(ctx context.Context, key string, wait time.Duration) (release func(), err error)
}

type slot struct {
	ch   chan struct{}
	refs int
}

// KeyedLocker is an in-process Locker. Slots are reference counted and dropped once idle.
type KeyedLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{slots: map[string]*slot{}}
}

func (l *KeyedLocker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := l.ref(key)
	acquired := false
	defer func() {
		if !acquired {
			l.unref(key, s)
		}
	}()

	select {
	case s.ch <- struct{}{}:
		acquired = true
	default:
	}
	if !acquired {
		if wait <= 0 {
			return nil, ErrContended
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case s.ch <- struct{}{}:
			acquired = true
		case <-timer.C:
			return nil, ErrContended
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key, s)
		})
	}, nil
}

// Held reports how many keys currently have holders or waiters.
func (l *KeyedLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func (l *KeyedLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *KeyedLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs <= 0 && l.slots[key] == s {
		delete(l.slots, key)
	}
}
