package lock

import "context"

// Locker grants exclusive access to the record store. Acquire blocks until
// the lock is held or ctx is done; the returned release func must be called
// exactly once.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Mutex is an in-process Locker
type Mutex struct {
	ch chan struct{}
}

// NewMutex returns an unlocked Mutex
func NewMutex() *Mutex {
	return &Mutex{ch: make(chan struct{}, 1)}
}

func (m *Mutex) Acquire(ctx context.Context) (func(), error) {
	select {
	case m.ch <- struct{}{}:
		return func() { <-m.ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
