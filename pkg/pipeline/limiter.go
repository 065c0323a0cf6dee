package pipeline

import "context"

// Limiter caps the number of concurrent engine invocations. One Limiter is
// shared by every file of a run. A nil *Limiter means tasks run one at a
// time in the calling goroutine.
type Limiter struct {
	sem chan struct{}
}

// NewLimiter returns a limiter admitting n concurrent tasks, or nil if n < 2.
func NewLimiter(n int) *Limiter {
	if n < 2 {
		return nil
	}
	return &Limiter{sem: make(chan struct{}, n)}
}

// Cap returns the number of concurrent slots, 1 for a nil limiter.
func (l *Limiter) Cap() int {
	if l == nil {
		return 1
	}
	return cap(l.sem)
}

// Acquire blocks for a slot or until ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	if l == nil {
		return
	}
	<-l.sem
}
