package worker

// Limiter is a counting permit pool with fixed capacity. Acquisition is
// non-blocking: a job either gets a permit or terminates as throttled, it is
// never queued. The pool is passed by reference to whoever admits jobs; it is
// not ambient global state.
type Limiter struct {
	tokens chan struct{}
}

// NewLimiter builds a pool of the given capacity. Capacities below one are
// clamped to one.
func NewLimiter(capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{tokens: make(chan struct{}, capacity)}
}

// TryAcquire takes a permit when one is free and reports whether it did.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.tokens <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a permit. Releasing an empty pool is a no-op so a stray
// double release cannot corrupt capacity accounting.
func (l *Limiter) Release() {
	select {
	case <-l.tokens:
	default:
	}
}

// Capacity returns the total permit count.
func (l *Limiter) Capacity() int {
	return cap(l.tokens)
}

// InUse returns the number of permits currently held.
func (l *Limiter) InUse() int {
	return len(l.tokens)
}
