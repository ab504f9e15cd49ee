package guard

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultLimit  = 5
	DefaultWindow = 3000 * time.Millisecond
)

// ErrAlreadySending is returned while a previous send is still in flight.
// It does not consume a rate-window slot.
var ErrAlreadySending = errors.New("the previous message is still sending, please wait")

// RateLimitedError carries the remaining cooldown for user feedback.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("sending too fast, retry after %v", e.RetryAfter.Round(time.Millisecond))
}

// Guard enforces the sliding-window send-rate limit and the single
// in-flight-send invariant. Both checks run before any side effect, so a
// rejected send leaves no trace.
type Guard struct {
	mux sync.Mutex

	limit   int
	window  time.Duration
	samples []time.Time
	sending bool

	// Now is swappable for tests.
	Now func() time.Time
}

func New(limit int, window time.Duration) *Guard {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{
		limit:  limit,
		window: window,
		Now:    time.Now,
	}
}

// Admit checks both invariants and, on success, records the send timestamp
// and raises the in-flight flag. Release must be called once the send is
// confirmed or failed.
func (g *Guard) Admit() error {
	g.mux.Lock()
	defer g.mux.Unlock()

	if g.sending {
		return ErrAlreadySending
	}

	now := g.Now()
	g.pruneLocked(now)
	if len(g.samples) >= g.limit {
		return &RateLimitedError{
			RetryAfter: g.window - now.Sub(g.samples[0]),
		}
	}

	g.samples = append(g.samples, now)
	g.sending = true
	return nil
}

func (g *Guard) Release() {
	g.mux.Lock()
	defer g.mux.Unlock()
	g.sending = false
}

func (g *Guard) InFlight() bool {
	g.mux.Lock()
	defer g.mux.Unlock()
	return g.sending
}

// Prune drops expired window samples; called by the housekeeping job.
func (g *Guard) Prune() {
	g.mux.Lock()
	defer g.mux.Unlock()
	g.pruneLocked(g.Now())
}

func (g *Guard) pruneLocked(now time.Time) {
	cutoff := now.Add(-g.window)
	idx := 0
	for idx < len(g.samples) && !g.samples[idx].After(cutoff) {
		idx++
	}
	g.samples = g.samples[idx:]
}
