package transport

import (
	"context"
	"sync"
)

// Readiness is a one-shot future resolved exactly once, replacing
// poll-until-ready loops: subscribers block on Wait or select on Done.
type Readiness struct {
	once sync.Once
	done chan struct{}
	err  error
}

func NewReadiness() *Readiness {
	return &Readiness{done: make(chan struct{})}
}

// Resolve publishes the outcome; calls after the first are ignored.
func (r *Readiness) Resolve(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

func (r *Readiness) Done() <-chan struct{} {
	return r.done
}

func (r *Readiness) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return r.err
	}
}
