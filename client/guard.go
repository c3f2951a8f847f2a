package client

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"pkt.systems/balletsubmit/internal/logx"
	"pkt.systems/balletsubmit/schema"
)

// Submitter submits cell text and always yields a result.
type Submitter interface {
	Submit(ctx context.Context, code string) schema.SubmissionResult
}

// Guard serializes submissions from repeated clicks. A submission arriving
// while another is in flight, or inside the debounce window, is rejected.
type Guard struct {
	next     Submitter
	limiter  *rate.Limiter
	inFlight atomic.Bool
	observer Observer
}

// Observer receives every result the guard returns, refusals included.
type Observer interface {
	OnSubmission(result schema.SubmissionResult)
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithObserver reports results to o.
func WithObserver(o Observer) GuardOption {
	return func(g *Guard) {
		g.observer = o
	}
}

// NewGuard wraps next. minInterval <= 0 disables debouncing.
func NewGuard(next Submitter, minInterval time.Duration, opts ...GuardOption) *Guard {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	g := &Guard{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Submit forwards to the wrapped submitter unless a refusal applies.
func (g *Guard) Submit(ctx context.Context, code string) schema.SubmissionResult {
	result := g.submit(ctx, code)
	if g.observer != nil {
		g.observer.OnSubmission(result)
	}
	return result
}

func (g *Guard) submit(ctx context.Context, code string) schema.SubmissionResult {
	log := logx.WithEndpoint(ctx, schema.EndpointSubmit)
	if !g.inFlight.CompareAndSwap(false, true) {
		log.Warn("submit refused", "reason", "in flight")
		return schema.RejectedWith(schema.ErrSubmissionInFlight.Error())
	}
	defer g.inFlight.Store(false)
	if !g.limiter.Allow() {
		log.Warn("submit refused", "reason", "debounce")
		return schema.RejectedWith(schema.ErrSubmissionTooSoon.Error())
	}
	return g.next.Submit(ctx, code)
}
