// Package authpoll drives the GitHub authorization flow: it opens the
// authorize page, polls the authentication status until it succeeds, and
// keeps an indicator in sync.
package authpoll

import (
	"context"
	"sync"
	"time"

	"pkt.systems/balletsubmit/schema"
	"pkt.systems/pslog"
)

const (
	// DefaultInterval is the primary poll interval.
	DefaultInterval = time.Second
	// DefaultTimeout bounds one poll session.
	DefaultTimeout = 5 * time.Minute
	// DefaultTokenTimeout bounds the background token request.
	DefaultTokenTimeout = 90 * time.Second
)

// StatusSource reports authentication status.
type StatusSource interface {
	IsAuthenticated(ctx context.Context) (bool, error)
}

// Authenticator is the part of the client the poller drives.
type Authenticator interface {
	StatusSource
	AuthorizeURL() string
	RequestToken(ctx context.Context) error
}

// Indicator reflects authentication state to the user.
type Indicator interface {
	SetAuthenticated(authenticated bool)
}

// IndicatorFunc adapts a function to Indicator.
type IndicatorFunc func(bool)

// SetAuthenticated calls f.
func (f IndicatorFunc) SetAuthenticated(authenticated bool) { f(authenticated) }

// Poller is the authentication state machine:
// Idle -> Polling -> Authenticated, with Polling -> Expired when a session
// runs past its bound. The poller owns its ticker for the whole session.
type Poller struct {
	auth      Authenticator
	opener    Opener
	indicator Indicator
	clock     Clock

	interval     time.Duration
	timeout      time.Duration
	tokenTimeout time.Duration

	mu       sync.Mutex
	state    schema.AuthState
	closed   bool
	// canceled records a Cancel that arrived while Start was still opening
	// the session.
	canceled bool
	ticker   Ticker
	window   Window
	cancel   context.CancelFunc
	done     chan struct{}
	deadline time.Time
	ticks    int
}

// Option configures a Poller.
type Option func(*Poller)

// WithOpener sets how the authorize page is opened.
func WithOpener(o Opener) Option {
	return func(p *Poller) { p.opener = o }
}

// WithIndicator sets the indicator updated on authentication.
func WithIndicator(i Indicator) Option {
	return func(p *Poller) { p.indicator = i }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTimeout bounds each poll session.
func WithTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithTokenTimeout bounds the background token request.
func WithTokenTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.tokenTimeout = d
		}
	}
}

// New constructs an idle poller.
func New(auth Authenticator, opts ...Option) *Poller {
	p := &Poller{
		auth:         auth,
		clock:        SystemClock{},
		interval:     DefaultInterval,
		timeout:      DefaultTimeout,
		tokenTimeout: DefaultTokenTimeout,
		state:        schema.AuthIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current state.
func (p *Poller) State() schema.AuthState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start opens the authorize page, fires the token request in the background
// and begins polling. It is allowed from Idle and Expired.
func (p *Poller) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	switch {
	case p.closed:
		p.mu.Unlock()
		return schema.ErrClosed
	case p.state == schema.AuthAuthenticated:
		p.mu.Unlock()
		return schema.ErrAlreadyAuthenticated
	case p.state == schema.AuthPolling:
		p.mu.Unlock()
		return schema.ErrPollInProgress
	}
	p.state = schema.AuthPolling
	p.canceled = false
	p.mu.Unlock()

	log := pslog.Ctx(ctx)
	authorizeURL := p.auth.AuthorizeURL()
	var window Window
	if p.opener != nil {
		w, err := p.opener.Open(ctx, authorizeURL)
		if err != nil {
			log.Warn("auth authorize page open failed", "url", authorizeURL, "err", err)
		} else {
			window = w
		}
	}
	p.requestToken(ctx, log)

	loopCtx, cancel := context.WithCancel(ctx)
	ticker := p.clock.NewTicker(p.interval)
	done := make(chan struct{})

	p.mu.Lock()
	if p.closed || p.canceled {
		err := schema.ErrPollCanceled
		if p.closed {
			err = schema.ErrClosed
		}
		p.state = schema.AuthIdle
		p.canceled = false
		p.mu.Unlock()
		ticker.Stop()
		cancel()
		closeWindow(log, window)
		log.Info("auth poll canceled before polling")
		return err
	}
	p.ticker = ticker
	p.window = window
	p.cancel = cancel
	p.done = done
	p.ticks = 0
	p.deadline = p.clock.Now().Add(p.timeout)
	p.mu.Unlock()

	log.Info("auth poll start", "interval_ms", p.interval.Milliseconds(), "timeout_s", int(p.timeout.Seconds()), "window", window != nil)
	go p.loop(loopCtx, log, ticker, done)
	return nil
}

// Cancel stops the current poll session and returns to Idle. It is a no-op
// when no session is running.
func (p *Poller) Cancel() {
	p.finish(nil, nil, schema.AuthIdle)
}

// Close disposes the poller. Later Start calls fail with ErrClosed.
func (p *Poller) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.finish(nil, nil, schema.AuthIdle)
	return nil
}

// Done returns a channel closed when the current poll session ends. It is
// nil before the first Start.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Wait blocks until the current poll session ends and returns the final state.
func (p *Poller) Wait(ctx context.Context) (schema.AuthState, error) {
	done := p.Done()
	if done == nil {
		return p.State(), nil
	}
	select {
	case <-done:
		return p.State(), nil
	case <-ctx.Done():
		return p.State(), ctx.Err()
	}
}

func (p *Poller) loop(ctx context.Context, log pslog.Logger, ticker Ticker, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			if p.finish(log, ticker, schema.AuthIdle) {
				log.Info("auth poll canceled")
			}
			return
		case <-ticker.C():
			if p.tick(ctx, log, ticker) {
				return
			}
		}
	}
}

// tick runs one status check and reports whether the session is over.
func (p *Poller) tick(ctx context.Context, log pslog.Logger, ticker Ticker) bool {
	p.mu.Lock()
	if p.state != schema.AuthPolling || p.ticker != ticker {
		p.mu.Unlock()
		return true
	}
	p.ticks++
	n := p.ticks
	deadline := p.deadline
	p.mu.Unlock()

	authenticated, err := p.auth.IsAuthenticated(ctx)
	if err != nil {
		log.Warn("auth poll tick failed", "tick", n, "err", err)
		authenticated = false
	}
	if authenticated {
		if p.finish(log, ticker, schema.AuthAuthenticated) {
			log.Info("auth poll authenticated", "ticks", n)
		}
		return true
	}
	if !deadline.IsZero() && !p.clock.Now().Before(deadline) {
		if p.finish(log, ticker, schema.AuthExpired) {
			log.Warn("auth poll expired", "ticks", n)
		}
		return true
	}
	log.Debug("auth poll pending", "tick", n)
	return false
}

// finish leaves Polling for next. A nil ticker matches any session. Only the
// first caller for a session performs the side effects. A session that Start
// has not finished opening is marked canceled and torn down by Start.
func (p *Poller) finish(log pslog.Logger, ticker Ticker, next schema.AuthState) bool {
	p.mu.Lock()
	if p.state == schema.AuthPolling && p.ticker == nil && ticker == nil {
		p.canceled = true
		p.mu.Unlock()
		return false
	}
	if p.state != schema.AuthPolling || p.ticker == nil || (ticker != nil && p.ticker != ticker) {
		p.mu.Unlock()
		return false
	}
	p.state = next
	current, window, cancel := p.ticker, p.window, p.cancel
	p.ticker, p.window, p.cancel = nil, nil, nil
	p.mu.Unlock()

	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	if next == schema.AuthAuthenticated && p.indicator != nil {
		p.indicator.SetAuthenticated(true)
	}
	current.Stop()
	if cancel != nil {
		cancel()
	}
	closeWindow(log, window)
	return true
}

// requestToken asks the server to exchange the grant. The result is
// discarded; failures are only logged.
func (p *Poller) requestToken(ctx context.Context, log pslog.Logger) {
	tokenCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.tokenTimeout)
	go func() {
		defer cancel()
		if err := p.auth.RequestToken(tokenCtx); err != nil {
			log.Warn("auth token request failed", "err", err)
			return
		}
		log.Debug("auth token request ok")
	}()
}

func closeWindow(log pslog.Logger, window Window) {
	if window == nil || window.Closed() {
		return
	}
	if err := window.Close(); err != nil {
		log.Debug("auth window close failed", "err", err)
	}
}
