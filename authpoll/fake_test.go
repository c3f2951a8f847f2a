package authpoll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	t := &fakeTicker{ch: make(chan time.Time), interval: d}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

func (c *fakeClock) ticker(t *testing.T, idx int) *fakeTicker {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx >= len(c.tickers) {
		t.Fatalf("expected ticker %d, have %d", idx, len(c.tickers))
	}
	return c.tickers[idx]
}

type fakeTicker struct {
	ch       chan time.Time
	interval time.Duration
	stopped  atomic.Int32
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped.Add(1) }

// fire delivers one tick and fails if nobody receives it.
func (t *fakeTicker) fire(tb testing.TB) {
	tb.Helper()
	select {
	case t.ch <- time.Time{}:
	case <-time.After(time.Second):
		tb.Fatal("tick was not received")
	}
}

// tryFire reports whether a tick was received within a short window.
func (t *fakeTicker) tryFire() bool {
	select {
	case t.ch <- time.Time{}:
		return true
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

type fakeAuth struct {
	mu        sync.Mutex
	results   []authResult
	calls     int
	polled    chan int
	tokenErr  error
	tokenReqs chan struct{}
	url       string
}

type authResult struct {
	ok  bool
	err error
}

func newFakeAuth(results ...authResult) *fakeAuth {
	return &fakeAuth{
		results:   results,
		polled:    make(chan int, 16),
		tokenReqs: make(chan struct{}, 4),
		url:       "http://localhost:8888/assemble/auth/authorize",
	}
}

func (a *fakeAuth) IsAuthenticated(context.Context) (bool, error) {
	a.mu.Lock()
	a.calls++
	n := a.calls
	var res authResult
	if len(a.results) > 0 {
		res = a.results[0]
		a.results = a.results[1:]
	}
	a.mu.Unlock()
	a.polled <- n
	return res.ok, res.err
}

func (a *fakeAuth) AuthorizeURL() string { return a.url }

func (a *fakeAuth) RequestToken(context.Context) error {
	a.tokenReqs <- struct{}{}
	return a.tokenErr
}

func (a *fakeAuth) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *fakeAuth) waitPolled(t *testing.T, want int) {
	t.Helper()
	select {
	case got := <-a.polled:
		if got != want {
			t.Fatalf("expected poll %d, got %d", want, got)
		}
	case <-time.After(time.Second):
		t.Fatalf("poll %d did not happen", want)
	}
}

type fakeOpener struct {
	mu     sync.Mutex
	urls   []string
	window *fakeWindow
	err    error
}

func (o *fakeOpener) Open(_ context.Context, url string) (Window, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, url)
	if o.err != nil {
		return nil, o.err
	}
	if o.window == nil {
		return nil, nil
	}
	return o.window, nil
}

type fakeWindow struct {
	closes atomic.Int32
}

func (w *fakeWindow) Close() error {
	w.closes.Add(1)
	return nil
}

func (w *fakeWindow) Closed() bool { return w.closes.Load() > 0 }

type recordingIndicator struct {
	mu     sync.Mutex
	values []bool
}

func (r *recordingIndicator) SetAuthenticated(v bool) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

func (r *recordingIndicator) Values() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.values...)
}

var errBoom = errors.New("boom")
