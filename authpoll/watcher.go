package authpoll

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// DefaultWatchInterval is the background poll interval.
const DefaultWatchInterval = 5 * time.Second

// Watcher polls authentication status in the background so the indicator
// stays accurate when authentication happens elsewhere. It never changes a
// Poller's state and never opens windows.
type Watcher struct {
	source    StatusSource
	indicator Indicator
	clock     Clock
	interval  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	last    bool
	known   bool
	checked int
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchClock replaces the wall clock.
func WithWatchClock(c Clock) WatcherOption {
	return func(w *Watcher) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithWatchInterval sets the background interval.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher constructs a stopped watcher.
func NewWatcher(source StatusSource, indicator Indicator, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:    source,
		indicator: indicator,
		clock:     SystemClock{},
		interval:  DefaultWatchInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins polling. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := w.clock.NewTicker(w.interval)
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	log := pslog.Ctx(ctx)
	log.Debug("auth watch start", "interval_ms", w.interval.Milliseconds())
	go func() {
		defer close(done)
		defer ticker.Stop()
		w.Check(runCtx)
		for {
			select {
			case <-runCtx.Done():
				log.Debug("auth watch stop")
				return
			case <-ticker.C():
				w.Check(runCtx)
			}
		}
	}()
}

// Check polls once and updates the indicator when the status changed.
// Errors count as unauthenticated.
func (w *Watcher) Check(ctx context.Context) bool {
	authenticated, err := w.source.IsAuthenticated(ctx)
	if err != nil {
		if ctx.Err() == nil {
			pslog.Ctx(ctx).Debug("auth watch check failed", "err", err)
		}
		authenticated = false
	}
	w.mu.Lock()
	changed := !w.known || w.last != authenticated
	w.known = true
	w.last = authenticated
	w.checked++
	w.mu.Unlock()
	if changed && w.indicator != nil {
		w.indicator.SetAuthenticated(authenticated)
	}
	return authenticated
}

// Checks returns how many checks ran.
func (w *Watcher) Checks() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checked
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
