package dashboard

import (
	"context"
	"sync"
	"time"
)

// Refresher calls a refresh function on an interval while the display is
// visible. Becoming visible again triggers an immediate refresh.
type Refresher struct {
	interval  time.Duration
	refresh   func(context.Context)
	newTicker TickerFunc

	mu         sync.Mutex
	visibility chan bool
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewRefresher builds a stopped refresher.
func NewRefresher(interval time.Duration, refresh func(context.Context)) *Refresher {
	return &Refresher{
		interval:  interval,
		refresh:   refresh,
		newTicker: NewStdTicker,
	}
}

// WithTicker overrides the ticker factory.
func (r *Refresher) WithTicker(fn TickerFunc) {
	if fn != nil {
		r.newTicker = fn
	}
}

// Start launches the loop. Calling it twice has no effect.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil || r.interval <= 0 {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.visibility = make(chan bool)
	go r.loop(loopCtx, r.visibility, r.done)
}

// Stop halts the loop and waits for an in-flight refresh to return.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done, r.visibility = nil, nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SetVisible suspends the schedule when hidden and resumes it, after an
// immediate refresh, when visible.
func (r *Refresher) SetVisible(visible bool) {
	r.mu.Lock()
	ch, done := r.visibility, r.done
	r.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- visible:
	case <-done:
	}
}

func (r *Refresher) loop(ctx context.Context, visibility <-chan bool, done chan<- struct{}) {
	defer close(done)
	ticker := r.newTicker(r.interval)
	tick := ticker.C()
	hidden := false
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			r.refresh(ctx)
		case visible := <-visibility:
			switch {
			case !visible && !hidden:
				hidden = true
				ticker.Stop()
				ticker, tick = nil, nil
			case visible && hidden:
				hidden = false
				r.refresh(ctx)
				ticker = r.newTicker(r.interval)
				tick = ticker.C()
			}
		}
	}
}
