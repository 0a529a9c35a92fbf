package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/painel-vendas/painel/internal/shared"
)

// Page describes the visible window of a rotated list. Index is 0-based.
type Page struct {
	Index int
	Count int
	Start int
	End   int
}

// Ticker is the subset of time.Ticker the schedulers rely on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates tickers. Tests swap it for a manually driven one.
type TickerFunc func(time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker wraps time.NewTicker.
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Rotator cycles through the pages of a list on a fixed interval. It only
// runs while more than one page exists.
type Rotator struct {
	mu        sync.Mutex
	interval  time.Duration
	newTicker TickerFunc
	onPage    func(Page)

	pages   shared.Pagination
	running bool
	gen     uint64
	cancel  context.CancelFunc
	ticker  Ticker
}

// NewRotator builds a stopped rotator. onPage receives every page change
// produced by the ticker.
func NewRotator(pageSize int, interval time.Duration, onPage func(Page)) *Rotator {
	if onPage == nil {
		onPage = func(Page) {}
	}
	return &Rotator{
		interval:  interval,
		newTicker: NewStdTicker,
		onPage:    onPage,
		pages:     shared.NewPagination(1, pageSize, 0),
	}
}

// WithTicker overrides the ticker factory.
func (r *Rotator) WithTicker(fn TickerFunc) {
	if fn != nil {
		r.mu.Lock()
		r.newTicker = fn
		r.mu.Unlock()
	}
}

// Reset rewinds to the first page for a list of total items and stops the
// rotation when a single page is enough.
func (r *Rotator) Reset(total int) Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = shared.NewPagination(1, r.pages.PerPage, total)
	if !r.pages.Paginated() {
		r.stopLocked()
	}
	return r.currentLocked()
}

// Current returns the visible page.
func (r *Rotator) Current() Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

// Running reports whether the ticker loop is active.
func (r *Rotator) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start clears any running ticker and arms a fresh one, so the visible page
// always gets a full interval. It reports whether a loop was started; a
// single page never rotates.
func (r *Rotator) Start(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	if !r.pages.Paginated() || r.interval <= 0 {
		return false
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.gen++
	r.cancel = cancel
	r.ticker = r.newTicker(r.interval)
	go r.loop(loopCtx, r.gen, r.ticker)
	return true
}

// Stop halts the ticker loop. Safe to call when stopped.
func (r *Rotator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// Advance moves to the next page, wrapping after the last, and returns it.
func (r *Rotator) Advance() Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = r.pages.Next()
	return r.currentLocked()
}

func (r *Rotator) loop(ctx context.Context, gen uint64, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			r.mu.Lock()
			if r.gen != gen || !r.running {
				r.mu.Unlock()
				return
			}
			r.pages = r.pages.Next()
			page := r.currentLocked()
			r.mu.Unlock()
			r.onPage(page)
		}
	}
}

func (r *Rotator) stopLocked() {
	if !r.running {
		return
	}
	r.running = false
	r.gen++
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Rotator) currentLocked() Page {
	start, end := r.pages.Bounds()
	return Page{
		Index: r.pages.Page - 1,
		Count: r.pages.TotalPages,
		Start: start,
		End:   end,
	}
}
