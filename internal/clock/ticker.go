package clock

import (
	"sync"
	"time"
)

// Ticker delivers ticks from a dedicated goroutine. Ticks are serialized:
// the next one is not delivered until the previous TickFunc has returned.
type Ticker struct {
	mu   sync.Mutex
	now  func() time.Time
	quit chan struct{}
	done chan struct{}
}

func NewTicker() *Ticker {
	return &Ticker{now: time.Now}
}

// NewTickerWithNow uses now as the wall clock when computing elapsed time.
func NewTickerWithNow(now func() time.Time) *Ticker {
	return &Ticker{now: now}
}

func (t *Ticker) Start(interval time.Duration, onTick TickFunc) {
	t.Stop()

	t.mu.Lock()
	quit := make(chan struct{})
	done := make(chan struct{})
	t.quit, t.done = quit, done
	start := t.now()
	t.mu.Unlock()

	go t.loop(interval, start, onTick, quit, done)
}

func (t *Ticker) loop(interval time.Duration, start time.Time, onTick TickFunc, quit, done chan struct{}) {
	defer close(done)

	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		select {
		case <-quit:
			return
		case <-tk.C:
		}

		// Stop may have raced with the ticker channel.
		select {
		case <-quit:
			return
		default:
		}

		if !onTick(t.now().Sub(start).Seconds()) {
			t.release(quit)
			return
		}
	}
}

// release forgets a run that ended itself, unless Stop already claimed it.
func (t *Ticker) release(quit chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quit == quit {
		t.quit, t.done = nil, nil
	}
}

// Stop halts the current run and waits for an in-flight tick to finish.
// It must not be called from inside the TickFunc.
func (t *Ticker) Stop() {
	t.mu.Lock()
	quit, done := t.quit, t.done
	t.quit, t.done = nil, nil
	t.mu.Unlock()

	if quit == nil {
		return
	}
	close(quit)
	<-done
}

func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.quit != nil
}
