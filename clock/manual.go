package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Clock that only moves when Advance is called.
//
// Ticker channels are unbuffered: Advance blocks until the receiving
// goroutine takes each tick (or the ticker is stopped), so a loop that
// reads from a Manual ticker has finished handling tick N by the time
// tick N+1 is accepted. Timers fire synchronously inside Advance.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
	timers  []*manualTimer
}

// NewManual returns a manual clock starting at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker period")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{
		c:      make(chan time.Time),
		done:   make(chan struct{}),
		period: d,
		next:   m.now.Add(d),
	}
	m.tickers = append(m.tickers, t)
	return t
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{clock: m, at: m.now.Add(d), f: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d, delivering every tick and firing
// every timer that falls due along the way, in time order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		at, fire := m.nextEvent(target)
		if fire == nil {
			break
		}
		m.mu.Lock()
		m.now = at
		m.mu.Unlock()
		fire()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// Pending returns the number of timers that have not fired or been stopped
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Tickers returns the number of live tickers, so a test can wait for a
// goroutine to start listening before advancing.
func (m *Manual) Tickers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tk := range m.tickers {
		if !tk.stopped() {
			n++
		}
	}
	return n
}

// nextEvent picks the earliest tick or timer due at or before target
func (m *Manual) nextEvent(target time.Time) (time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		best time.Time
		fire func()
	)

	sort.SliceStable(m.timers, func(i, j int) bool { return m.timers[i].at.Before(m.timers[j].at) })
	if len(m.timers) > 0 && !m.timers[0].at.After(target) {
		t := m.timers[0]
		best = t.at
		fire = func() {
			m.mu.Lock()
			m.removeTimer(t)
			m.mu.Unlock()
			t.f()
		}
	}

	for _, tk := range m.tickers {
		if tk.stopped() || tk.next.After(target) {
			continue
		}
		if fire == nil || tk.next.Before(best) {
			at := tk.next
			best = at
			fire = func() {
				m.mu.Lock()
				tk.next = tk.next.Add(tk.period)
				m.mu.Unlock()
				tk.deliver(at)
			}
		}
	}
	return best, fire
}

func (m *Manual) removeTimer(t *manualTimer) bool {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

type manualTicker struct {
	c        chan time.Time
	done     chan struct{}
	stopOnce sync.Once
	period   time.Duration
	next     time.Time
}

func (t *manualTicker) C() <-chan time.Time {
	return t.c
}

func (t *manualTicker) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
}

func (t *manualTicker) stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *manualTicker) deliver(at time.Time) {
	select {
	case t.c <- at:
	case <-t.done:
	}
}

type manualTimer struct {
	clock *Manual
	at    time.Time
	f     func()
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.removeTimer(t)
}
