package clock

import "time"

// Display refresh rate used when nothing else is configured
const FrameRate = 60

// Clock supplies timestamps, periodic ticks and one-shot timers.
// Everything time-dependent takes a Clock so tests can drive it by hand.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	AfterFunc(d time.Duration, f func()) Timer
}

// Ticker delivers timestamps at a fixed period until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer is a pending AfterFunc callback
type Timer interface {
	Stop() bool
}

// FrameInterval converts a frame rate to a tick period
func FrameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = FrameRate
	}
	return time.Second / time.Duration(fps)
}

// System is the wall clock
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

func (System) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time {
	return s.t.C
}

func (s *systemTicker) Stop() {
	s.t.Stop()
}
