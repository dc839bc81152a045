package animation

import (
	"context"
	"sync"
	"sync/atomic"

	"hue-beat/clock"
	"hue-beat/debug"
)

// Loop drives an Animator from a clock ticker and publishes each frame
type Loop struct {
	clock    clock.Clock
	animator *Animator
	fps      int

	current atomic.Pointer[Snapshot]

	mu        sync.Mutex
	listeners []func(Snapshot)
}

// NewLoop creates a frame loop at fps (clock.FrameRate when <= 0)
func NewLoop(c clock.Clock, a *Animator, fps int) *Loop {
	if fps <= 0 {
		fps = clock.FrameRate
	}
	l := &Loop{clock: c, animator: a, fps: fps}
	snap := a.Snapshot()
	l.current.Store(&snap)
	return l
}

// OnFrame registers fn to run on the loop goroutine after each frame
func (l *Loop) OnFrame(fn func(Snapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Snapshot returns the most recently published frame
func (l *Loop) Snapshot() Snapshot {
	return *l.current.Load()
}

// Run ticks until ctx is done. No frame is produced once ctx is
// cancelled, and Run returns only after the last frame's listeners ran.
func (l *Loop) Run(ctx context.Context) {
	ticker := l.clock.NewTicker(clock.FrameInterval(l.fps))
	defer ticker.Stop()

	debug.Log("anim", "frame loop started at %d fps", l.fps)
	defer debug.Log("anim", "frame loop stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			snap := l.animator.Tick(now)
			l.current.Store(&snap)

			l.mu.Lock()
			listeners := l.listeners
			l.mu.Unlock()
			for _, fn := range listeners {
				fn(snap)
			}
			debug.LogEvery(l.fps*10, "anim", "hue=%.1f light=%.0f steps=%d", snap.Hue, snap.Lightness, snap.Steps)
		}
	}
}
