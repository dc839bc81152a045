package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualTimersFireInOrder(t *testing.T) {
	c := NewManual(epoch)

	var order []int
	c.AfterFunc(300*time.Millisecond, func() { order = append(order, 3) })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, 1) })
	c.AfterFunc(200*time.Millisecond, func() { order = append(order, 2) })

	c.Advance(250 * time.Millisecond)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("after 250ms fired %v, want [1 2]", order)
	}
	if got := c.Now().Sub(epoch); got != 250*time.Millisecond {
		t.Errorf("Now advanced by %v, want 250ms", got)
	}

	c.Advance(100 * time.Millisecond)
	if len(order) != 3 || order[2] != 3 {
		t.Fatalf("after 350ms fired %v, want [1 2 3]", order)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}

func TestManualTimerStop(t *testing.T) {
	c := NewManual(epoch)

	fired := false
	timer := c.AfterFunc(100*time.Millisecond, func() { fired = true })
	if !timer.Stop() {
		t.Fatal("Stop on a pending timer returned false")
	}
	if timer.Stop() {
		t.Error("second Stop returned true")
	}

	c.Advance(time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestManualTickerDeliversEveryPeriod(t *testing.T) {
	c := NewManual(epoch)
	ticker := c.NewTicker(10 * time.Millisecond)

	got := make(chan time.Time, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			got <- <-ticker.C()
		}
		ticker.Stop()
	}()

	c.Advance(50 * time.Millisecond)
	<-done

	for i := 1; i <= 5; i++ {
		at := <-got
		if want := epoch.Add(time.Duration(i) * 10 * time.Millisecond); !at.Equal(want) {
			t.Errorf("tick %d at %v, want %v", i, at, want)
		}
	}

	// A stopped ticker must not block Advance.
	c.Advance(time.Second)
}

func TestFrameInterval(t *testing.T) {
	tests := []struct {
		fps  int
		want time.Duration
	}{
		{60, time.Second / 60},
		{30, time.Second / 30},
		{0, time.Second / FrameRate},
		{-5, time.Second / FrameRate},
	}
	for _, tt := range tests {
		if got := FrameInterval(tt.fps); got != tt.want {
			t.Errorf("FrameInterval(%d) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}
