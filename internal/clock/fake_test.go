package clock

import (
	"testing"
	"time"
)

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := NewFake(time.Unix(1000, 0))
	var order []string

	ticks := 0
	cancel := c.ScheduleRepeating(time.Second, func() {
		ticks++
		order = append(order, "tick")
	})
	c.AfterFunc(3*time.Second, func() { order = append(order, "once") })

	c.Advance(3 * time.Second)
	cancel()
	c.Advance(5 * time.Second)

	if ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks)
	}
	want := []string{"tick", "tick", "tick", "once"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
	if got := c.Now(); !got.Equal(time.Unix(1008, 0)) {
		t.Fatalf("expected clock at 1008, got %v", got.Unix())
	}
	if c.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", c.Pending())
	}
}

func TestFakeCallbackCanCancelItself(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	calls := 0
	var cancel CancelFunc
	cancel = c.ScheduleRepeating(time.Second, func() {
		calls++
		if calls == 2 {
			cancel()
		}
	})

	c.Advance(10 * time.Second)
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestFakeSetDoesNotFire(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	fired := false
	c.AfterFunc(time.Second, func() { fired = true })

	c.Set(time.Unix(60, 0))
	if fired {
		t.Fatalf("set must not fire callbacks")
	}
}
