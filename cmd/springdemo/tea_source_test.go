package main

import (
	"testing"
	"time"
)

func TestTeaSource_FrameDelivery(t *testing.T) {
	s := newTeaSource(60)
	var deltas []float32
	base := time.Unix(100, 0)

	s.frame(base)
	if len(deltas) != 0 {
		t.Fatal("frame delivered while stopped")
	}

	s.Start(func(dt float32) { deltas = append(deltas, dt) })
	s.frame(base)
	s.frame(base.Add(20 * time.Millisecond))
	if len(deltas) != 2 {
		t.Fatalf("got %d frames, want 2", len(deltas))
	}
	if want := float32(s.interval.Seconds()); deltas[0] != want {
		t.Fatalf("first delta = %v, want the frame interval %v", deltas[0], want)
	}
	if deltas[1] < 0.0199 || deltas[1] > 0.0201 {
		t.Fatalf("second delta = %v, want 0.02", deltas[1])
	}

	s.Stop()
	s.frame(base.Add(40 * time.Millisecond))
	if len(deltas) != 2 {
		t.Fatal("frame delivered after Stop")
	}
}

func TestTeaSource_DispatchOrder(t *testing.T) {
	s := newTeaSource(60)
	var order []int

	s.Dispatch(func() {
		order = append(order, 1)
		s.Dispatch(func() { order = append(order, 3) })
	})
	s.Dispatch(func() { order = append(order, 2) })
	if len(order) != 0 {
		t.Fatal("dispatched function ran before a frame")
	}

	s.frame(time.Now())
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v, want [1 2 3]", order)
	}
}

func TestTeaSource_DispatchAfterClose(t *testing.T) {
	s := newTeaSource(60)
	queued := false
	s.Dispatch(func() { queued = true })

	s.close()
	if !queued {
		t.Fatal("close did not run queued functions")
	}

	inline := false
	s.Dispatch(func() { inline = true })
	if !inline {
		t.Fatal("Dispatch after close did not run inline")
	}
}

func TestTeaSource_SetTickRate(t *testing.T) {
	s := newTeaSource(0)
	if s.interval < 16*time.Millisecond || s.interval > 17*time.Millisecond {
		t.Fatalf("default interval = %v, want ~16.7ms", s.interval)
	}
	s.SetTickRate(120)
	if s.interval < 8*time.Millisecond || s.interval > 9*time.Millisecond {
		t.Fatalf("120fps interval = %v, want ~8.3ms", s.interval)
	}
}
