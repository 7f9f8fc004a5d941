package storybook

import (
	"testing"
	"time"
)

func TestManualScheduler(t *testing.T) {
	t.Run("runs in deadline order", func(t *testing.T) {
		s := NewManualScheduler()
		var got []int
		s.AfterFunc(30*time.Millisecond, func() { got = append(got, 3) })
		s.AfterFunc(10*time.Millisecond, func() { got = append(got, 1) })
		s.AfterFunc(10*time.Millisecond, func() { got = append(got, 2) })

		s.Advance(20 * time.Millisecond)
		if len(got) != 2 || got[0] != 1 || got[1] != 2 {
			t.Fatalf("after 20ms got %v", got)
		}
		s.Advance(10 * time.Millisecond)
		if len(got) != 3 || got[2] != 3 {
			t.Fatalf("after 30ms got %v", got)
		}
		if s.Now() != 30*time.Millisecond {
			t.Errorf("Now() = %v", s.Now())
		}
	})

	t.Run("stop prevents callback", func(t *testing.T) {
		s := NewManualScheduler()
		ran := false
		timer := s.AfterFunc(time.Millisecond, func() { ran = true })

		if !timer.Stop() {
			t.Error("first Stop() = false")
		}
		if timer.Stop() {
			t.Error("second Stop() = true")
		}
		s.Advance(time.Second)
		if ran {
			t.Error("stopped callback ran")
		}
	})

	t.Run("nested callbacks inside window", func(t *testing.T) {
		s := NewManualScheduler()
		count := 0
		s.AfterFunc(5*time.Millisecond, func() {
			count++
			s.AfterFunc(5*time.Millisecond, func() { count++ })
		})

		s.Advance(10 * time.Millisecond)
		if count != 2 {
			t.Errorf("count = %d, want 2", count)
		}
		if s.Pending() != 0 {
			t.Errorf("Pending() = %d", s.Pending())
		}
	})
}
