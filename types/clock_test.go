package types

import (
	"sync"
	"testing"
	"time"
)

func TestClockMonotonicWhenWallClockStalls(t *testing.T) {
	fixed := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	c := NewClock(func() time.Time { return fixed }, time.Microsecond)

	first := c.Now()
	second := c.Now()
	if !second.After(first) {
		t.Fatalf("expected %v to be after %v", second, first)
	}
	if second.Sub(first) != time.Microsecond {
		t.Errorf("expected one resolution step, got %v", second.Sub(first))
	}
}

func TestClockMonotonicWhenWallClockStepsBack(t *testing.T) {
	base := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	readings := []time.Time{base, base.Add(-time.Hour), base.Add(time.Second)}
	var i int
	c := NewClock(func() time.Time {
		r := readings[i]
		i++
		return r
	}, 0)

	a, b, d := c.Now(), c.Now(), c.Now()
	if !b.After(a) || !d.After(b) {
		t.Fatalf("timestamps not increasing: %v %v %v", a, b, d)
	}
	if !d.Equal(base.Add(time.Second)) {
		t.Errorf("expected clock to follow the wall clock again, got %v", d)
	}
}

func TestClockTruncatesToResolution(t *testing.T) {
	c := NewClock(func() time.Time {
		return time.Date(2024, 1, 5, 9, 0, 0, 1234567, time.UTC)
	}, time.Millisecond)

	if got := c.Now().Nanosecond(); got != 1000000 {
		t.Errorf("expected millisecond truncation, got %dns", got)
	}
}

func TestClockConcurrentUnique(t *testing.T) {
	c := NewClock(nil, 0)

	var (
		mu   sync.Mutex
		seen = make(map[time.Time]bool)
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				ts := c.Now()
				mu.Lock()
				if seen[ts] {
					t.Errorf("duplicate timestamp %v", ts)
				}
				seen[ts] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}
