package scan

import (
	"math/rand/v2"
	"sort"
	"testing"
	"time"
)

func TestThrottler_Admit(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	th := NewThrottler(150 * time.Millisecond)

	steps := []struct {
		offset time.Duration
		want   bool
	}{
		{0, true},
		{50 * time.Millisecond, false},
		{140 * time.Millisecond, false},
		{160 * time.Millisecond, true},
		{200 * time.Millisecond, false},
		{400 * time.Millisecond, true},
		{1 * time.Second, true},
	}

	for _, s := range steps {
		if got := th.Admit(base.Add(s.offset)); got != s.want {
			t.Errorf("Admit(+%v) = %v, want %v", s.offset, got, s.want)
		}
	}
}

func TestThrottler_RejectionDoesNotResetWindow(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	th := NewThrottler(100 * time.Millisecond)

	th.Admit(base)
	// A burst of rejected calls must not push the next admission back.
	for i := 1; i < 10; i++ {
		th.Admit(base.Add(time.Duration(i) * 9 * time.Millisecond))
	}
	if !th.Admit(base.Add(110 * time.Millisecond)) {
		t.Error("Admit() rejected the first call after the interval")
	}
}

func TestThrottler_ZeroIntervalAdmitsAll(t *testing.T) {
	th := NewThrottler(0)
	now := time.Now()
	for i := 0; i < 5; i++ {
		if !th.Admit(now) {
			t.Fatalf("Admit() #%d = false with zero interval", i)
		}
	}
}

// For any window of length L, admissions never exceed floor(L/interval)+1.
func TestThrottler_WindowProperty(t *testing.T) {
	const interval = 150 * time.Millisecond
	rng := rand.New(rand.NewPCG(1, 2))

	for trial := 0; trial < 20; trial++ {
		base := time.Unix(1_700_000_000, 0)
		th := NewThrottler(interval)

		offsets := make([]time.Duration, 300)
		for i := range offsets {
			offsets[i] = time.Duration(rng.IntN(5000)) * time.Millisecond
		}
		sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

		var admitted []time.Duration
		for _, o := range offsets {
			if th.Admit(base.Add(o)) {
				admitted = append(admitted, o)
			}
		}

		for _, window := range []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second} {
			limit := int(window/interval) + 1
			for i := range admitted {
				count := 0
				for j := i; j < len(admitted) && admitted[j]-admitted[i] < window; j++ {
					count++
				}
				if count > limit {
					t.Fatalf("trial %d: %d admissions within %v, limit %d", trial, count, window, limit)
				}
			}
		}
	}
}
