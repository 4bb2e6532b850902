package ratelimiter

import (
	"context"
	"testing"
	"time"
)

func TestThrottle_dispatchesByPrecision(t *testing.T) {
	fn := func(ctx context.Context, n int) (int, error) { return n, nil }

	for _, tc := range [...]struct {
		name      string
		precision Precision
	}{
		{`default (high)`, PrecisionHigh},
		{`medium`, PrecisionMedium},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := Throttle[int, int](fn, time.Minute, &Options{Precision: tc.precision})
			if c == nil {
				t.Fatal(`expected a non-nil Controller`)
			}
			f := c.Invoke(1)
			v, err := f.Await(context.Background())
			if err != nil || v != 1 {
				t.Fatalf(`got (%v, %v)`, v, err)
			}
		})
	}
}

func TestThrottle_nilOptionsDefaultsHighPrecision(t *testing.T) {
	fn := func(ctx context.Context, n int) (int, error) { return n * 2, nil }
	c := Throttle[int, int](fn, time.Minute, nil)
	f := c.Invoke(3)
	v, err := f.Await(context.Background())
	if err != nil || v != 6 {
		t.Fatalf(`got (%v, %v)`, v, err)
	}
}

func TestDebounce_dispatchesByPrecision(t *testing.T) {
	fn := func(ctx context.Context, n int) (int, error) { return n, nil }
	c := Debounce[int, int](fn, time.Minute, &Options{Precision: PrecisionMedium})

	if c.IsPending() {
		t.Fatal(`expected no pending execution before any call`)
	}
	c.Invoke(1)
	if !c.IsPending() {
		t.Fatal(`expected debounce's first call to arm a pending execution`)
	}
}

func TestLowPrecisionThrottle_returnsFireAndForget(t *testing.T) {
	done := make(chan struct{})
	f := LowPrecisionThrottle[int](func(n int) error {
		close(done)
		return nil
	}, time.Minute, nil)

	f.Invoke(1)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal(`expected the leading edge to execute`)
	}
}

func TestThrottleFast_isAliasOfLowPrecisionThrottle(t *testing.T) {
	done := make(chan struct{})
	f := ThrottleFast[int](func(n int) error {
		close(done)
		return nil
	}, time.Minute, nil)

	f.Invoke(1)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal(`expected the leading edge to execute`)
	}
}

func TestDebounceFast_suppressesIntermediateCalls(t *testing.T) {
	var calls int
	done := make(chan struct{})
	f := DebounceFast[int](func(n int) error {
		calls++
		close(done)
		return nil
	}, time.Minute, nil)

	ff, ok := f.(*fireAndForget[int])
	if !ok {
		t.Fatal(`expected concrete *fireAndForget[int]`)
	}

	f.Invoke(1)
	f.Invoke(2)

	ff.mu.Lock()
	fireFn := ff.fire
	ff.mu.Unlock()
	fireFn()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal(`expected the trailing edge to execute`)
	}
	if calls != 1 {
		t.Fatalf(`expected exactly one call, got %d`, calls)
	}
}
