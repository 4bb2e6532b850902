package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// Func is the wrapped operation: an arbitrary asynchronous (or synchronous)
// operation accepting one argument value (callers bundle multiple logical
// arguments into their own struct, the idiomatic Go equivalent of a variadic
// argument list) and returning a result or an error.
type Func[A, R any] func(ctx context.Context, args A) (R, error)

// Controller is the public surface of every rate-limited callable: the Go
// realization of spec's "Rate-Limited Callable" contract.
type Controller[A, R any] interface {
	// Invoke schedules or performs an execution per the wrapper's policy,
	// returning a Future for the result. A leading-edge execution runs the
	// wrapped operation on the calling goroutine, so Invoke returns only
	// after it completes, with an already-settled Future; a call that
	// schedules or joins a trailing slot returns without waiting for it.
	Invoke(args A) Future[R]

	// Cancel cancels any armed timer and rejects the outstanding pending
	// Future (if any) with an *AbortError-compatible *CancelledError. It is
	// idempotent.
	Cancel()

	// Flush immediately executes the wrapped operation with the most recent
	// unconsumed arguments, if any (a throttle with trailing enabled keeps
	// the leading edge's arguments for this), settles any pending Future
	// with that result and returns it. With no such arguments, or once
	// aborted, it returns the last known result without executing.
	Flush() Future[R]

	// IsPending reports whether a pending result Future is outstanding for
	// callers awaiting an execution that has not yet happened.
	IsPending() bool
}

// Options configures a throttle or debounce wrapper. The zero value is
// valid; precision-specific defaults for Leading/Trailing are applied by
// the constructor, following the documented per-constructor defaults.
type Options struct {
	// Leading controls whether an execution occurs at the start of a
	// window/burst. Throttle defaults this true; debounce defaults it
	// false.
	Leading *bool

	// Trailing controls whether an execution occurs at the end of a
	// window/burst. Both policies default this true.
	Trailing *bool

	// MaxWait, if positive, forces an execution within this many ms of the
	// first suppressed call in an uninterrupted burst. The LowPrecision*
	// wrappers ignore it.
	MaxWait time.Duration

	// AbortSignal, if non-nil, preempts all pending/future scheduling once
	// fired.
	AbortSignal *AbortSignal

	// Context is the base context passed to every invocation of the
	// wrapped operation. Defaults to context.Background().
	Context context.Context

	// Precision selects the scheduling tier used by the Throttle/Debounce
	// dispatch functions. Ignored by the HighPrecision*/MediumPrecision*/
	// LowPrecision* constructors, which fix their own tier. Defaults to
	// PrecisionHigh.
	Precision Precision
}

// timeNow and timeAfterFunc are indirected for deterministic testing,
// following the same seam catrate.limiter uses for timeNow.
var (
	timeNow       = time.Now
	timeAfterFunc = time.AfterFunc
)

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// coarseTick is the granularity medium precision rounds the clock to,
// trading monotonic-clock overhead for a coarser but still monotonic-enough
// scheduling decision.
const coarseTick = 15 * time.Millisecond

func coarseNow() time.Time {
	return timeNow().Round(coarseTick)
}

// rateLimiter is the shared engine behind HighPrecisionThrottle,
// HighPrecisionDebounce, MediumPrecisionThrottle and MediumPrecisionDebounce:
// one state machine, parameterized by clock source and by policy (throttle
// vs debounce), per spec section 3.
type rateLimiter[A, R any] struct {
	fn    Func[A, R]
	clock func() time.Time
	ctx   context.Context

	wait             time.Duration
	maxWait          time.Duration
	hasMaxWait       bool
	leading          bool
	trailing         bool
	throttle         bool // policy: true = throttle, false = debounce
	signal           *AbortSignal
	unregisterSignal func()

	mu sync.Mutex

	timer       *time.Timer
	lastExec    time.Time // zero value = never
	haveArgs    bool
	lastArgs    A
	lastResult  R
	haveResult  bool
	pending     *settledFuture[R]
	burstFired  bool // throttle only: leading edge already fired this window
	abortedFlag bool
}

func newRateLimiter[A, R any](fn Func[A, R], wait time.Duration, throttle bool, opt *Options, defaultLeading bool) *rateLimiter[A, R] {
	if fn == nil {
		misconfigured("nil wrapped operation")
	}
	if wait <= 0 {
		misconfigured("wait must be positive, got %v", wait)
	}

	rl := &rateLimiter[A, R]{
		fn:       fn,
		clock:    timeNow,
		ctx:      context.Background(),
		wait:     wait,
		leading:  defaultLeading,
		trailing: true,
		throttle: throttle,
	}

	if opt != nil {
		rl.leading = boolOr(opt.Leading, defaultLeading)
		rl.trailing = boolOr(opt.Trailing, true)
		if opt.MaxWait > 0 {
			if opt.MaxWait < wait {
				misconfigured("maxWait (%v) must be >= wait (%v)", opt.MaxWait, wait)
			}
			rl.maxWait = opt.MaxWait
			rl.hasMaxWait = true
		}
		if opt.Context != nil {
			rl.ctx = opt.Context
		}
		if opt.AbortSignal != nil {
			rl.signal = opt.AbortSignal
		}
	}

	if rl.signal != nil {
		rl.unregisterSignal = rl.signal.OnAbort(func(reason any) {
			rl.onAbort(reason)
		})
	}

	return rl
}

func (rl *rateLimiter[A, R]) withCoarseClock() *rateLimiter[A, R] {
	rl.clock = coarseNow
	return rl
}

// elapsed returns max(0, now-lastExec), guarding against clock drift per
// spec section 9 ("neither scheme tolerates negative gaps").
func (rl *rateLimiter[A, R]) elapsed(now time.Time) time.Duration {
	if rl.lastExec.IsZero() {
		return 0
	}
	d := now.Sub(rl.lastExec)
	if d < 0 {
		return 0
	}
	return d
}

func (rl *rateLimiter[A, R]) onAbort(reason any) {
	rl.mu.Lock()
	rl.abortedFlag = true
	if rl.timer != nil {
		rl.timer.Stop()
		rl.timer = nil
	}
	pending := rl.pending
	rl.pending = nil
	rl.haveArgs = false
	rl.mu.Unlock()

	if pending != nil {
		var zero R
		pending.settle(zero, &AbortError{Reason: reason})
	}
}

func (rl *rateLimiter[A, R]) Invoke(args A) Future[R] {
	rl.mu.Lock()

	if rl.abortedFlag || (rl.signal != nil && rl.signal.Aborted()) {
		rl.abortedFlag = true
		reason := any(nil)
		if rl.signal != nil {
			reason = rl.signal.Reason()
		}
		rl.mu.Unlock()
		var zero R
		return readyFuture(zero, &AbortError{Reason: reason})
	}

	if rl.throttle {
		return rl.invokeThrottle(args)
	}
	return rl.invokeDebounce(args)
}

// invokeThrottle implements spec section 4.2. Caller holds rl.mu; it is
// released on every return path.
func (rl *rateLimiter[A, R]) invokeThrottle(args A) Future[R] {
	now := rl.clock()
	elapsed := rl.elapsed(now)

	if rl.leading && (rl.lastExec.IsZero() || elapsed >= rl.wait) {
		rl.lastExec = now
		rl.burstFired = true
		if rl.timer != nil {
			rl.timer.Stop()
			rl.timer = nil
		}
		// A prior call may have already joined a trailing slot before this
		// leading edge preempted it; settle it with this execution's result
		// rather than orphaning its callers.
		droppedPending := rl.pending
		rl.pending = nil

		if rl.trailing {
			rl.lastArgs = args
			rl.haveArgs = true
		} else {
			rl.haveArgs = false
		}
		rl.mu.Unlock()

		result, err := rl.fn(rl.ctx, args)
		rl.mu.Lock()
		if err == nil {
			rl.lastResult = result
			rl.haveResult = true
		}
		rl.mu.Unlock()
		if droppedPending != nil {
			droppedPending.settle(result, err)
		}
		return readyFuture(result, err)
	}

	if rl.trailing {
		rl.lastArgs = args
		rl.haveArgs = true
		if rl.timer != nil {
			rl.timer.Stop()
			rl.timer = nil
		}
		if rl.pending == nil {
			rl.pending = newFuture[R]()
		}
		pending := rl.pending

		delay := rl.wait
		if rl.hasMaxWait && elapsed > 0 {
			remaining := rl.maxWait - elapsed
			if remaining < delay {
				delay = remaining
			}
		}
		if delay < 0 {
			delay = 0
		}
		rl.timer = timeAfterFunc(delay, rl.fireThrottle)
		rl.mu.Unlock()
		return pending
	}

	result := rl.lastResult
	rl.mu.Unlock()
	return readyFuture(result, nil)
}

func (rl *rateLimiter[A, R]) fireThrottle() {
	rl.mu.Lock()
	rl.timer = nil
	pending := rl.pending
	rl.pending = nil

	if rl.abortedFlag {
		rl.mu.Unlock()
		return
	}

	if !rl.haveArgs {
		rl.mu.Unlock()
		if pending != nil {
			pending.settle(rl.lastResult, nil)
		}
		return
	}

	args := rl.lastArgs
	rl.haveArgs = false
	rl.lastExec = rl.clock()
	rl.burstFired = false
	rl.mu.Unlock()

	result, err := rl.fn(rl.ctx, args)

	rl.mu.Lock()
	if err == nil {
		rl.lastResult = result
		rl.haveResult = true
	}
	rl.mu.Unlock()

	if pending != nil {
		pending.settle(result, err)
	}
}

// invokeDebounce implements spec section 4.3. Caller holds rl.mu; it is
// released on every return path.
func (rl *rateLimiter[A, R]) invokeDebounce(args A) Future[R] {
	now := rl.clock()
	elapsed := rl.elapsed(now)

	if rl.timer != nil {
		rl.timer.Stop()
		rl.timer = nil
	}
	rl.lastArgs = args
	rl.haveArgs = true
	if rl.pending == nil {
		rl.pending = newFuture[R]()
	}
	pending := rl.pending

	if rl.leading && (rl.lastExec.IsZero() || elapsed >= rl.wait) {
		rl.lastExec = now
		rl.haveArgs = false
		rl.pending = nil
		rl.mu.Unlock()

		result, err := rl.fn(rl.ctx, args)
		rl.mu.Lock()
		if err == nil {
			rl.lastResult = result
			rl.haveResult = true
		}
		rl.mu.Unlock()

		pending.settle(result, err)
		return pending
	}

	if rl.trailing {
		delay := rl.wait
		if rl.hasMaxWait && elapsed > 0 {
			remaining := rl.maxWait - elapsed
			if remaining < delay {
				delay = remaining
			}
		}
		if delay < 0 {
			delay = 0
		}
		rl.timer = timeAfterFunc(delay, rl.fireDebounce)
	}
	rl.mu.Unlock()
	return pending
}

func (rl *rateLimiter[A, R]) fireDebounce() {
	rl.mu.Lock()
	rl.timer = nil
	pending := rl.pending
	rl.pending = nil

	if rl.abortedFlag {
		rl.mu.Unlock()
		return
	}

	if !rl.haveArgs {
		rl.mu.Unlock()
		if pending != nil {
			pending.settle(rl.lastResult, nil)
		}
		return
	}

	args := rl.lastArgs
	rl.haveArgs = false
	rl.lastExec = rl.clock()
	rl.mu.Unlock()

	result, err := rl.fn(rl.ctx, args)

	rl.mu.Lock()
	if err == nil {
		rl.lastResult = result
		rl.haveResult = true
	}
	rl.mu.Unlock()

	if pending != nil {
		pending.settle(result, err)
	}
}

func (rl *rateLimiter[A, R]) Cancel() {
	rl.mu.Lock()
	if rl.timer != nil {
		rl.timer.Stop()
		rl.timer = nil
	}
	pending := rl.pending
	rl.pending = nil
	if !rl.throttle {
		// Debounce clears lastArgs on cancel; throttle retains it so a
		// subsequent Flush can still execute.
		rl.haveArgs = false
	}
	rl.burstFired = false
	rl.mu.Unlock()

	if pending != nil {
		var zero R
		pending.settle(zero, &CancelledError{})
	}
}

func (rl *rateLimiter[A, R]) Flush() Future[R] {
	rl.mu.Lock()
	if rl.timer != nil {
		rl.timer.Stop()
		rl.timer = nil
	}

	if rl.abortedFlag || (rl.signal != nil && rl.signal.Aborted()) {
		pending := rl.pending
		rl.pending = nil
		result := rl.lastResult
		rl.mu.Unlock()
		if pending != nil {
			var zero R
			pending.settle(zero, &AbortError{})
		}
		return readyFuture(result, nil)
	}

	if !rl.haveArgs {
		pending := rl.pending
		rl.pending = nil
		result := rl.lastResult
		rl.mu.Unlock()
		if pending != nil {
			pending.settle(result, nil)
		}
		return readyFuture(result, nil)
	}

	args := rl.lastArgs
	rl.haveArgs = false
	pending := rl.pending
	rl.pending = nil
	rl.lastExec = rl.clock()
	rl.burstFired = true
	rl.mu.Unlock()

	result, err := rl.fn(rl.ctx, args)

	rl.mu.Lock()
	if err == nil {
		rl.lastResult = result
		rl.haveResult = true
	}
	rl.mu.Unlock()

	if pending != nil {
		pending.settle(result, err)
	}
	return readyFuture(result, err)
}

func (rl *rateLimiter[A, R]) IsPending() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.pending != nil
}
