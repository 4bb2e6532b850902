package ratelimiter

import (
	"context"
	"time"
)

// Precision selects the scheduling/clock tier used by Throttle and
// Debounce, per spec section 6.
type Precision int

const (
	// PrecisionHigh uses the monotonic runtime clock directly and returns a
	// full Controller with Cancel/Flush/IsPending and a settled Future per
	// invocation.
	PrecisionHigh Precision = iota

	// PrecisionMedium rounds the clock to coarseTick before making
	// scheduling decisions, trading a small amount of timing fidelity for
	// fewer distinct wakeups under heavy load. It returns the same
	// Controller surface as PrecisionHigh.
	PrecisionMedium

	// PrecisionLow names the fire-and-forget tier of LowPrecisionThrottle and
	// LowPrecisionDebounce: no Cancel/Flush/IsPending, no Future, operation
	// errors logged and swallowed. Intended for high-frequency,
	// fire-and-forget call sites (spec section 6). Throttle and Debounce do
	// not route to that tier; they treat PrecisionLow as PrecisionHigh.
	PrecisionLow
)

// Throttle constructs a throttled wrapper around fn, dispatching on
// opt.Precision (PrecisionHigh if opt is nil). It always returns a
// Controller: PrecisionMedium selects MediumPrecisionThrottle, and every
// other value, PrecisionLow included, selects HighPrecisionThrottle. The
// fire-and-forget tier is provided by LowPrecisionThrottle and ThrottleFast,
// not by Throttle.
func Throttle[A, R any](fn Func[A, R], wait time.Duration, opt *Options) Controller[A, R] {
	switch precisionOf(opt) {
	case PrecisionMedium:
		return MediumPrecisionThrottle(fn, wait, opt)
	default:
		return HighPrecisionThrottle(fn, wait, opt)
	}
}

// Debounce constructs a debounced wrapper around fn, dispatching on
// opt.Precision (PrecisionHigh if opt is nil). As with Throttle,
// PrecisionMedium selects MediumPrecisionDebounce and every other value,
// PrecisionLow included, selects HighPrecisionDebounce.
func Debounce[A, R any](fn Func[A, R], wait time.Duration, opt *Options) Controller[A, R] {
	switch precisionOf(opt) {
	case PrecisionMedium:
		return MediumPrecisionDebounce(fn, wait, opt)
	default:
		return HighPrecisionDebounce(fn, wait, opt)
	}
}

func precisionOf(opt *Options) Precision {
	if opt == nil {
		return PrecisionHigh
	}
	return opt.Precision
}

// HighPrecisionThrottle wraps fn with throttle policy (leading=true,
// trailing=true by default), using the monotonic clock.
func HighPrecisionThrottle[A, R any](fn Func[A, R], wait time.Duration, opt *Options) Controller[A, R] {
	return newRateLimiter[A, R](fn, wait, true, opt, true)
}

// HighPrecisionDebounce wraps fn with debounce policy (leading=false,
// trailing=true by default), using the monotonic clock.
func HighPrecisionDebounce[A, R any](fn Func[A, R], wait time.Duration, opt *Options) Controller[A, R] {
	return newRateLimiter[A, R](fn, wait, false, opt, false)
}

// MediumPrecisionThrottle is HighPrecisionThrottle with the clock rounded
// to coarseTick.
func MediumPrecisionThrottle[A, R any](fn Func[A, R], wait time.Duration, opt *Options) Controller[A, R] {
	return newRateLimiter[A, R](fn, wait, true, opt, true).withCoarseClock()
}

// MediumPrecisionDebounce is HighPrecisionDebounce with the clock rounded
// to coarseTick.
func MediumPrecisionDebounce[A, R any](fn Func[A, R], wait time.Duration, opt *Options) Controller[A, R] {
	return newRateLimiter[A, R](fn, wait, false, opt, false).withCoarseClock()
}

// LowPrecisionThrottle wraps fn with throttle policy, returning a
// FireAndForget: no Future, no Cancel/Flush/IsPending, operation errors
// logged and swallowed.
func LowPrecisionThrottle[A any](fn func(args A) error, wait time.Duration, opt *Options) FireAndForget[A] {
	return newFireAndForget[A](adaptFireAndForgetFunc(fn), wait, true, opt, true, `low-precision-throttle`)
}

// LowPrecisionDebounce wraps fn with debounce policy, returning a
// FireAndForget.
func LowPrecisionDebounce[A any](fn func(args A) error, wait time.Duration, opt *Options) FireAndForget[A] {
	return newFireAndForget[A](adaptFireAndForgetFunc(fn), wait, false, opt, false, `low-precision-debounce`)
}

// ThrottleFast is an alias for LowPrecisionThrottle, named to mirror
// spec's "fast" precision-tier vocabulary.
func ThrottleFast[A any](fn func(args A) error, wait time.Duration, opt *Options) FireAndForget[A] {
	return LowPrecisionThrottle(fn, wait, opt)
}

// DebounceFast is an alias for LowPrecisionDebounce.
func DebounceFast[A any](fn func(args A) error, wait time.Duration, opt *Options) FireAndForget[A] {
	return LowPrecisionDebounce(fn, wait, opt)
}

func adaptFireAndForgetFunc[A any](fn func(args A) error) fireAndForgetFunc[A] {
	return func(_ context.Context, args A) error {
		return fn(args)
	}
}
