package ratelimiter

import (
	"context"
	"sync"
)

// Future is a single-producer, multi-consumer one-shot result: the Go
// realization of spec's "shared pending-result promise" — all callers whose
// invocations join the same scheduled slot hold the same Future and observe
// the same resolved value or the same rejection (the Promise-consistency
// invariant).
type Future[R any] interface {
	// Await blocks until the Future settles or ctx is done, whichever comes
	// first. Multiple goroutines may Await the same Future concurrently and
	// all observe the same (value, err) once settled.
	Await(ctx context.Context) (R, error)

	// Done returns a channel closed exactly once, when the Future settles.
	Done() <-chan struct{}
}

// settledFuture implements Future, and also exposes the producer-side
// settle operation, kept unexported so only the engine that created it can
// settle it.
type settledFuture[R any] struct {
	done chan struct{}

	mu    sync.Mutex
	value R
	err   error
	set   bool
}

func newFuture[R any]() *settledFuture[R] {
	return &settledFuture[R]{done: make(chan struct{})}
}

// settle resolves or rejects the future. Only the first call has any
// effect; subsequent calls are no-ops, mirroring the "resolve/reject are
// paired and nulled together" invariant — once a slot settles, it cannot be
// re-settled.
func (f *settledFuture[R]) settle(value R, err error) {
	f.mu.Lock()
	if f.set {
		f.mu.Unlock()
		return
	}
	f.set = true
	f.value = value
	f.err = err
	f.mu.Unlock()
	close(f.done)
}

func (f *settledFuture[R]) Done() <-chan struct{} { return f.done }

func (f *settledFuture[R]) Await(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// readyFuture returns an already-settled Future wrapping value/err, used
// whenever a call resolves synchronously (e.g. returning lastResult without
// scheduling anything).
func readyFuture[R any](value R, err error) Future[R] {
	f := newFuture[R]()
	f.settle(value, err)
	return f
}
