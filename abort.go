package ratelimiter

import (
	"sync"
	"time"
)

// AbortSignal communicates cancellation to an asynchronous operation,
// following the shape of the W3C DOM AbortController/AbortSignal pair. It is
// safe for concurrent use.
type AbortSignal struct {
	mu       sync.Mutex
	aborted  bool
	reason   any
	handlers map[int]func(reason any)
	nextID   int
}

func newAbortSignal() *AbortSignal {
	return &AbortSignal{handlers: make(map[int]func(reason any))}
}

// Aborted reports whether the signal has fired.
func (s *AbortSignal) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Reason returns the abort reason, or nil if not yet aborted.
func (s *AbortSignal) Reason() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// OnAbort registers a callback invoked once the signal aborts, or
// immediately (synchronously) if it is already aborted. It returns an
// unregister function; calling it after the handler has already fired, or
// more than once, is a no-op. Exactly-once deregistration avoids the leak
// that an unremovable listener list would cause on a long-lived signal.
func (s *AbortSignal) OnAbort(handler func(reason any)) (unregister func()) {
	if handler == nil {
		return func() {}
	}

	s.mu.Lock()
	if s.aborted {
		reason := s.reason
		s.mu.Unlock()
		handler(reason)
		return func() {}
	}

	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

func (s *AbortSignal) abort(reason any) {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	s.reason = reason
	handlers := make([]func(reason any), 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.handlers = nil
	s.mu.Unlock()

	for _, h := range handlers {
		h(reason)
	}
}

// AbortController owns an AbortSignal and can fire it.
type AbortController struct {
	signal *AbortSignal
}

// NewAbortController returns a controller with a fresh, unfired signal.
func NewAbortController() *AbortController {
	return &AbortController{signal: newAbortSignal()}
}

// Signal returns the controller's AbortSignal. Always the same value.
func (c *AbortController) Signal() *AbortSignal { return c.signal }

// Abort fires the signal with the given reason. If reason is nil, an
// *AbortError with no Reason is used. Idempotent: a second call is a no-op.
func (c *AbortController) Abort(reason any) {
	if reason == nil {
		reason = &AbortError{}
	}
	c.signal.abort(reason)
}

// NewTimeoutAbortController returns a controller whose signal fires
// automatically after timeout elapses, with an *AbortError reason. The
// caller may still Abort it early.
func NewTimeoutAbortController(timeout time.Duration) *AbortController {
	c := NewAbortController()
	timer := timeAfterFunc(timeout, func() {
		c.Abort(&AbortError{Reason: "timeout"})
	})
	c.signal.OnAbort(func(any) { timer.Stop() })
	return c
}

// CombineAbortSignals returns a signal that fires as soon as any of the
// given signals fires, carrying that signal's reason. Already-aborted
// inputs short-circuit: the returned signal is returned already fired. A
// nil or empty input never fires. Listeners registered on the source
// signals deregister themselves once the combinator has fired, so a
// long-lived source signal does not retain a combinator that is otherwise
// unreferenced.
func CombineAbortSignals(signals []*AbortSignal) *AbortSignal {
	combined := newAbortSignal()
	if len(signals) == 0 {
		return combined
	}

	for _, s := range signals {
		if s != nil && s.Aborted() {
			combined.abort(s.Reason())
			return combined
		}
	}

	var once sync.Once
	var unregisters []func()
	var mu sync.Mutex
	for _, s := range signals {
		if s == nil {
			continue
		}
		s := s
		unreg := s.OnAbort(func(reason any) {
			once.Do(func() {
				combined.abort(reason)
				mu.Lock()
				defer mu.Unlock()
				for _, u := range unregisters {
					u()
				}
			})
		})
		mu.Lock()
		unregisters = append(unregisters, unreg)
		mu.Unlock()
	}

	return combined
}
