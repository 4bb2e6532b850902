// Package ratelimiter implements asynchronous throttling and debouncing of an
// arbitrary operation, returning a rate-controlled surrogate that preserves
// Promise-like result consistency across concurrent callers.
//
// Two temporal policies are supported: throttle (execute at most once per
// window, optionally at both the leading and trailing edge) and debounce
// (execute once after a quiet period, optionally also at the leading edge).
// Three precision tiers trade timer resolution and result-consistency
// guarantees for overhead: high precision uses the monotonic clock and a
// full shared [Future] per scheduled execution; medium precision uses a
// coarser clock tick with the same Future semantics; low precision drops the
// Future machinery entirely and is fire-and-forget, intended for very hot
// paths (e.g. typing indicators) where even one allocation per call matters.
//
// A separate [BatchThrottle] aggregates high-frequency calls into
// fixed-size or time-bounded batches, handed to a caller-supplied batch
// function.
package ratelimiter
