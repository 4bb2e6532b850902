package ratelimiter

import (
	"context"
	"sync"
	"time"

	"github.com/joeycumines/go-ratelimiter/internal/ring"
)

// BatchProcessor handles one flushed batch of jobs. Any error it returns is
// logged and swallowed: batching is eager and lossy-on-error by design, per
// spec section 4.6 — there is no per-job result channel to propagate a
// failure through, and no retry.
type BatchProcessor[Job any] func(ctx context.Context, jobs []Job) error

// BatchThrottleConfig configures a BatchThrottle. A nil config, or zero
// fields within one, take the documented defaults, following the same
// nil-is-valid convention as microbatch.BatcherConfig.
type BatchThrottleConfig struct {
	// BatchSize is the maximum number of jobs per batch before an eager
	// flush. Defaults to 10 if zero.
	BatchSize int

	// MaxWait bounds how long a job may sit in the buffer before a flush is
	// forced even if BatchSize hasn't been reached. Defaults to 3*Wait if
	// zero. Wait is the per-debounce-style rearm delay used when the buffer
	// is non-empty but below BatchSize.
	MaxWait time.Duration

	// Context is the base context passed to every BatchProcessor call.
	// Defaults to context.Background().
	Context context.Context
}

// BatchThrottle aggregates high-frequency calls into fixed-size or
// time-bounded batches, handed to a BatchProcessor, per spec section 4.6.
type BatchThrottle[Job any] struct {
	processor BatchProcessor[Job]
	wait      time.Duration
	batchSize int
	maxWait   time.Duration
	ctx       context.Context

	mu               sync.Mutex
	buf              *ring.Buffer[Job]
	timer            *time.Timer
	firstEnqueueTime time.Time
}

// NewBatchThrottle constructs a BatchThrottle. It panics if wait <= 0,
// batchSize < 1, or maxWait < wait (all MisuseConfiguration per spec
// section 7), checked at construction rather than at call time.
func NewBatchThrottle[Job any](processor BatchProcessor[Job], wait time.Duration, config *BatchThrottleConfig) *BatchThrottle[Job] {
	if processor == nil {
		misconfigured("nil batch processor")
	}
	if wait <= 0 {
		misconfigured("wait must be positive, got %v", wait)
	}

	bt := &BatchThrottle[Job]{
		processor: processor,
		wait:      wait,
		batchSize: 10,
		maxWait:   3 * wait,
		ctx:       context.Background(),
		buf:       ring.New[Job](16),
	}

	if config != nil {
		if config.BatchSize != 0 {
			bt.batchSize = config.BatchSize
		}
		if config.MaxWait != 0 {
			bt.maxWait = config.MaxWait
		}
		if config.Context != nil {
			bt.ctx = config.Context
		}
	}

	if bt.batchSize < 1 {
		misconfigured("batchSize must be >= 1, got %d", bt.batchSize)
	}
	if bt.maxWait < bt.wait {
		misconfigured("maxWait (%v) must be >= wait (%v)", bt.maxWait, bt.wait)
	}

	return bt
}

// Invoke appends args to the pending batch, flushing immediately if the
// batch has reached BatchSize or the oldest buffered job has waited
// MaxWait, and otherwise resetting the flush timer to wait from this
// enqueue (a quiet-period reset), clamped so the batch still flushes no
// later than MaxWait after the first buffered job.
func (bt *BatchThrottle[Job]) Invoke(args Job) {
	bt.mu.Lock()

	now := timeNow()
	if bt.buf.Len() == 0 {
		bt.firstEnqueueTime = now
	}
	bt.buf.Push(args)

	elapsed := now.Sub(bt.firstEnqueueTime)
	if bt.buf.Len() >= bt.batchSize || elapsed >= bt.maxWait {
		if bt.timer != nil {
			bt.timer.Stop()
			bt.timer = nil
		}
		bt.flushLocked()
		return
	}

	if bt.timer != nil {
		bt.timer.Stop()
	}
	delay := bt.wait
	if remaining := bt.maxWait - elapsed; remaining < delay {
		delay = remaining
	}
	bt.timer = timeAfterFunc(delay, bt.onTimer)
	bt.mu.Unlock()
}

func (bt *BatchThrottle[Job]) onTimer() {
	bt.mu.Lock()
	bt.timer = nil
	bt.flushLocked()
}

// flushLocked drains the buffer and invokes the processor. Caller must hold
// bt.mu; flushLocked releases it before returning.
func (bt *BatchThrottle[Job]) flushLocked() {
	if bt.buf.Len() == 0 {
		bt.mu.Unlock()
		return
	}
	jobs := bt.buf.Slice()
	bt.buf.Reset()
	bt.firstEnqueueTime = time.Time{}
	bt.mu.Unlock()

	if err := bt.processor(bt.ctx, jobs); err != nil {
		logSwallowedError(`batch-throttle`, err)
	}
}

// Flush immediately performs any pending batch, regardless of size or
// elapsed time.
func (bt *BatchThrottle[Job]) Flush() {
	bt.mu.Lock()
	if bt.timer != nil {
		bt.timer.Stop()
		bt.timer = nil
	}
	bt.flushLocked()
}
