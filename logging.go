package ratelimiter

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// defaultLogger is used by the low-precision tiers (which swallow operation
// failures, having no result channel to propagate them through) and by
// BatchThrottle (which is lossy-on-error by design) to report what would
// otherwise be silently dropped.
var defaultLogger *logiface.Logger[*stumpy.Event] = stumpy.L.New(stumpy.L.WithStumpy())

func logSwallowedError(category string, err error) {
	defaultLogger.Err().
		Str(`category`, category).
		Err(err).
		Log(`ratelimiter: swallowed error`)
}
