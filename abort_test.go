package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAbortController_Abort(t *testing.T) {
	c := NewAbortController()
	assert.False(t, c.Signal().Aborted())

	c.Abort(`reason`)
	assert.True(t, c.Signal().Aborted())
	assert.Equal(t, `reason`, c.Signal().Reason())

	// idempotent
	c.Abort(`other`)
	assert.Equal(t, `reason`, c.Signal().Reason())
}

func TestAbortController_Abort_nilReason(t *testing.T) {
	c := NewAbortController()
	c.Abort(nil)
	assert.True(t, c.Signal().Aborted())
	_, ok := c.Signal().Reason().(*AbortError)
	assert.True(t, ok)
}

func TestAbortSignal_OnAbort_firesOnceForAlreadyAborted(t *testing.T) {
	c := NewAbortController()
	c.Abort(`x`)

	var got any
	unreg := c.Signal().OnAbort(func(reason any) { got = reason })
	assert.Equal(t, `x`, got)
	unreg() // no-op, already fired
}

func TestAbortSignal_OnAbort_unregister(t *testing.T) {
	c := NewAbortController()
	fired := false
	unreg := c.Signal().OnAbort(func(any) { fired = true })
	unreg()
	c.Abort(`y`)
	assert.False(t, fired)
}

func TestCombineAbortSignals_firstWins(t *testing.T) {
	a := NewAbortController()
	b := NewAbortController()

	combined := CombineAbortSignals([]*AbortSignal{a.Signal(), b.Signal()})
	assert.False(t, combined.Aborted())

	a.Abort(`a-reason`)
	assert.True(t, combined.Aborted())
	assert.Equal(t, `a-reason`, combined.Reason())

	b.Abort(`b-reason`)
	assert.Equal(t, `a-reason`, combined.Reason())
}

func TestCombineAbortSignals_alreadyAborted(t *testing.T) {
	a := NewAbortController()
	a.Abort(`early`)

	combined := CombineAbortSignals([]*AbortSignal{a.Signal()})
	assert.True(t, combined.Aborted())
	assert.Equal(t, `early`, combined.Reason())
}

func TestCombineAbortSignals_empty(t *testing.T) {
	combined := CombineAbortSignals(nil)
	assert.False(t, combined.Aborted())
}

func TestNewTimeoutAbortController(t *testing.T) {
	old := timeAfterFunc
	defer func() { timeAfterFunc = old }()

	var fn func()
	timeAfterFunc = func(d time.Duration, f func()) *time.Timer {
		fn = f
		return time.NewTimer(time.Hour)
	}

	c := NewTimeoutAbortController(time.Second)
	assert.False(t, c.Signal().Aborted())

	fn()
	assert.True(t, c.Signal().Aborted())
}
