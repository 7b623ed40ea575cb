package harness

import (
	"fmt"
	"iter"
	"time"
)

// abort unwinds a suspended body whose invocation was stopped.
type abort struct{}

// Invocation is one body execution that can span several scheduler ticks. The body runs as a
// coroutine: it only executes while Resume is on the stack, so test code never runs concurrently
// with the caller.
type Invocation struct {
	t       *T
	next    func() (Wait, bool)
	stop    func()
	wait    Wait
	done    bool
	aborted bool
}

// Invoke prepares body for execution with t. Nothing runs until the first Resume.
func Invoke(t *T, body Body) *Invocation {
	inv := &Invocation{t: t}
	seq := func(yield func(Wait) bool) {
		t.yield = yield
		defer func() {
			t.yield = nil
			if r := recover(); r != nil {
				inv.recovered(r)
			}
		}()
		body(t)
	}
	inv.next, inv.stop = iter.Pull(iter.Seq[Wait](seq))
	return inv
}

func (inv *Invocation) recovered(r any) {
	switch v := r.(type) {
	case failNow:
	case abort:
		inv.aborted = true
	case error:
		inv.t.recordError(fmt.Errorf("panic: %w", v))
	default:
		inv.t.recordError(fmt.Errorf("panic: %v", v))
	}
}

// Ready reports whether the body should be resumed at the given time and frame.
func (inv *Invocation) Ready(now time.Time, frame uint64) bool {
	if inv.done || inv.wait == nil {
		return true
	}
	return inv.t.expired(now) || inv.wait.Ready(now, frame)
}

// Resume runs the body until it waits again or returns. It reports whether the body is done.
func (inv *Invocation) Resume() bool {
	if inv.done {
		return true
	}
	w, ok := inv.next()
	if !ok {
		inv.done = true
		inv.wait = nil
		inv.stop()
		return true
	}
	inv.wait = w
	return false
}

// Abort cancels a suspended body. The body unwinds from its pending wait without running further
// test code past it.
func (inv *Invocation) Abort() {
	if inv.done {
		return
	}
	inv.stop()
	inv.done = true
	inv.aborted = true
	inv.wait = nil
}

// Done reports whether the body has returned or was aborted.
func (inv *Invocation) Done() bool {
	return inv.done
}

// Aborted reports whether the body was cancelled before it finished.
func (inv *Invocation) Aborted() bool {
	return inv.aborted
}

// T returns the test handle the body runs with.
func (inv *Invocation) T() *T {
	return inv.t
}
