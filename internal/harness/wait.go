package harness

import "time"

// Wait is a condition a suspended body is waiting on. The scheduler resumes the body on the
// first tick at which Ready returns true.
type Wait interface {
	Ready(now time.Time, frame uint64) bool
}

type frameWait struct {
	until uint64
}

func (w frameWait) Ready(_ time.Time, frame uint64) bool {
	return frame >= w.until
}

type timeWait struct {
	until time.Time
}

func (w timeWait) Ready(now time.Time, _ uint64) bool {
	return !now.Before(w.until)
}

type condWait struct {
	cond     func() bool
	deadline time.Time
}

func (w condWait) Ready(now time.Time, _ uint64) bool {
	if w.cond() {
		return true
	}
	return !w.deadline.IsZero() && !now.Before(w.deadline)
}

// WaitFrames suspends the body for n scheduler ticks.
func (t *T) WaitFrames(n int) {
	if n <= 0 {
		return
	}
	t.suspend(frameWait{until: t.frame() + uint64(n)})
}

// WaitFor suspends the body until d has elapsed.
func (t *T) WaitFor(d time.Duration) {
	if d <= 0 {
		return
	}
	t.suspend(timeWait{until: t.now().Add(d)})
}

// WaitUntil suspends the body until cond holds. With a positive timeout it gives up after the
// timeout and reports whether cond became true.
func (t *T) WaitUntil(cond func() bool, timeout time.Duration) bool {
	if cond() {
		return true
	}
	w := condWait{cond: cond}
	if timeout > 0 {
		w.deadline = t.now().Add(timeout)
	}
	t.suspend(w)
	return cond()
}

func (t *T) suspend(w Wait) {
	if t.yield == nil {
		// Not running inside an invocation; there is nobody to resume us.
		return
	}
	if !t.yield(w) {
		panic(abort{})
	}
	t.checkTimeout()
}

func (t *T) now() time.Time {
	if t.clock == nil {
		return time.Now()
	}
	return t.clock.Now()
}

func (t *T) frame() uint64 {
	if t.clock == nil {
		return 0
	}
	return t.clock.Frame()
}
