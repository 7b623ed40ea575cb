package harness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testmgr/internal/sim"
)

type fakeClock struct {
	now   time.Time
	frame uint64
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Frame() uint64  { return c.frame }

func (c *fakeClock) tick(d time.Duration) {
	c.frame++
	c.now = c.now.Add(d)
}

// drive resumes inv once per tick until it finishes, returning the number of ticks used.
func drive(t *testing.T, inv *Invocation, clock *fakeClock, limit int) int {
	t.Helper()
	for i := 0; i < limit; i++ {
		if inv.Ready(clock.Now(), clock.Frame()) && inv.Resume() {
			return i + 1
		}
		clock.tick(10 * time.Millisecond)
	}
	t.Fatalf("invocation did not finish within %d ticks", limit)
	return limit
}

func TestInvocation_SingleTick(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	ht := New(Options{Name: "A.Pass", Clock: clock})
	ran := false
	inv := Invoke(ht, func(t *T) { ran = true })

	assert.False(t, ran, "body does not run before Resume")
	assert.Equal(t, 1, drive(t, inv, clock, 5))
	assert.True(t, ran)
	assert.False(t, ht.Failed())
	assert.NoError(t, ht.Err())
}

func TestInvocation_WaitFrames(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	ht := New(Options{Name: "A.Frames", Clock: clock})
	var steps []uint64
	inv := Invoke(ht, func(t *T) {
		steps = append(steps, clock.Frame())
		t.WaitFrames(3)
		steps = append(steps, clock.Frame())
	})

	drive(t, inv, clock, 10)
	assert.Equal(t, []uint64{0, 3}, steps)
	assert.True(t, inv.Done())
	assert.False(t, inv.Aborted())
}

func TestInvocation_WaitUntilAndFor(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	ht := New(Options{Name: "A.Until", Clock: clock})
	var reached bool
	inv := Invoke(ht, func(t *T) {
		t.WaitFor(25 * time.Millisecond)
		reached = t.WaitUntil(func() bool { return clock.Frame() >= 6 }, time.Second)
	})

	drive(t, inv, clock, 20)
	assert.True(t, reached)
	assert.GreaterOrEqual(t, clock.Frame(), uint64(6))
}

func TestInvocation_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    Body
		wantErr string
	}{
		{name: "errorf continues", body: func(t *T) { t.Errorf("bad %d", 1); t.Errorf("bad %d", 2) }, wantErr: "bad 1; bad 2"},
		{name: "fatalf stops", body: func(t *T) { t.Fatalf("stop"); t.Errorf("unreachable") }, wantErr: "stop"},
		{name: "panic value", body: func(t *T) { panic("boom") }, wantErr: "panic: boom"},
		{name: "panic error", body: func(t *T) { panic(errors.New("kaput")) }, wantErr: "panic: kaput"},
		{name: "panic after wait", body: func(t *T) { t.WaitFrames(1); panic("late") }, wantErr: "panic: late"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: time.Unix(0, 0)}
			ht := New(Options{Name: "A.Fail", Clock: clock})
			inv := Invoke(ht, tt.body)
			drive(t, inv, clock, 5)

			require.True(t, ht.Failed())
			assert.EqualError(t, ht.Err(), tt.wantErr)
		})
	}
}

func TestInvocation_Timeout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	ht := New(Options{Name: "A.Slow", Clock: clock, Timeout: 50 * time.Millisecond})
	after := false
	inv := Invoke(ht, func(t *T) {
		t.WaitUntil(func() bool { return false }, 0)
		after = true
	})

	drive(t, inv, clock, 20)
	assert.False(t, after)
	assert.True(t, ht.TimedOut())
	assert.ErrorIs(t, ht.Err(), ErrTimeout)
}

func TestInvocation_Abort(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	ht := New(Options{Name: "A.Long", Clock: clock})
	cleaned, after := false, false
	inv := Invoke(ht, func(t *T) {
		defer func() { cleaned = true }()
		t.WaitFrames(100)
		after = true
	})

	require.False(t, inv.Resume())
	inv.Abort()

	assert.True(t, inv.Done())
	assert.True(t, inv.Aborted())
	assert.True(t, cleaned, "deferred calls in the body run on abort")
	assert.False(t, after)
	assert.False(t, ht.Failed(), "abort does not fabricate a failure")
}

func TestDefaultHooks(t *testing.T) {
	s := sim.New()
	require.NoError(t, s.Enter())
	ht := New(Options{Name: "A.Prefab", Scene: s})

	require.NoError(t, RunSetup(ht, nil, sim.Resource{Ref: "Crate"}))
	require.NotNil(t, ht.Object)
	assert.Contains(t, s.Objects(), "Crate (Clone)")

	require.NoError(t, RunTeardown(ht, nil))
	assert.Nil(t, ht.Object)
	assert.NotContains(t, s.Objects(), "Crate (Clone)")
}

func TestRunSetup_InactiveSceneAndPanics(t *testing.T) {
	s := sim.New()
	ht := New(Options{Name: "A.Inactive", Scene: s})
	err := RunSetup(ht, nil, sim.Resource{})
	assert.ErrorIs(t, err, sim.ErrNotActive)

	err = RunSetup(ht, func(*T, sim.Resource) error { panic("setup boom") }, sim.Resource{})
	assert.EqualError(t, err, "setup panic: setup boom")

	err = RunTeardown(ht, func(t *T) error { t.FailNow(); return nil })
	assert.EqualError(t, err, "teardown failed")
}
