// Package harness is the API test bodies are written against. A body receives a *T, reports
// failures through it, and may suspend itself across scheduler ticks with the Wait helpers.
package harness

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"testmgr/internal/sim"
)

var (
	// ErrTimeout is recorded when a test is still waiting past its declared timeout.
	ErrTimeout = errors.New("test timed out")
	// ErrAborted is returned by a suspended body that was cancelled by Stop.
	ErrAborted = errors.New("test aborted")
)

// Clock exposes the scheduler's notion of time to waiting bodies.
type Clock interface {
	Now() time.Time
	Frame() uint64
}

// Scene is the part of the simulation setup and teardown hooks work with.
type Scene interface {
	Instantiate(res sim.Resource) (*sim.Object, error)
	Destroy(o *sim.Object)
}

// Body is a test body.
type Body func(t *T)

// SetupFunc prepares a test. It receives the test's resource, or the zero resource when none is attached.
type SetupFunc func(t *T, res sim.Resource) error

// TeardownFunc cleans up after a test. It runs even when setup or the body failed.
type TeardownFunc func(t *T) error

// failNow unwinds a body after FailNow.
type failNow struct{}

// T is handed to setup, body and teardown of one test execution.
type T struct {
	name    string
	log     logrus.FieldLogger
	clock   Clock
	scene   Scene
	timeout time.Duration
	started time.Time

	// Object is the instance created by the default setup, if any.
	Object *sim.Object

	failed   bool
	failures []string
	timedOut bool
	yield    func(Wait) bool
}

// Options configures a T.
type Options struct {
	Name    string
	Log     logrus.FieldLogger
	Clock   Clock
	Scene   Scene
	Timeout time.Duration
}

// New creates a T for one execution of a test.
func New(opts Options) *T {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	t := &T{
		name:    opts.Name,
		log:     log,
		clock:   opts.Clock,
		scene:   opts.Scene,
		timeout: opts.Timeout,
	}
	if t.clock != nil {
		t.started = t.clock.Now()
	}
	return t
}

// Name returns the identity of the running test.
func (t *T) Name() string {
	return t.name
}

// Scene returns the simulation scene, or nil when the host does not expose one.
func (t *T) Scene() Scene {
	return t.scene
}

// DetachScene drops the scene once the simulation is gone. Hooks running afterwards see a nil
// Scene and no Object.
func (t *T) DetachScene() {
	t.scene = nil
	t.Object = nil
}

// Logf logs a message attached to the running test.
func (t *T) Logf(format string, args ...any) {
	t.log.WithField("test", t.name).Infof(format, args...)
}

// Fail marks the test as failed and keeps running.
func (t *T) Fail() {
	t.failed = true
}

// Errorf records a failure and keeps running.
func (t *T) Errorf(format string, args ...any) {
	t.failed = true
	t.failures = append(t.failures, fmt.Sprintf(format, args...))
}

// FailNow marks the test as failed and stops the body.
func (t *T) FailNow() {
	t.failed = true
	panic(failNow{})
}

// Fatalf records a failure and stops the body.
func (t *T) Fatalf(format string, args ...any) {
	t.Errorf(format, args...)
	t.FailNow()
}

// Failed reports whether the test has failed.
func (t *T) Failed() bool {
	return t.failed
}

// TimedOut reports whether the test failed because it exceeded its timeout.
func (t *T) TimedOut() bool {
	return t.timedOut
}

// Err summarizes the recorded failures, or returns nil when the test has not failed.
func (t *T) Err() error {
	if !t.failed {
		return nil
	}
	if t.timedOut {
		if len(t.failures) > 0 {
			return fmt.Errorf("%w: %s", ErrTimeout, strings.Join(t.failures, "; "))
		}
		return ErrTimeout
	}
	if len(t.failures) == 0 {
		return errors.New("test failed")
	}
	return errors.New(strings.Join(t.failures, "; "))
}

// recordError marks the test as failed with err, e.g. from a hook or a recovered panic.
func (t *T) recordError(err error) {
	t.failed = true
	t.failures = append(t.failures, err.Error())
}

// RecordError marks the test as failed with err.
func (t *T) RecordError(err error) {
	if err == nil {
		return
	}
	t.recordError(err)
}

func (t *T) expired(now time.Time) bool {
	return t.timeout > 0 && t.clock != nil && now.Sub(t.started) >= t.timeout
}

func (t *T) checkTimeout() {
	if t.clock == nil {
		return
	}
	if t.expired(t.clock.Now()) {
		t.timedOut = true
		t.failed = true
		panic(failNow{})
	}
}
