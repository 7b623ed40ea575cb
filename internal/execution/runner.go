package execution

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"testmgr/internal/discovery"
	"testmgr/internal/domain"
	"testmgr/internal/harness"
)

// Runner executes a single test: setup, body and teardown.
type Runner struct {
	scene harness.Scene
	log   logrus.FieldLogger
}

// NewRunner creates a new Runner. scene may be nil when the host has no scene to instantiate into.
func NewRunner(scene harness.Scene, log logrus.FieldLogger) *Runner {
	return &Runner{scene: scene, log: log}
}

// Execution is a test between setup and teardown. Its body may span several ticks.
type Execution struct {
	Entry *Entry

	t          *harness.T
	inv        *harness.Invocation
	started    time.Time
	startFrame uint64
}

// Begin runs setup for the entry's test and prepares its body. When setup fails the body is
// skipped and the execution is already done.
func (r *Runner) Begin(e *Entry, clock harness.Clock) *Execution {
	test := e.Test
	t := harness.New(harness.Options{
		Name:    test.ID.String(),
		Log:     r.log,
		Clock:   clock,
		Scene:   r.scene,
		Timeout: test.Timeout,
	})
	ex := &Execution{Entry: e, t: t, started: clock.Now(), startFrame: clock.Frame()}

	r.log.WithField("test", test.ID.String()).Debug("setup")
	if err := harness.RunSetup(t, test.Setup, test.Resource); err != nil {
		t.RecordError(fmt.Errorf("setup: %w", err))
		return ex
	}
	if test.Body == nil {
		t.RecordError(fmt.Errorf("%s: %w", test.ID, discovery.ErrNoBody))
		return ex
	}
	ex.inv = harness.Invoke(t, test.Body)
	return ex
}

// Ready reports whether the body wants to be resumed now.
func (ex *Execution) Ready(now time.Time, frame uint64) bool {
	return ex.inv == nil || ex.inv.Ready(now, frame)
}

// Step resumes the body and reports whether it is done.
func (ex *Execution) Step() bool {
	if ex.inv == nil {
		return true
	}
	return ex.inv.Resume()
}

// Abort cancels a suspended body.
func (ex *Execution) Abort() {
	if ex.inv != nil {
		ex.inv.Abort()
	}
}

// Finish runs teardown when requested and returns the record of the execution. The result is
// only meaningful when status is passed or failed.
func (r *Runner) Finish(ex *Execution, clock harness.Clock, teardown bool, status domain.Status) domain.TestRecord {
	test := ex.Entry.Test
	if teardown {
		r.log.WithField("test", test.ID.String()).Debug("teardown")
		if err := harness.RunTeardown(ex.t, test.Teardown); err != nil {
			if status == domain.StatusPassed || status == domain.StatusFailed {
				ex.t.RecordError(fmt.Errorf("teardown: %w", err))
			} else {
				r.log.WithError(err).WithField("test", test.ID.String()).Warn("teardown failed")
			}
		}
	}

	if status == domain.StatusPassed && ex.t.Failed() {
		status = domain.StatusFailed
	}
	rec := domain.TestRecord{
		ID:       test.ID.String(),
		Path:     test.Path,
		Status:   status,
		Duration: clock.Now().Sub(ex.started),
		Frames:   clock.Frame() - ex.startFrame,
	}
	if status == domain.StatusFailed {
		if err := ex.t.Err(); err != nil {
			rec.Failure = err.Error()
		}
	}
	return rec
}
