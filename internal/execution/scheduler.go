package execution

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"testmgr/internal/domain"
	"testmgr/internal/sim"
)

// State of the scheduler.
type State int

const (
	Idle State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// Recorder is notified about run progress.
type Recorder interface {
	RunStarted(runID string, queued int)
	TestFinished(rec domain.TestRecord)
}

// ReportSink receives the report of every run when it ends.
type ReportSink interface {
	Report(report domain.RunReport) error
}

// Scheduler runs queued tests one at a time, advancing one step per Tick.
type Scheduler struct {
	host   sim.Host
	runner *Runner
	queue  *Queue
	log    logrus.FieldLogger

	recorders []Recorder
	sinks     []ReportSink
	now       func() time.Time

	state    State
	paused   bool
	stopping bool
	entered  bool // the simulation was entered by this run
	observed bool // the simulation was seen active during this run
	frame    uint64

	current    *Execution
	runID      string
	runStarted time.Time
	queued     int
	report     domain.RunReport
	last       domain.RunReport
}

// NewScheduler creates a new Scheduler
func NewScheduler(host sim.Host, runner *Runner, queue *Queue, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		host:   host,
		runner: runner,
		queue:  queue,
		log:    log,
		now:    time.Now,
	}
}

// AddRecorder registers a recorder for run progress.
func (s *Scheduler) AddRecorder(r Recorder) {
	s.recorders = append(s.recorders, r)
}

// AddReportSink registers a destination for run reports.
func (s *Scheduler) AddReportSink(sink ReportSink) {
	s.sinks = append(s.sinks, sink)
}

// SetNow replaces the time source.
func (s *Scheduler) SetNow(now func() time.Time) {
	s.now = now
}

// Now implements harness.Clock.
func (s *Scheduler) Now() time.Time {
	return s.now()
}

// Frame implements harness.Clock. It counts ticks since the run started.
func (s *Scheduler) Frame() uint64 {
	return s.frame
}

// State returns the current state.
func (s *Scheduler) State() State {
	if s.state == Idle {
		return Idle
	}
	if s.paused {
		return Paused
	}
	return Running
}

// Running reports whether a run is in progress, paused or not.
func (s *Scheduler) Running() bool {
	return s.state != Idle
}

// Paused reports whether advancement is paused.
func (s *Scheduler) Paused() bool {
	return s.paused
}

// Queue returns the run queue.
func (s *Scheduler) Queue() *Queue {
	return s.queue
}

// Current returns the test in flight, if any.
func (s *Scheduler) Current() (*domain.Test, bool) {
	if s.current == nil {
		return nil, false
	}
	return s.current.Entry.Test, true
}

// RunID returns the identifier of the current or last run.
func (s *Scheduler) RunID() string {
	return s.runID
}

// Elapsed returns the time since the current run started.
func (s *Scheduler) Elapsed() time.Duration {
	if s.state == Idle {
		return 0
	}
	return s.now().Sub(s.runStarted)
}

// LastReport returns the report of the last finished run.
func (s *Scheduler) LastReport() domain.RunReport {
	return s.last
}

// Start queues the runnable tests, in the given order, and starts a run. It returns false
// without doing anything when a run is already in progress or nothing is runnable.
func (s *Scheduler) Start(tests []*domain.Test) bool {
	if s.state != Idle {
		return false
	}
	var runnable []*domain.Test
	for _, t := range tests {
		if t.Runnable() {
			runnable = append(runnable, t)
		}
	}
	if len(runnable) == 0 {
		return false
	}

	if !s.host.IsActive() {
		if err := s.host.Enter(); err != nil {
			s.log.WithError(err).Warn("could not enter the simulation")
			return false
		}
		s.entered = true
	}

	s.queue.Reset()
	for _, t := range runnable {
		s.queue.Push(t)
	}

	s.state = Running
	s.paused = false
	s.stopping = false
	s.observed = s.host.IsActive()
	s.frame = 0
	s.current = nil
	s.runID = uuid.NewString()
	s.runStarted = s.now()
	s.queued = len(runnable)
	s.report = domain.RunReport{Meta: domain.RunMeta{RunID: s.runID}}

	s.log.WithField("run_id", s.runID).Infof("starting run of %d tests", len(runnable))
	for _, r := range s.recorders {
		r.RunStarted(s.runID, len(runnable))
	}
	return true
}

// Pause stops advancement to the next test. A test already in flight keeps running.
func (s *Scheduler) Pause() {
	s.SetPaused(true)
}

// Resume lifts a pause.
func (s *Scheduler) Resume() {
	s.SetPaused(false)
}

// SetPaused sets the pause state. It has no effect while idle.
func (s *Scheduler) SetPaused(paused bool) {
	if s.state == Idle {
		return
	}
	s.paused = paused
}

// Stop empties the queue and ends the run at the next tick. A suspended test is aborted there,
// its teardown runs, and its result is left untouched.
func (s *Scheduler) Stop() {
	if s.state == Idle {
		return
	}
	s.stopping = true
	s.queue.Clear()
}

// Reset abandons any run without reporting it and empties the queue.
func (s *Scheduler) Reset() {
	if s.current != nil {
		s.current.Abort()
		s.current = nil
	}
	if s.entered && s.host.IsActive() {
		if err := s.host.Exit(); err != nil {
			s.log.WithError(err).Warn("could not exit the simulation")
		}
	}
	s.queue.Reset()
	s.state = Idle
	s.paused = false
	s.stopping = false
	s.entered = false
	s.observed = false
}

// Tick advances the run by one step.
func (s *Scheduler) Tick() {
	if s.state == Idle {
		return
	}
	s.frame++

	active := s.host.IsActive()
	if s.observed && !active {
		s.interrupt()
		return
	}
	if active {
		s.observed = true
	}

	if s.stopping {
		if s.current != nil {
			s.current.Abort()
			s.complete(domain.StatusStopped)
		}
		s.end(domain.OutcomeStopped)
		return
	}

	if s.current != nil {
		if s.current.Ready(s.now(), s.frame) && s.current.Step() {
			s.complete(domain.StatusPassed)
		}
	} else if !s.paused {
		if e, ok := s.queue.Pop(); ok {
			s.current = s.runner.Begin(e, s)
			if s.current.Step() {
				s.complete(domain.StatusPassed)
			}
		}
	}

	if s.current == nil && len(s.queue.pending) == 0 {
		s.end(domain.OutcomeCompleted)
	}
}

// complete tears the current test down and writes its result. Stopped tests keep their result.
func (s *Scheduler) complete(status domain.Status) {
	ex := s.current
	s.current = nil
	rec := s.runner.Finish(ex, s, true, status)
	test := ex.Entry.Test

	result := test.Result
	switch rec.Status {
	case domain.StatusPassed:
		result = domain.Pass
		test.SetResult(domain.Pass, "")
	case domain.StatusFailed:
		result = domain.Fail
		test.SetResult(domain.Fail, rec.Failure)
	}
	s.queue.Finish(result, rec.Status)
	s.record(rec, test.Source)

	log := s.log.WithFields(logrus.Fields{"run_id": s.runID, "test": rec.ID})
	switch rec.Status {
	case domain.StatusFailed:
		log.Warnf("failed: %s", rec.Failure)
	default:
		log.Infof("%s in %s", rec.Status, rec.Duration)
	}
}

// interrupt handles the simulation ending underneath a run. The in-flight test is abandoned and
// torn down without a scene, since its scene is gone.
func (s *Scheduler) interrupt() {
	s.log.WithField("run_id", s.runID).Warn("simulation stopped during the run")
	s.queue.Clear()
	if ex := s.current; ex != nil {
		s.current = nil
		ex.Abort()
		ex.t.DetachScene()
		rec := s.runner.Finish(ex, s, true, domain.StatusInterrupted)
		s.queue.Finish(ex.Entry.Test.Result, rec.Status)
		s.record(rec, "")
	}
	s.entered = false
	s.end(domain.OutcomeInterrupted)
}

func (s *Scheduler) record(rec domain.TestRecord, source string) {
	s.report.Records = append(s.report.Records, rec)
	if rec.Status == domain.StatusFailed {
		s.report.Failures = append(s.report.Failures, domain.FailureFrom(rec, source))
	}
	for _, r := range s.recorders {
		r.TestFinished(rec)
	}
}

// end returns to Idle, leaves the simulation if this run entered it and publishes the report.
func (s *Scheduler) end(outcome domain.Outcome) {
	s.queue.Clear()
	s.state = Idle
	s.paused = false
	s.stopping = false
	s.observed = false

	if s.entered {
		s.entered = false
		if s.host.IsActive() {
			if err := s.host.Exit(); err != nil {
				s.log.WithError(err).Warn("could not exit the simulation")
			}
		}
	}

	finished := s.now()
	elapsed := finished.Sub(s.runStarted)
	s.report.Meta.Outcome = outcome
	s.report.Meta.StartedAt = s.runStarted.Format(time.RFC3339)
	s.report.Meta.FinishedAt = finished.Format(time.RFC3339)
	s.report.Meta.Duration = elapsed.Round(time.Millisecond).String()
	s.report.Meta.DurationSec = elapsed.Seconds()
	s.report.Summarize(s.queued)
	s.last = s.report

	s.log.WithField("run_id", s.runID).Infof("run %s: %d passed, %d failed, %d skipped",
		outcome, s.last.Meta.PassedTests, s.last.Meta.FailedTests, s.last.Meta.Skipped)
	for _, sink := range s.sinks {
		if err := sink.Report(s.last); err != nil {
			s.log.WithError(err).Warn("could not publish run report")
		}
	}
}
