package domain

import (
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of the last run of a test.
type Result int

const (
	None Result = iota
	Pass
	Fail
)

func (r Result) String() string {
	switch r {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Result) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "none":
		*r = None
	case "pass":
		*r = Pass
	case "fail":
		*r = Fail
	default:
		return fmt.Errorf("unknown result %q", string(b))
	}
	return nil
}

// IsZero lets encoders omit None.
func (r Result) IsZero() bool {
	return r == None
}

// Status of one test execution within a run.
type Status string

const (
	StatusPassed      Status = "passed"
	StatusFailed      Status = "failed"
	StatusStopped     Status = "stopped"     // aborted by Stop, result left untouched
	StatusInterrupted Status = "interrupted" // simulation ended underneath it, result left untouched
)

// Outcome of a whole run.
type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeStopped     Outcome = "stopped"
	OutcomeInterrupted Outcome = "interrupted"
)

// TestRecord describes one test execution within a run.
type TestRecord struct {
	ID       string        `json:"id"`
	Path     string        `json:"path"`
	Status   Status        `json:"status"`
	Failure  string        `json:"failure,omitempty"`
	Duration time.Duration `json:"duration"`
	Frames   uint64        `json:"frames"`
}

// RunMeta contains summary information about a run
type RunMeta struct {
	RunID       string  `json:"run_id"`
	Outcome     Outcome `json:"outcome"`
	TotalTests  int     `json:"total_tests"`
	PassedTests int     `json:"passed_tests"`
	FailedTests int     `json:"failed_tests"`
	Skipped     int     `json:"skipped"`
	Duration    string  `json:"duration"`
	DurationSec float64 `json:"duration_seconds"`
	StartedAt   string  `json:"started_at"`
	FinishedAt  string  `json:"finished_at"`
}

// RunReport is the complete output of a run.
type RunReport struct {
	Meta     RunMeta       `json:"meta"`
	Records  []TestRecord  `json:"records"`
	Failures []TestFailure `json:"failures"`
}

// Summarize fills the counters of Meta from Records. Skipped counts tests that were queued
// but never executed.
func (r *RunReport) Summarize(queued int) {
	r.Meta.TotalTests = queued
	r.Meta.PassedTests, r.Meta.FailedTests = 0, 0
	for _, rec := range r.Records {
		switch rec.Status {
		case StatusPassed:
			r.Meta.PassedTests++
		case StatusFailed:
			r.Meta.FailedTests++
		}
	}
	r.Meta.Skipped = queued - len(r.Records)
	if r.Meta.Skipped < 0 {
		r.Meta.Skipped = 0
	}
}
