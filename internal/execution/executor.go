package execution

import (
	"context"
	"errors"

	"testmgr/internal/domain"
)

// ErrNothingToRun is returned when none of the given tests is runnable or a run is in progress.
var ErrNothingToRun = errors.New("no runnable tests")

// Executor runs tests to completion and returns the run report.
type Executor interface {
	Execute(ctx context.Context, tests []*domain.Test) (domain.RunReport, error)
}
