package execution

import (
	"context"
	"time"

	"testmgr/internal/domain"
)

var _ Executor = (*Driver)(nil)

// Driver is the host loop for headless runs: it advances the host and ticks the scheduler at a
// fixed interval until the run is over.
type Driver struct {
	scheduler *Scheduler
	interval  time.Duration
	step      func()
}

// NewDriver creates a new Driver. A zero interval ticks as fast as possible.
func NewDriver(s *Scheduler, interval time.Duration) *Driver {
	return &Driver{scheduler: s, interval: interval}
}

// SetStep sets the function that advances the host before every tick, like stepping the
// simulation one frame. When set, it replaces the bare scheduler tick.
func (d *Driver) SetStep(step func()) {
	d.step = step
}

// Execute starts a run of tests and waits for it to finish.
func (d *Driver) Execute(ctx context.Context, tests []*domain.Test) (domain.RunReport, error) {
	if !d.scheduler.Start(tests) {
		return domain.RunReport{}, ErrNothingToRun
	}
	return d.Wait(ctx)
}

// Wait ticks until the scheduler is idle. When ctx is cancelled the run is stopped, the stop is
// carried out, and ctx's error is returned with the partial report.
func (d *Driver) Wait(ctx context.Context) (domain.RunReport, error) {
	var ticker *time.Ticker
	if d.interval > 0 {
		ticker = time.NewTicker(d.interval)
		defer ticker.Stop()
	}

	for d.scheduler.Running() {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return d.cancel(ctx)
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return d.cancel(ctx)
		}
		d.tick()
	}
	return d.scheduler.LastReport(), nil
}

func (d *Driver) tick() {
	if d.step != nil {
		d.step()
		return
	}
	d.scheduler.Tick()
}

func (d *Driver) cancel(ctx context.Context) (domain.RunReport, error) {
	d.scheduler.Stop()
	d.scheduler.Tick()
	return d.scheduler.LastReport(), ctx.Err()
}
