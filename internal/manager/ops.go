package manager

import (
	"testmgr/internal/domain"
	"testmgr/internal/sim"
)

// SelectAll selects every unlocked test.
func (c *Context) SelectAll() {
	c.tree.Select("")
}

// DeselectAll deselects every unlocked test.
func (c *Context) DeselectAll() {
	c.tree.Deselect("")
}

// ToggleAll presses the root checkbox.
func (c *Context) ToggleAll() {
	c.tree.Toggle("")
}

// Toggle presses the checkbox of the group at path.
func (c *Context) Toggle(path string) {
	c.tree.Toggle(path)
}

// ToggleTest flips the selection of one test. Locked tests don't change.
func (c *Context) ToggleTest(id string) bool {
	test, ok := c.Test(id)
	if !ok {
		return false
	}
	return test.SetSelected(!test.Selected)
}

// ToggleLock flips the lock of a group or, when target is not a group path, of the test with
// that identity. A group becomes locked unless every test in it already is.
func (c *Context) ToggleLock(target string) bool {
	if _, ok := c.tree.Get(target); ok {
		tests := c.tree.Tests(target)
		allLocked := len(tests) > 0
		for _, test := range tests {
			if !test.Locked {
				allLocked = false
				break
			}
		}
		c.tree.Lock(target, !allLocked)
		return true
	}
	test, ok := c.Test(target)
	if !ok {
		return false
	}
	test.Locked = !test.Locked
	return true
}

// ToggleExpanded folds or unfolds a group or, when target is not a group path, the details of
// the test with that identity.
func (c *Context) ToggleExpanded(target string) bool {
	if _, ok := c.tree.Get(target); ok {
		c.tree.ToggleExpanded(target)
		return true
	}
	test, ok := c.Test(target)
	if !ok {
		return false
	}
	test.Expanded = !test.Expanded
	return true
}

// SetResource sets the resource the default setup of a test instantiates.
func (c *Context) SetResource(id string, res sim.Resource) bool {
	test, ok := c.Test(id)
	if !ok {
		return false
	}
	test.Resource = res
	return true
}

// RunSelected starts a run of the selected unlocked tests in tree order. It returns false when
// a run is already in progress or nothing is runnable.
func (c *Context) RunSelected() bool {
	return c.scheduler.Start(c.tree.SelectedTests(""))
}

// Run starts a run of the given tests, in order.
func (c *Context) Run(tests []*domain.Test) bool {
	return c.scheduler.Start(tests)
}

// Stop ends the current run at the next tick.
func (c *Context) Stop() {
	c.scheduler.Stop()
}

// TogglePause pauses or resumes the current run.
func (c *Context) TogglePause() {
	c.scheduler.SetPaused(!c.scheduler.Paused())
}

// ResetSelected clears the results of the selected tests.
func (c *Context) ResetSelected() {
	for _, test := range c.tree.Tests("") {
		if test.Selected {
			test.Reset()
		}
	}
}

// ResetAll clears every result.
func (c *Context) ResetAll() {
	for _, test := range c.tree.Tests("") {
		test.Reset()
	}
}

// ResetTest clears the result of one test.
func (c *Context) ResetTest(id string) bool {
	test, ok := c.Test(id)
	if !ok {
		return false
	}
	test.Reset()
	return true
}

// ToggleDebug switches debug logging.
func (c *Context) ToggleDebug() {
	c.setDebug(!c.debug)
}

// ToggleWelcome shows or hides the welcome message.
func (c *Context) ToggleWelcome() {
	c.showWelcome = !c.showWelcome
}

// GoToEmptyScene replaces the scene with an empty one. It is refused while the simulation runs.
func (c *Context) GoToEmptyScene() error {
	if c.opts.Sim.IsActive() {
		return ErrSimulationActive
	}
	return c.opts.Sim.NewEmptyScene()
}

// CancelQueued removes a pending test from the current run.
func (c *Context) CancelQueued(id string) bool {
	tid, ok := domain.ParseTestID(id)
	if !ok {
		return false
	}
	return c.queue.Remove(tid)
}

// Update is the host tick. It steps the simulation while it is active and advances the run;
// with no simulation and no run there is nothing to do.
func (c *Context) Update() {
	active := c.opts.Sim.IsActive()
	if !active && !c.scheduler.Running() {
		return
	}
	if active {
		c.opts.Sim.Step()
	}
	c.scheduler.Tick()
}

// OnPlayStateChanged reacts to the simulation being entered or left.
func (c *Context) OnPlayStateChanged(entered bool) {
	c.log.Debugf("simulation active: %v", entered)
	if entered && c.opts.Sim.IsEmpty() && c.opts.OnFocus != nil {
		c.opts.OnFocus()
	}
}
