package harness

import (
	"fmt"

	"testmgr/internal/sim"
)

// DefaultSetup instantiates res into the scene and stores the instance on t.Object.
// Without a scene it does nothing.
func DefaultSetup(t *T, res sim.Resource) error {
	if t.scene == nil {
		return nil
	}
	obj, err := t.scene.Instantiate(res)
	if err != nil {
		return fmt.Errorf("instantiate %q: %w", res.Ref, err)
	}
	t.Object = obj
	return nil
}

// DefaultTeardown destroys the instance created by DefaultSetup.
func DefaultTeardown(t *T) error {
	if t.scene == nil || t.Object == nil {
		return nil
	}
	t.scene.Destroy(t.Object)
	t.Object = nil
	return nil
}

// RunSetup calls setup, falling back to DefaultSetup, and converts a panic into an error.
func RunSetup(t *T, setup SetupFunc, res sim.Resource) (err error) {
	if setup == nil {
		setup = DefaultSetup
	}
	defer func() {
		if r := recover(); r != nil {
			err = panicError("setup", r)
		}
	}()
	return setup(t, res)
}

// RunTeardown calls teardown, falling back to DefaultTeardown, and converts a panic into an error.
func RunTeardown(t *T, teardown TeardownFunc) (err error) {
	if teardown == nil {
		teardown = DefaultTeardown
	}
	defer func() {
		if r := recover(); r != nil {
			err = panicError("teardown", r)
		}
	}()
	return teardown(t)
}

func panicError(stage string, r any) error {
	if _, ok := r.(failNow); ok {
		return fmt.Errorf("%s failed", stage)
	}
	if e, ok := r.(error); ok {
		return fmt.Errorf("%s panic: %w", stage, e)
	}
	return fmt.Errorf("%s panic: %v", stage, r)
}
