// Package suites holds the example tests shipped with testmgr. Register adds their bodies to a
// registry. The //testmgr:test directives above each method give them display names and source
// locations once the source scanner is merged in.
package suites

import (
	"fmt"
	"time"

	"testmgr/internal/discovery"
	"testmgr/internal/harness"
	"testmgr/internal/sim"
)

// Register adds every example test to r.
func Register(r *discovery.Registry) {
	var scene Scene
	r.Suite("Scene").Path("Examples/Scene").
		Add("ObjectInstantiated", scene.ObjectInstantiated).
		Add("CrateInstantiated", scene.CrateInstantiated, discovery.WithResource("Crate"))

	var timing Timing
	r.Suite("Timing").Path("Examples/Timing").
		Add("WaitsFrames", timing.WaitsFrames).
		Add("WaitsUntil", timing.WaitsUntil, discovery.WithTimeout(2*time.Second)).
		Add("WaitsFor", timing.WaitsFor)

	stack := &Stack{}
	r.Suite("Stack").Path("Examples/Scene/Stack").
		Setup(stack.Setup).
		Teardown(stack.Teardown).
		Add("Builds", stack.Builds)
}

// Scene checks what the default setup puts into the simulation.
type Scene struct{}

//testmgr:test name="Default object is instantiated"
func (Scene) ObjectInstantiated(t *harness.T) {
	if t.Object == nil {
		t.Fatalf("setup did not instantiate an object")
	}
	if !t.Object.Source.IsZero() {
		t.Errorf("got resource %q, want the default resource", t.Object.Source.Ref)
	}
}

//testmgr:test name="Crate is instantiated" resource=Crate
func (Scene) CrateInstantiated(t *harness.T) {
	if t.Object == nil {
		t.Fatalf("setup did not instantiate an object")
	}
	if want := "Crate (Clone)"; t.Object.Name != want {
		t.Errorf("got object %q, want %q", t.Object.Name, want)
	}
}

// Timing shows tests that span several ticks.
type Timing struct{}

//testmgr:test name="Waits three frames"
func (Timing) WaitsFrames(t *harness.T) {
	t.WaitFrames(3)
	t.Logf("resumed after three frames")
}

//testmgr:test name="Waits for a condition" timeout=2s
func (Timing) WaitsUntil(t *harness.T) {
	polls := 0
	if !t.WaitUntil(func() bool { polls++; return polls >= 3 }, time.Second) {
		t.Errorf("condition did not hold after %d polls", polls)
	}
}

//testmgr:test name="Waits for a duration"
func (Timing) WaitsFor(t *harness.T) {
	t.WaitFor(10 * time.Millisecond)
}

// Stack builds a small tower with its own setup and teardown.
type Stack struct {
	objects []*sim.Object
}

// Setup instantiates the blocks of the tower.
func (s *Stack) Setup(t *harness.T, _ sim.Resource) error {
	s.objects = s.objects[:0]
	for i := 0; i < 3; i++ {
		o, err := t.Scene().Instantiate(sim.Resource{Ref: fmt.Sprintf("Block%d", i)})
		if err != nil {
			return fmt.Errorf("instantiate block %d: %w", i, err)
		}
		s.objects = append(s.objects, o)
	}
	return nil
}

// Teardown destroys the blocks.
func (s *Stack) Teardown(t *harness.T) error {
	if scene := t.Scene(); scene != nil {
		for _, o := range s.objects {
			scene.Destroy(o)
		}
	}
	s.objects = nil
	return nil
}

//testmgr:test name="Tower of three blocks"
func (s *Stack) Builds(t *harness.T) {
	if len(s.objects) != 3 {
		t.Fatalf("got %d blocks, want 3", len(s.objects))
	}
	t.WaitFrames(1)
	for i, o := range s.objects {
		if want := fmt.Sprintf("Block%d (Clone)", i); o.Name != want {
			t.Errorf("block %d is %q, want %q", i, o.Name, want)
		}
	}
}
