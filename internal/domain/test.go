package domain

import (
	"strings"
	"time"

	"testmgr/internal/harness"
	"testmgr/internal/sim"
)

// TestID identifies a test across reloads: the declaring type (suite) and the method name.
type TestID struct {
	Type   string
	Method string
}

// String returns the "Type.Method" form used in persisted state.
func (id TestID) String() string {
	if id.Type == "" {
		return id.Method
	}
	return id.Type + "." + id.Method
}

// IsZero reports whether id is unset.
func (id TestID) IsZero() bool {
	return id.Type == "" && id.Method == ""
}

// ParseTestID parses the "Type.Method" form. The method is everything after the last dot.
func ParseTestID(s string) (TestID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TestID{}, false
	}
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return TestID{}, false
	}
	return TestID{Type: s[:i], Method: s[i+1:]}, true
}

// Descriptor is what discovery knows about a test before it becomes a live Test.
type Descriptor struct {
	ID       TestID
	Path     string        // group path; empty means the root group
	Name     string        // display name; defaults to the method name
	Timeout  time.Duration // zero means no timeout
	Resource sim.Resource  // default resource handed to setup
	Source   string        // file:line of the declaration, when known

	Body     harness.Body
	Setup    harness.SetupFunc
	Teardown harness.TeardownFunc
}

// DisplayName returns Name, or the method name when Name is empty.
func (d Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID.Method
}

// Test is a discovered test together with its mutable UI and result state.
type Test struct {
	Descriptor

	Selected bool
	Locked   bool
	Expanded bool
	Result   Result
	Failure  string       // last failure message
	Resource sim.Resource // overrides Descriptor.Resource
}

// NewTest creates a Test from a descriptor with default state.
func NewTest(d Descriptor) *Test {
	return &Test{Descriptor: d, Resource: d.Resource}
}

// Reset clears the result of the last run.
func (t *Test) Reset() {
	t.Result = None
	t.Failure = ""
}

// Runnable reports whether a run would include the test.
func (t *Test) Runnable() bool {
	return t.Selected && !t.Locked
}

// SetSelected changes the selection unless the test is locked. It reports whether it changed.
func (t *Test) SetSelected(selected bool) bool {
	if t.Locked || t.Selected == selected {
		return false
	}
	t.Selected = selected
	return true
}

// SetResult records the outcome of a run.
func (t *Test) SetResult(r Result, failure string) {
	t.Result = r
	if r == Fail {
		t.Failure = failure
	} else {
		t.Failure = ""
	}
}

// State captures the persisted part of the test.
func (t *Test) State() TestState {
	return TestState{
		ID:       t.ID.String(),
		Selected: t.Selected,
		Locked:   t.Locked,
		Expanded: t.Expanded,
		Result:   t.Result,
		Resource: t.Resource,
	}
}

// ApplyState restores persisted state onto the test.
func (t *Test) ApplyState(s TestState) {
	t.Selected = s.Selected
	t.Locked = s.Locked
	t.Expanded = s.Expanded
	t.Result = s.Result
	if !s.Resource.IsZero() {
		t.Resource = s.Resource
	}
}

// TestState is the per-test state persisted across reloads.
type TestState struct {
	ID       string       `yaml:"id" json:"id"`
	Selected bool         `yaml:"selected,omitempty" json:"selected,omitempty"`
	Locked   bool         `yaml:"locked,omitempty" json:"locked,omitempty"`
	Expanded bool         `yaml:"expanded,omitempty" json:"expanded,omitempty"`
	Result   Result       `yaml:"result,omitempty" json:"result,omitempty"`
	Resource sim.Resource `yaml:"resource,omitempty" json:"resource,omitempty"`
}
