package foldout

import "testmgr/internal/domain"

// Select selects every unlocked test at or below path.
func (t *Tree) Select(path string) {
	t.setSelected(path, true)
}

// Deselect deselects every unlocked test at or below path.
func (t *Tree) Deselect(path string) {
	t.setSelected(path, false)
}

func (t *Tree) setSelected(path string, selected bool) {
	for _, test := range t.Tests(path) {
		test.SetSelected(selected)
	}
}

// Toggle behaves like pressing the group's checkbox: when every unlocked test is already
// selected the group is deselected, otherwise it is selected.
func (t *Tree) Toggle(path string) {
	allSelected, unlocked := true, false
	for _, test := range t.Tests(path) {
		if test.Locked {
			continue
		}
		unlocked = true
		if !test.Selected {
			allSelected = false
		}
	}
	if !unlocked {
		return
	}
	t.setSelected(path, !allSelected)
}

// Lock sets the lock state of every test at or below path.
func (t *Tree) Lock(path string, locked bool) {
	for _, test := range t.Tests(path) {
		test.Locked = locked
	}
}

// Expand sets the expanded state of the node at path.
func (t *Tree) Expand(path string, expanded bool) {
	if n, ok := t.Get(path); ok {
		n.Expanded = expanded
	}
}

// ToggleExpanded flips the expanded state of the node at path.
func (t *Tree) ToggleExpanded(path string) {
	if n, ok := t.Get(path); ok {
		n.Expanded = !n.Expanded
	}
}

// Stats counts the results of the tests at or below a node.
type Stats struct {
	Total  int
	Passed int
	Failed int
	None   int
}

// Stats returns result counts for the tests at or below path.
func (t *Tree) Stats(path string) Stats {
	var s Stats
	for _, test := range t.Tests(path) {
		s.Total++
		switch test.Result {
		case domain.Pass:
			s.Passed++
		case domain.Fail:
			s.Failed++
		default:
			s.None++
		}
	}
	return s
}

// Result folds the results below path: Fail if any failed, Pass if all passed, None otherwise.
func (t *Tree) Result(path string) domain.Result {
	s := t.Stats(path)
	switch {
	case s.Failed > 0:
		return domain.Fail
	case s.Total > 0 && s.Passed == s.Total:
		return domain.Pass
	default:
		return domain.None
	}
}

// AllSelected reports whether there are tests at or below path and all of them are selected.
func (t *Tree) AllSelected(path string) bool {
	tests := t.Tests(path)
	if len(tests) == 0 {
		return false
	}
	for _, test := range tests {
		if !test.Selected {
			return false
		}
	}
	return true
}

// AnySelected reports whether any test at or below path is selected.
func (t *Tree) AnySelected(path string) bool {
	for _, test := range t.Tests(path) {
		if test.Selected {
			return true
		}
	}
	return false
}

// AnyResults reports whether any test at or below path has a result.
func (t *Tree) AnyResults(path string) bool {
	s := t.Stats(path)
	return s.None < s.Total
}

// AllResults reports whether there are tests at or below path and all of them have a result.
func (t *Tree) AllResults(path string) bool {
	s := t.Stats(path)
	return s.Total > 0 && s.None == 0
}

// SelectedHaveResults reports whether any selected test at or below path has a result, which is
// when resetting the selection does something.
func (t *Tree) SelectedHaveResults(path string) bool {
	for _, test := range t.Tests(path) {
		if test.Selected && test.Result != domain.None {
			return true
		}
	}
	return false
}
