package foldout

import (
	"testmgr/internal/domain"
	"testmgr/internal/paths"
)

// Record is the persisted form of one node.
type Record struct {
	Path     string             `yaml:"path" json:"path"`
	Expanded bool               `yaml:"expanded,omitempty" json:"expanded,omitempty"`
	Tests    []domain.TestState `yaml:"tests,omitempty" json:"tests,omitempty"`
}

// Records returns one record per node in traversal order. The root is only included when tests
// are attached to it directly, since it has no state of its own.
func (t *Tree) Records() []Record {
	var out []Record
	for _, n := range t.Nodes() {
		if n.IsRoot() && len(n.tests) == 0 {
			continue
		}
		rec := Record{Path: n.Path, Expanded: n.Expanded}
		for _, test := range n.tests {
			rec.Tests = append(rec.Tests, test.State())
		}
		out = append(out, rec)
	}
	return out
}

// Apply restores records onto the tree. Records for paths that no longer exist and test states
// for identities that are not attached at that path are dropped.
func (t *Tree) Apply(records []Record) {
	for _, rec := range records {
		n, ok := t.Get(rec.Path)
		if !ok {
			continue
		}
		if !n.IsRoot() {
			n.Expanded = rec.Expanded
		}
		for _, st := range rec.Tests {
			if test := n.test(st.ID); test != nil {
				test.ApplyState(st)
			}
		}
	}
}

func (n *Node) test(id string) *domain.Test {
	for _, test := range n.tests {
		if test.ID.String() == id {
			return test
		}
	}
	return nil
}

// Reconcile copies the UI state of persisted onto t: the expanded flag of every node whose path
// exists in both trees, and the state of every test found under the same path and identity.
func (t *Tree) Reconcile(persisted *Tree) {
	for _, old := range persisted.nodes {
		n, ok := t.Get(old.Path)
		if !ok {
			continue
		}
		n.Expanded = old.Expanded
		for _, prev := range old.tests {
			cur := n.test(prev.ID.String())
			if cur == nil {
				continue
			}
			cur.ApplyState(prev.State())
			cur.Failure = prev.Failure
		}
	}
}

// Rebuild replaces the contents of the tree with freshly discovered tests and carries over the
// state of matching paths and identities.
func (t *Tree) Rebuild(tests []*domain.Test) {
	old := &Tree{nodes: t.nodes, index: t.index}
	fresh := New()
	for _, test := range tests {
		test.Path = paths.Clean(test.Path)
		fresh.AttachTest(test)
	}
	*t = *fresh
	t.Reconcile(old)
}
