// Package foldout holds the hierarchical view of the discovered tests. Every group path maps to
// exactly one node, every ancestor of a node exists, and the root group is the empty path.
package foldout

import (
	"testmgr/internal/domain"
	"testmgr/internal/paths"
)

// Node is one group in the tree.
type Node struct {
	Path     string
	Expanded bool

	index    int
	parent   int
	children []int
	tests    []*domain.Test
}

// Name returns the last segment of the node's path.
func (n *Node) Name() string {
	return paths.Base(n.Path)
}

// IsRoot reports whether n is the root group.
func (n *Node) IsRoot() bool {
	return n.parent < 0
}

// Tests returns the tests attached directly to n.
func (n *Node) Tests() []*domain.Test {
	return n.tests
}

// Tree is an arena of nodes indexed by path. Children keep their insertion order.
type Tree struct {
	nodes []*Node
	index map[string]int
}

// New creates a tree containing only the root.
func New() *Tree {
	t := &Tree{index: make(map[string]int)}
	t.add("", -1)
	return t
}

func (t *Tree) add(path string, parent int) *Node {
	n := &Node{Path: path, index: len(t.nodes), parent: parent}
	t.nodes = append(t.nodes, n)
	t.index[path] = n.index
	if parent >= 0 {
		p := t.nodes[parent]
		p.children = append(p.children, n.index)
	}
	return n
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.nodes[0]
}

// Len returns the number of nodes including the root.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Get returns the node at path.
func (t *Tree) Get(path string) (*Node, bool) {
	i, ok := t.index[paths.Clean(path)]
	if !ok {
		return nil, false
	}
	return t.nodes[i], true
}

// Parent returns the parent of n, or nil for the root.
func (t *Tree) Parent(n *Node) *Node {
	if n.parent < 0 {
		return nil
	}
	return t.nodes[n.parent]
}

// Children returns the direct children of n in insertion order.
func (t *Tree) Children(n *Node) []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, t.nodes[c])
	}
	return out
}

// GetOrCreate returns the node at path, creating it and any missing ancestors.
func (t *Tree) GetOrCreate(path string) *Node {
	path = paths.Clean(path)
	if n, ok := t.Get(path); ok {
		return n
	}

	parent := 0
	for _, dir := range append(paths.IterateDirectories(path, true), path) {
		if i, ok := t.index[dir]; ok {
			parent = i
			continue
		}
		parent = t.add(dir, parent).index
	}
	return t.nodes[parent]
}

// AttachTest adds test to the node of its group path. Attaching the same test twice is a no-op.
func (t *Tree) AttachTest(test *domain.Test) *Node {
	n := t.GetOrCreate(test.Path)
	for _, existing := range n.tests {
		if existing == test || existing.ID == test.ID {
			return n
		}
	}
	n.tests = append(n.tests, test)
	return n
}

// Walk visits n and its descendants depth first, parents before children. Returning false from
// fn skips the children of that node.
func (t *Tree) Walk(n *Node, fn func(n *Node, depth int) bool) {
	t.walk(n, 0, fn)
}

func (t *Tree) walk(n *Node, depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.children {
		t.walk(t.nodes[c], depth+1, fn)
	}
}

// Tests returns every test at or below path: a node's own tests come before its children's.
// An unknown path yields nothing.
func (t *Tree) Tests(path string) []*domain.Test {
	n, ok := t.Get(path)
	if !ok {
		return nil
	}
	var out []*domain.Test
	t.Walk(n, func(n *Node, _ int) bool {
		out = append(out, n.tests...)
		return true
	})
	return out
}

// AllTests returns every test in the tree in traversal order.
func (t *Tree) AllTests() []*domain.Test {
	return t.Tests("")
}

// SelectedTests returns the runnable tests at or below path in traversal order.
func (t *Tree) SelectedTests(path string) []*domain.Test {
	var out []*domain.Test
	for _, test := range t.Tests(path) {
		if test.Runnable() {
			out = append(out, test)
		}
	}
	return out
}

// FindTest returns the test with the given identity.
func (t *Tree) FindTest(id domain.TestID) (*domain.Test, bool) {
	for _, n := range t.nodes {
		for _, test := range n.tests {
			if test.ID == id {
				return test, true
			}
		}
	}
	return nil, false
}

// Nodes returns every node in traversal order, root first.
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, 0, len(t.nodes))
	t.Walk(t.Root(), func(n *Node, _ int) bool {
		out = append(out, n)
		return true
	})
	return out
}
