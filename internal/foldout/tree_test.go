package foldout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testmgr/internal/domain"
	"testmgr/internal/paths"
)

func newTest(typ, method, path string) *domain.Test {
	return domain.NewTest(domain.Descriptor{ID: domain.TestID{Type: typ, Method: method}, Path: path})
}

func ids(tests []*domain.Test) []string {
	out := make([]string, 0, len(tests))
	for _, t := range tests {
		out = append(out, t.ID.String())
	}
	return out
}

func TestGetOrCreate_NoGaps(t *testing.T) {
	tree := New()
	for _, p := range []string{"A/B/C", "A/D", `X\Y`, "/Z//W/", "A/B/C"} {
		tree.GetOrCreate(p)
	}

	// every non-root node has a parent in the tree and every ancestor exists
	for _, n := range tree.Nodes() {
		if n.IsRoot() {
			continue
		}
		parent := tree.Parent(n)
		require.NotNil(t, parent, n.Path)
		assert.Equal(t, paths.Parent(n.Path), parent.Path)
		for _, dir := range paths.IterateDirectories(n.Path, false) {
			_, ok := tree.Get(dir)
			assert.True(t, ok, "missing ancestor %q of %q", dir, n.Path)
		}
	}

	var got []string
	for _, n := range tree.Nodes() {
		got = append(got, n.Path)
	}
	assert.Equal(t, []string{"", "A", "A/B", "A/B/C", "A/D", "X", "X/Y", "Z", "Z/W"}, got)
	assert.Equal(t, 9, tree.Len(), "paths are unique")
}

func TestGetOrCreate_DotDot(t *testing.T) {
	tree := New()
	n := tree.GetOrCreate("a/../b/c")
	assert.Equal(t, "b/c", n.Path)
	assert.Same(t, n, tree.GetOrCreate("b/c"))
	assert.Equal(t, 3, tree.Len())
}

func TestAttachTest(t *testing.T) {
	tree := New()
	a := newTest("Physics", "Falls", "Physics/Gravity")
	root := newTest("Smoke", "Boots", "")

	n := tree.AttachTest(a)
	assert.Equal(t, "Physics/Gravity", n.Path)
	tree.AttachTest(a)
	tree.AttachTest(newTest("Physics", "Falls", "Physics/Gravity"))
	assert.Len(t, n.Tests(), 1)

	assert.True(t, tree.AttachTest(root).IsRoot())
}

func TestTests_TraversalOrder(t *testing.T) {
	tree := New()
	tree.AttachTest(newTest("A", "deep", "G/Sub"))
	tree.AttachTest(newTest("A", "own1", "G"))
	tree.AttachTest(newTest("A", "other", "H"))
	tree.AttachTest(newTest("A", "own2", "G"))
	tree.AttachTest(newTest("A", "root", ""))

	assert.Equal(t, []string{"A.root", "A.own1", "A.own2", "A.deep", "A.other"}, ids(tree.AllTests()))
	assert.Equal(t, []string{"A.own1", "A.own2", "A.deep"}, ids(tree.Tests("G")))
	assert.Empty(t, tree.Tests("missing"))
}

func TestSelectDeselect_SkipLocked(t *testing.T) {
	tree := New()
	free := newTest("A", "free", "G")
	lockedOff := newTest("A", "lockedOff", "G/Sub")
	lockedOn := newTest("A", "lockedOn", "G/Sub")
	for _, tt := range []*domain.Test{free, lockedOff, lockedOn} {
		tree.AttachTest(tt)
	}
	lockedOn.Selected = true
	tree.Lock("G/Sub", true)

	tree.Select("")
	assert.True(t, free.Selected)
	assert.False(t, lockedOff.Selected)
	assert.True(t, lockedOn.Selected)

	tree.Deselect("G")
	assert.False(t, free.Selected)
	assert.False(t, lockedOff.Selected)
	assert.True(t, lockedOn.Selected)

	assert.Empty(t, tree.SelectedTests(""), "locked tests are never runnable")
}

func TestToggle_TriState(t *testing.T) {
	tree := New()
	a, b, c := newTest("A", "a", "G"), newTest("A", "b", "G"), newTest("A", "c", "G")
	for _, tt := range []*domain.Test{a, b, c} {
		tree.AttachTest(tt)
	}
	c.Locked = true

	a.Selected = true
	tree.Toggle("G")
	assert.True(t, a.Selected && b.Selected, "partial selection selects everything")
	assert.False(t, c.Selected)

	tree.Toggle("G")
	assert.False(t, a.Selected || b.Selected, "full selection of unlocked tests deselects")

	tree.Lock("G", true)
	tree.Toggle("G")
	assert.False(t, a.Selected, "nothing to toggle when every test is locked")
}

func TestAggregates(t *testing.T) {
	tree := New()
	a, b := newTest("A", "a", "G"), newTest("A", "b", "G/Sub")
	tree.AttachTest(a)
	tree.AttachTest(b)

	assert.False(t, tree.AnySelected("G"))
	assert.False(t, tree.AllSelected("G"))
	assert.False(t, tree.AllSelected("empty"))
	assert.Equal(t, domain.None, tree.Result("G"))

	a.Selected = true
	assert.True(t, tree.AnySelected("G"))
	assert.False(t, tree.AllSelected("G"))
	assert.False(t, tree.SelectedHaveResults("G"))

	b.Selected = true
	b.Result = domain.Pass
	assert.True(t, tree.AllSelected("G"))
	assert.True(t, tree.AnyResults("G"))
	assert.False(t, tree.AllResults("G"))
	assert.True(t, tree.SelectedHaveResults("G"))
	assert.Equal(t, domain.None, tree.Result("G"))
	assert.Equal(t, domain.Pass, tree.Result("G/Sub"))

	a.Result = domain.Fail
	assert.True(t, tree.AllResults("G"))
	assert.Equal(t, domain.Fail, tree.Result("G"))
	assert.Equal(t, Stats{Total: 2, Passed: 1, Failed: 1}, tree.Stats(""))
}

func TestRecordsApply(t *testing.T) {
	build := func() (*Tree, *domain.Test, *domain.Test) {
		tree := New()
		a, b := newTest("A", "a", "G"), newTest("A", "b", "")
		tree.AttachTest(a)
		tree.AttachTest(b)
		tree.GetOrCreate("G/Empty")
		return tree, a, b
	}

	src, a, b := build()
	src.Expand("G", true)
	a.Selected, a.Result = true, domain.Fail
	b.Locked = true

	records := src.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "", records[0].Path)
	assert.Equal(t, "G", records[1].Path)

	// order independent, unknown paths and identities dropped
	shuffled := []Record{
		{Path: "Gone", Expanded: true},
		records[2], records[1], records[0],
		{Path: "G", Expanded: true, Tests: []domain.TestState{{ID: "Ghost.test", Selected: true}}},
	}
	dst, da, db := build()
	dst.Apply(shuffled)

	assert.Equal(t, records, dst.Records())
	assert.True(t, da.Selected)
	assert.Equal(t, domain.Fail, da.Result)
	assert.True(t, db.Locked)
	_, ok := dst.Get("Gone")
	assert.False(t, ok)
}

func TestRebuild_PreservesState(t *testing.T) {
	tree := New()
	old := newTest("A", "kept", "G/Sub")
	tree.AttachTest(old)
	tree.AttachTest(newTest("A", "removed", "Old"))
	tree.Expand("G", true)
	old.Selected, old.Result, old.Failure = true, domain.Fail, "boom"

	fresh := newTest("A", "kept", "G/Sub")
	added := newTest("A", "added", "New")
	tree.Rebuild([]*domain.Test{fresh, added})

	_, ok := tree.Get("Old")
	assert.False(t, ok)
	n, ok := tree.Get("G")
	require.True(t, ok)
	assert.True(t, n.Expanded)
	assert.True(t, fresh.Selected)
	assert.Equal(t, domain.Fail, fresh.Result)
	assert.Equal(t, "boom", fresh.Failure)
	assert.False(t, added.Selected)

	got, ok := tree.FindTest(domain.TestID{Type: "A", Method: "added"})
	require.True(t, ok)
	assert.Same(t, added, got)
}
