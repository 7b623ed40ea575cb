package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testmgr/internal/domain"
)

func mkTest(method string) *domain.Test {
	return domain.NewTest(domain.Descriptor{ID: domain.TestID{Type: "Suite", Method: method}})
}

func pendingIDs(q *Queue) []string {
	var out []string
	for _, e := range q.Pending() {
		out = append(out, e.Test.ID.Method)
	}
	return out
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	a, b := mkTest("a"), mkTest("b")
	q.Push(a)
	q.Push(b)
	assert.Equal(t, 2, q.Len())

	e, ok := q.Pop()
	require.True(t, ok)
	assert.Same(t, a, e.Test)
	assert.True(t, e.InFlight)
	assert.Equal(t, 2, q.Len(), "the in-flight entry still counts")

	q.Finish(domain.Pass, domain.StatusPassed)
	_, ok = q.Current()
	assert.False(t, ok)
	require.Len(t, q.Finished(), 1)
	assert.False(t, q.Finished()[0].InFlight)

	e, _ = q.Pop()
	assert.Same(t, b, e.Test)
	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueue_RemoveAndMove(t *testing.T) {
	q := NewQueue()
	for _, m := range []string{"a", "b", "c", "d"} {
		q.Push(mkTest(m))
	}
	q.Pop() // a is in flight

	assert.False(t, q.Remove(domain.TestID{Type: "Suite", Method: "a"}), "in-flight entry cannot be removed")
	assert.True(t, q.Contains(domain.TestID{Type: "Suite", Method: "a"}))
	assert.True(t, q.Remove(domain.TestID{Type: "Suite", Method: "c"}))
	assert.False(t, q.Remove(domain.TestID{Type: "Suite", Method: "zzz"}))
	assert.Equal(t, []string{"b", "d"}, pendingIDs(q))

	assert.True(t, q.Move(domain.TestID{Type: "Suite", Method: "d"}, 0))
	assert.Equal(t, []string{"d", "b"}, pendingIDs(q))
	assert.True(t, q.Move(domain.TestID{Type: "Suite", Method: "d"}, 99))
	assert.Equal(t, []string{"b", "d"}, pendingIDs(q))
	assert.False(t, q.Move(domain.TestID{Type: "Suite", Method: "a"}, 0))
}

func TestQueue_SnapshotRestore(t *testing.T) {
	known := map[domain.TestID]*domain.Test{}
	for _, m := range []string{"a", "b", "c"} {
		tt := mkTest(m)
		known[tt.ID] = tt
	}
	lookup := func(id domain.TestID) (*domain.Test, bool) {
		tt, ok := known[id]
		return tt, ok
	}

	q := NewQueue()
	q.Push(known[domain.TestID{Type: "Suite", Method: "a"}])
	q.Push(known[domain.TestID{Type: "Suite", Method: "b"}])
	q.Push(known[domain.TestID{Type: "Suite", Method: "c"}])
	q.Pop()
	q.Finish(domain.Fail, domain.StatusFailed)
	q.Pop()

	snap := q.Snapshot()
	assert.Equal(t, []string{"Suite.b", "Suite.c"}, snap.Pending)
	assert.Equal(t, []FinishedRecord{{ID: "Suite.a", Result: domain.Fail, Status: domain.StatusFailed}}, snap.Finished)

	snap.Pending = append(snap.Pending, "Suite.gone", "garbage", "Suite.b")
	restored := NewQueue()
	restored.Restore(snap, lookup)
	assert.Equal(t, []string{"b", "c"}, pendingIDs(restored))
	require.Len(t, restored.Finished(), 1)
	assert.Equal(t, domain.Fail, restored.Finished()[0].Result)

	restored.Reset()
	assert.True(t, restored.Snapshot().IsEmpty())
}
