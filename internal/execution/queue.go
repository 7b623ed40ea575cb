package execution

import (
	"testmgr/internal/domain"
)

// Entry is a test's place in the current run session.
type Entry struct {
	Test     *domain.Test
	Position int // order in which the entry was queued
	InFlight bool
	Result   domain.Result
	Status   domain.Status
}

// FinishedRecord is the persisted form of a finished entry.
type FinishedRecord struct {
	ID     string        `yaml:"id" json:"id"`
	Result domain.Result `yaml:"result,omitempty" json:"result,omitempty"`
	Status domain.Status `yaml:"status,omitempty" json:"status,omitempty"`
}

// QueueSnapshot is the minimal persisted state of the queue: the identities it contains.
type QueueSnapshot struct {
	Pending  []string         `yaml:"pending,omitempty" json:"pending,omitempty"`
	Finished []FinishedRecord `yaml:"finished,omitempty" json:"finished,omitempty"`
}

// IsEmpty reports whether the snapshot holds no identities.
func (s QueueSnapshot) IsEmpty() bool {
	return len(s.Pending) == 0 && len(s.Finished) == 0
}

// Queue holds the pending tests of a run, the one in flight, and the ones that finished during
// this session. Only the scheduler pops; any pending entry may be removed or moved.
type Queue struct {
	pending  []*Entry
	current  *Entry
	finished []*Entry
	pushed   int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends test to the pending entries.
func (q *Queue) Push(test *domain.Test) *Entry {
	e := &Entry{Test: test, Position: q.pushed}
	q.pushed++
	q.pending = append(q.pending, e)
	return e
}

// Pop makes the first pending entry the in-flight one.
func (q *Queue) Pop() (*Entry, bool) {
	if len(q.pending) == 0 {
		return nil, false
	}
	e := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	e.InFlight = true
	q.current = e
	return e, true
}

// Current returns the in-flight entry, if any.
func (q *Queue) Current() (*Entry, bool) {
	return q.current, q.current != nil
}

// Finish moves the in-flight entry to the finished list.
func (q *Queue) Finish(result domain.Result, status domain.Status) *Entry {
	e := q.current
	if e == nil {
		return nil
	}
	e.InFlight = false
	e.Result = result
	e.Status = status
	q.finished = append(q.finished, e)
	q.current = nil
	return e
}

// Remove drops the pending entry for id. The in-flight entry cannot be removed.
func (q *Queue) Remove(id domain.TestID) bool {
	for i, e := range q.pending {
		if e.Test.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Move puts the pending entry for id at index among the pending entries. Out of range indexes
// are clamped.
func (q *Queue) Move(id domain.TestID, index int) bool {
	from := -1
	for i, e := range q.pending {
		if e.Test.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return false
	}
	e := q.pending[from]
	q.pending = append(q.pending[:from], q.pending[from+1:]...)

	index = max(0, min(index, len(q.pending)))
	q.pending = append(q.pending, nil)
	copy(q.pending[index+1:], q.pending[index:])
	q.pending[index] = e
	return true
}

// Contains reports whether id is pending or in flight.
func (q *Queue) Contains(id domain.TestID) bool {
	if q.current != nil && q.current.Test.ID == id {
		return true
	}
	for _, e := range q.pending {
		if e.Test.ID == id {
			return true
		}
	}
	return false
}

// Clear drops every pending entry. The in-flight and finished entries are kept.
func (q *Queue) Clear() {
	q.pending = nil
}

// Reset empties the queue completely.
func (q *Queue) Reset() {
	q.pending = nil
	q.current = nil
	q.finished = nil
	q.pushed = 0
}

// Pending returns the pending entries in run order.
func (q *Queue) Pending() []*Entry {
	return append([]*Entry(nil), q.pending...)
}

// Finished returns the entries finished during this session, oldest first.
func (q *Queue) Finished() []*Entry {
	return append([]*Entry(nil), q.finished...)
}

// Len returns the number of pending entries plus the in-flight one.
func (q *Queue) Len() int {
	n := len(q.pending)
	if q.current != nil {
		n++
	}
	return n
}

// Snapshot captures the identities in the queue. The in-flight entry is listed first among the
// pending ones.
func (q *Queue) Snapshot() QueueSnapshot {
	var s QueueSnapshot
	if q.current != nil {
		s.Pending = append(s.Pending, q.current.Test.ID.String())
	}
	for _, e := range q.pending {
		s.Pending = append(s.Pending, e.Test.ID.String())
	}
	for _, e := range q.finished {
		s.Finished = append(s.Finished, FinishedRecord{ID: e.Test.ID.String(), Result: e.Result, Status: e.Status})
	}
	return s
}

// Restore replaces the queue contents with the entries of s whose identities lookup still
// resolves. Unknown or malformed identities are dropped.
func (q *Queue) Restore(s QueueSnapshot, lookup func(domain.TestID) (*domain.Test, bool)) {
	q.Reset()
	resolve := func(raw string) *domain.Test {
		id, ok := domain.ParseTestID(raw)
		if !ok {
			return nil
		}
		test, ok := lookup(id)
		if !ok {
			return nil
		}
		return test
	}

	for _, raw := range s.Pending {
		if test := resolve(raw); test != nil && !q.Contains(test.ID) {
			q.Push(test)
		}
	}
	for _, rec := range s.Finished {
		if test := resolve(rec.ID); test != nil {
			q.finished = append(q.finished, &Entry{Test: test, Position: -1, Result: rec.Result, Status: rec.Status})
		}
	}
}
