// Package manager owns the state of the test manager: the discovered tests, their tree, the run
// scheduler and the persisted flags. Every operation of the interactive surfaces goes through
// Context, and Context is only used from one goroutine at a time.
package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"testmgr/internal/discovery"
	"testmgr/internal/domain"
	"testmgr/internal/execution"
	"testmgr/internal/foldout"
	"testmgr/internal/logging"
	"testmgr/internal/persist"
	"testmgr/internal/sim"
	"testmgr/internal/storage"
)

// ErrSimulationActive is returned by operations that need the simulation to be stopped.
var ErrSimulationActive = errors.New("the simulation is active")

// Simulation is the live simulation the manager drives.
type Simulation interface {
	sim.Host
	Step()
	NewEmptyScene() error
	Instantiate(res sim.Resource) (*sim.Object, error)
	Destroy(o *sim.Object)
	OnStateChange(fn func(active bool))
}

// Options holds the collaborators of a Context.
type Options struct {
	Provider discovery.Provider
	Sim      Simulation
	Store    storage.Store
	Key      string
	Format   persist.Format
	Log      *logging.Logger

	Recorders []execution.Recorder
	Sinks     []execution.ReportSink

	// OnFocus is called when the simulation is entered with an empty scene.
	OnFocus func()
}

// Context is the explicit replacement of a process-wide manager: it is created, initialized,
// used and torn down by its owner.
type Context struct {
	opts      Options
	log       logrus.FieldLogger
	tree      *foldout.Tree
	queue     *execution.Queue
	scheduler *execution.Scheduler

	showWelcome bool
	debug       bool

	// unmatched holds persisted records the last incomplete discovery could not place. They are
	// written back on Save so a failing provider does not erase the state of its tests.
	unmatched []foldout.Record
}

// New creates a new Context. Nothing is discovered or loaded until Init.
func New(opts Options) *Context {
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.Key == "" {
		opts.Key = "testmgr"
	}
	if opts.Format == "" {
		opts.Format = persist.FormatYAML
	}
	log := opts.Log.Component("manager")
	queue := execution.NewQueue()
	runner := execution.NewRunner(opts.Sim, opts.Log.Component("runner"))
	sched := execution.NewScheduler(opts.Sim, runner, queue, opts.Log.Component("scheduler"))
	for _, r := range opts.Recorders {
		sched.AddRecorder(r)
	}
	for _, s := range opts.Sinks {
		sched.AddReportSink(s)
	}

	def := persist.DefaultDocument()
	return &Context{
		opts:        opts,
		log:         log,
		tree:        foldout.New(),
		queue:       queue,
		scheduler:   sched,
		showWelcome: def.ShowWelcome,
		debug:       def.Debug,
	}
}

// Init discovers the tests and restores the persisted state.
func (c *Context) Init(ctx context.Context) error {
	c.opts.Sim.OnStateChange(c.OnPlayStateChanged)
	return c.Load(ctx)
}

// Teardown persists the state and abandons any run.
func (c *Context) Teardown(ctx context.Context) error {
	c.opts.Sim.OnStateChange(nil)
	err := c.Save(ctx)
	c.scheduler.Reset()
	return err
}

// Load resets the scheduler, rediscovers the tests, rebuilds the tree and applies the persisted
// state on top of it. Discovery and store problems are logged; whatever could be read is used.
func (c *Context) Load(ctx context.Context) error {
	c.scheduler.Reset()
	c.unmatched = nil

	descs, err := c.opts.Provider.Discover(ctx)
	incomplete := err != nil
	if incomplete {
		c.log.WithError(err).Warn("discovery failed")
	}
	tests := make([]*domain.Test, 0, len(descs))
	for _, d := range descs {
		tests = append(tests, domain.NewTest(d))
	}
	c.tree.Rebuild(tests)
	c.log.Debugf("discovered %d tests in %d groups", len(tests), c.tree.Len())

	data, ok, err := c.opts.Store.Get(ctx, c.opts.Key)
	if err != nil {
		c.log.WithError(err).Warn("could not read the persisted state")
		return nil
	}
	if !ok {
		return nil
	}
	doc, errs := persist.Decode(data, c.document())
	for _, e := range errs {
		c.log.WithError(e).Debug("ignored part of the persisted state")
	}
	c.apply(doc)
	if incomplete {
		c.unmatched = unmatchedRecords(c.tree.Records(), doc.Foldouts)
	}
	return nil
}

// Save persists the state. A failure is logged and returned; it never affects the session.
func (c *Context) Save(ctx context.Context) error {
	data, err := persist.Encode(c.document(), c.opts.Format)
	if err != nil {
		c.log.WithError(err).Warn("could not encode the state")
		return err
	}
	if err := c.opts.Store.Set(ctx, c.opts.Key, data); err != nil {
		c.log.WithError(err).Warn("could not persist the state")
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Refresh saves and reloads, picking up added or removed tests.
func (c *Context) Refresh(ctx context.Context) error {
	_ = c.Save(ctx)
	return c.Load(ctx)
}

// DoReset forgets everything: the persisted state is deleted, flags go back to their defaults,
// the tree is discarded and the tests are rediscovered. Callers ask for confirmation first.
func (c *Context) DoReset(ctx context.Context) error {
	if err := c.opts.Store.Delete(ctx, c.opts.Key); err != nil {
		c.log.WithError(err).Warn("could not delete the persisted state")
	}
	c.scheduler.Reset()
	def := persist.DefaultDocument()
	c.setDebug(def.Debug)
	c.showWelcome = def.ShowWelcome
	c.tree = foldout.New()
	return c.Load(ctx)
}

func (c *Context) document() persist.Document {
	return persist.Document{
		ShowWelcome: c.showWelcome,
		Debug:       c.debug,
		Queue:       c.queue.Snapshot(),
		Foldouts:    mergeRecords(c.tree.Records(), c.unmatched),
	}
}

// unmatchedRecords returns the parts of persisted that have no counterpart in current: whole
// records whose path is unknown and the test states of unknown tests.
func unmatchedRecords(current, persisted []foldout.Record) []foldout.Record {
	paths := make(map[string]bool, len(current))
	ids := make(map[string]bool)
	for _, rec := range current {
		paths[rec.Path] = true
		for _, ts := range rec.Tests {
			ids[ts.ID] = true
		}
	}

	var out []foldout.Record
	for _, rec := range persisted {
		var tests []domain.TestState
		for _, ts := range rec.Tests {
			if !ids[ts.ID] {
				tests = append(tests, ts)
			}
		}
		if !paths[rec.Path] || len(tests) > 0 {
			out = append(out, foldout.Record{Path: rec.Path, Expanded: rec.Expanded, Tests: tests})
		}
	}
	return out
}

// mergeRecords appends extra to records, folding records that share a path.
func mergeRecords(records, extra []foldout.Record) []foldout.Record {
	if len(extra) == 0 {
		return records
	}
	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[rec.Path] = i
	}
	for _, rec := range extra {
		if i, ok := index[rec.Path]; ok {
			tests := append([]domain.TestState(nil), records[i].Tests...)
			records[i].Tests = append(tests, rec.Tests...)
			continue
		}
		index[rec.Path] = len(records)
		records = append(records, rec)
	}
	return records
}

func (c *Context) apply(doc persist.Document) {
	c.showWelcome = doc.ShowWelcome
	c.setDebug(doc.Debug)
	c.tree.Apply(doc.Foldouts)
	c.queue.Restore(doc.Queue, c.tree.FindTest)
}

func (c *Context) setDebug(debug bool) {
	c.debug = debug
	c.opts.Log.SetDebug(debug)
}

// Tree returns the test tree.
func (c *Context) Tree() *foldout.Tree {
	return c.tree
}

// Scheduler returns the run scheduler.
func (c *Context) Scheduler() *execution.Scheduler {
	return c.scheduler
}

// Queue returns the run queue.
func (c *Context) Queue() *execution.Queue {
	return c.queue
}

// Tests returns every test in traversal order.
func (c *Context) Tests() []*domain.Test {
	return c.tree.AllTests()
}

// Test returns the test with the "Type.Method" identity id.
func (c *Context) Test(id string) (*domain.Test, bool) {
	tid, ok := domain.ParseTestID(id)
	if !ok {
		return nil, false
	}
	return c.tree.FindTest(tid)
}

// ShowWelcome reports whether the welcome message is shown.
func (c *Context) ShowWelcome() bool {
	return c.showWelcome
}

// Debug reports whether debug logging is on.
func (c *Context) Debug() bool {
	return c.debug
}
