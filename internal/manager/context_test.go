package manager

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testmgr/internal/discovery"
	"testmgr/internal/domain"
	"testmgr/internal/execution"
	"testmgr/internal/harness"
	"testmgr/internal/persist"
	"testmgr/internal/sim"
	"testmgr/internal/storage"
)

type reportSink struct {
	reports []domain.RunReport
}

func (s *reportSink) Report(r domain.RunReport) error {
	s.reports = append(s.reports, r)
	return nil
}

func registry() *discovery.Registry {
	r := discovery.NewRegistry()
	r.Suite("Physics").Path("World/Physics").
		Add("Falls", func(t *harness.T) { t.WaitFrames(2) }).
		Add("Bounces", func(t *harness.T) { t.Errorf("no bounce") })
	r.Suite("UI").Path("UI").
		Add("Opens", func(t *harness.T) {})
	return r
}

type testEnv struct {
	ctx   *Context
	sim   *sim.Simulation
	store storage.Store
	sink  *reportSink
	focus int
}

func newEnv(t *testing.T, store storage.Store, format persist.Format) *testEnv {
	t.Helper()
	env := &testEnv{sim: sim.New(), store: store, sink: &reportSink{}}
	env.ctx = New(Options{
		Provider: registry(),
		Sim:      env.sim,
		Store:    store,
		Format:   format,
		Sinks:    []execution.ReportSink{env.sink},
		OnFocus:  func() { env.focus++ },
	})
	require.NoError(t, env.ctx.Init(context.Background()))
	return env
}

func fileStore(t *testing.T) storage.Store {
	return storage.NewFileStore(filepath.Join(t.TempDir(), "prefs.json"))
}

func (env *testEnv) runToIdle(t *testing.T, limit int) {
	t.Helper()
	for i := 0; i < limit && env.ctx.Scheduler().Running(); i++ {
		env.ctx.Update()
	}
	require.False(t, env.ctx.Scheduler().Running(), "run did not finish within %d updates", limit)
}

func (env *testEnv) test(t *testing.T, id string) *domain.Test {
	t.Helper()
	test, ok := env.ctx.Test(id)
	require.True(t, ok, "test %s not found", id)
	return test
}

func TestInit_BuildsTree(t *testing.T) {
	env := newEnv(t, fileStore(t), persist.FormatYAML)

	var ids []string
	for _, test := range env.ctx.Tests() {
		ids = append(ids, test.ID.String())
	}
	assert.Equal(t, []string{"Physics.Falls", "Physics.Bounces", "UI.Opens"}, ids)

	for _, p := range []string{"", "World", "World/Physics", "UI"} {
		_, ok := env.ctx.Tree().Get(p)
		assert.True(t, ok, "group %q", p)
	}
	assert.True(t, env.ctx.ShowWelcome())
	assert.False(t, env.ctx.Debug())
}

func TestRunSelected(t *testing.T) {
	env := newEnv(t, fileStore(t), persist.FormatYAML)
	assert.False(t, env.ctx.RunSelected(), "nothing selected")

	env.ctx.SelectAll()
	require.True(t, env.ctx.RunSelected())
	assert.False(t, env.ctx.RunSelected(), "already running")
	assert.Equal(t, 1, env.focus, "entering an empty scene asks for focus")

	st := env.ctx.State()
	assert.True(t, st.Running)
	assert.True(t, st.SimActive)
	assert.Equal(t, 3, st.Queued)

	env.runToIdle(t, 50)

	assert.Equal(t, domain.Pass, env.test(t, "Physics.Falls").Result)
	assert.Equal(t, domain.Fail, env.test(t, "Physics.Bounces").Result)
	assert.Contains(t, env.test(t, "Physics.Bounces").Failure, "no bounce")
	assert.Equal(t, domain.Pass, env.test(t, "UI.Opens").Result)
	assert.False(t, env.sim.IsActive())

	require.Len(t, env.sink.reports, 1)
	assert.Equal(t, domain.OutcomeCompleted, env.sink.reports[0].Meta.Outcome)

	st = env.ctx.State()
	assert.False(t, st.Running)
	assert.True(t, st.AnyResults)
	assert.True(t, st.SelectedHaveResults)
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, 2, st.Passed)
}

func TestStopAndPause(t *testing.T) {
	env := newEnv(t, fileStore(t), persist.FormatYAML)
	env.ctx.SelectAll()
	require.True(t, env.ctx.RunSelected())

	env.ctx.TogglePause()
	assert.True(t, env.ctx.State().Paused)
	for i := 0; i < 5; i++ {
		env.ctx.Update()
	}
	assert.Equal(t, 3, env.ctx.Queue().Len(), "nothing advances while paused")

	env.ctx.TogglePause()
	env.ctx.Update()
	env.ctx.Stop()
	env.runToIdle(t, 5)

	assert.Equal(t, domain.None, env.test(t, "Physics.Falls").Result, "a stopped test keeps its result")
	assert.Equal(t, domain.None, env.test(t, "UI.Opens").Result)
	require.Len(t, env.sink.reports, 1)
	assert.Equal(t, domain.OutcomeStopped, env.sink.reports[0].Meta.Outcome)
}

func TestCancelQueued(t *testing.T) {
	env := newEnv(t, fileStore(t), persist.FormatYAML)
	env.ctx.SelectAll()
	require.True(t, env.ctx.RunSelected())

	assert.True(t, env.ctx.CancelQueued("UI.Opens"))
	assert.False(t, env.ctx.CancelQueued("UI.Opens"))
	assert.False(t, env.ctx.CancelQueued("not an id"))
	env.runToIdle(t, 50)

	assert.Equal(t, domain.None, env.test(t, "UI.Opens").Result)
	assert.Equal(t, domain.Pass, env.test(t, "Physics.Falls").Result)
}

func TestResetSelected(t *testing.T) {
	env := newEnv(t, fileStore(t), persist.FormatYAML)
	env.ctx.SelectAll()
	require.True(t, env.ctx.RunSelected())
	env.runToIdle(t, 50)

	env.ctx.ToggleTest("UI.Opens")
	env.ctx.ResetSelected()
	assert.Equal(t, domain.None, env.test(t, "Physics.Falls").Result)
	assert.Equal(t, domain.None, env.test(t, "Physics.Bounces").Result)
	assert.Empty(t, env.test(t, "Physics.Bounces").Failure)
	assert.Equal(t, domain.Pass, env.test(t, "UI.Opens").Result, "unselected tests keep their result")
	assert.False(t, env.ctx.State().SelectedHaveResults)

	assert.True(t, env.ctx.ResetTest("UI.Opens"))
	assert.False(t, env.ctx.State().AnyResults)
	assert.False(t, env.ctx.ResetTest("UI.Missing"))
}

func TestResetAll(t *testing.T) {
	env := newEnv(t, fileStore(t), persist.FormatYAML)
	env.ctx.SelectAll()
	require.True(t, env.ctx.RunSelected())
	env.runToIdle(t, 50)

	env.ctx.DeselectAll()
	env.ctx.ResetAll()
	assert.False(t, env.ctx.State().AnyResults)
}

func TestToggleLockAndSelection(t *testing.T) {
	env := newEnv(t, fileStore(t), persist.FormatYAML)

	assert.True(t, env.ctx.ToggleLock("World"))
	assert.True(t, env.test(t, "Physics.Falls").Locked)
	assert.True(t, env.test(t, "Physics.Bounces").Locked)

	env.ctx.ToggleAll()
	assert.False(t, env.test(t, "Physics.Falls").Selected, "locked tests are skipped")
	assert.True(t, env.test(t, "UI.Opens").Selected)
	assert.False(t, env.ctx.ToggleTest("Physics.Falls"))

	env.ctx.ToggleAll()
	assert.False(t, env.test(t, "UI.Opens").Selected, "every unlocked test was selected, so the toggle deselects")

	assert.True(t, env.ctx.ToggleLock("Physics.Falls"))
	assert.False(t, env.test(t, "Physics.Falls").Locked)
	assert.True(t, env.ctx.ToggleLock("World"), "a partly locked group becomes fully locked")
	assert.True(t, env.test(t, "Physics.Falls").Locked)
	assert.True(t, env.ctx.ToggleLock("World"))
	assert.False(t, env.test(t, "Physics.Bounces").Locked)
	assert.False(t, env.ctx.ToggleLock("Nope.Missing"))

	assert.True(t, env.ctx.ToggleExpanded("World"))
	n, _ := env.ctx.Tree().Get("World")
	assert.True(t, n.Expanded)
	assert.True(t, env.ctx.ToggleExpanded("UI.Opens"))
	assert.True(t, env.test(t, "UI.Opens").Expanded)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, format := range []persist.Format{persist.FormatYAML, persist.FormatLegacy} {
		t.Run(string(format), func(t *testing.T) {
			store := fileStore(t)
			env := newEnv(t, store, format)
			env.ctx.SelectAll()
			env.ctx.ToggleLock("UI.Opens")
			env.ctx.ToggleExpanded("World/Physics")
			env.ctx.ToggleWelcome()
			env.ctx.ToggleDebug()
			require.True(t, env.ctx.SetResource("Physics.Falls", sim.Resource{Ref: "Ball"}))
			require.True(t, env.ctx.RunSelected())
			env.runToIdle(t, 50)
			require.NoError(t, env.ctx.Teardown(context.Background()))

			next := newEnv(t, store, persist.FormatYAML)
			assert.False(t, next.ctx.ShowWelcome())
			assert.True(t, next.ctx.Debug())
			n, _ := next.ctx.Tree().Get("World/Physics")
			assert.True(t, n.Expanded)

			falls := next.test(t, "Physics.Falls")
			if format == persist.FormatLegacy {
				assert.False(t, falls.Selected, "the legacy format has no per-test state")
				return
			}
			assert.True(t, falls.Selected)
			assert.Equal(t, domain.Pass, falls.Result)
			assert.Equal(t, "Ball", falls.Resource.Ref)
			assert.True(t, next.test(t, "UI.Opens").Locked)
			assert.Equal(t, domain.Fail, next.test(t, "Physics.Bounces").Result)
			assert.Len(t, next.ctx.Queue().Finished(), 2, "the last run is shown again")
			assert.False(t, next.ctx.Scheduler().Running(), "a restored queue does not run")
		})
	}
}

func TestLoad_CorruptState(t *testing.T) {
	store := fileStore(t)
	require.NoError(t, store.Set(context.Background(), "testmgr", "queue: [broken\nshow_welcome: false\n"))

	env := newEnv(t, store, persist.FormatYAML)
	assert.False(t, env.ctx.ShowWelcome(), "readable fields are applied")
	assert.Len(t, env.ctx.Tests(), 3)
}

func TestLoad_FailingProviderKeepsState(t *testing.T) {
	store := fileStore(t)
	env := newEnv(t, store, persist.FormatYAML)
	env.ctx.SelectAll()
	env.ctx.ToggleLock("UI.Opens")
	require.NoError(t, env.ctx.Teardown(context.Background()))

	failing := discovery.ProviderFunc(func(context.Context) ([]discovery.Descriptor, error) {
		return nil, errors.New("source root is gone")
	})
	physics := discovery.NewRegistry()
	physics.Suite("Physics").Path("World/Physics").Add("Falls", func(t *harness.T) {})

	for _, provider := range []discovery.Provider{
		discovery.Merge(physics, failing),
		discovery.Merge(failing),
	} {
		partial := New(Options{Provider: provider, Sim: sim.New(), Store: store})
		require.NoError(t, partial.Init(context.Background()))
		if test, ok := partial.Test("Physics.Falls"); ok {
			assert.True(t, test.Selected, "healthy providers are still loaded")
		}
		_, ok := partial.Test("UI.Opens")
		assert.False(t, ok)
		require.NoError(t, partial.Teardown(context.Background()))
	}

	next := newEnv(t, store, persist.FormatYAML)
	assert.True(t, next.ctx.State().AllSelected, "state of undiscovered tests survives a save")
	assert.True(t, next.test(t, "UI.Opens").Locked)
	assert.True(t, next.test(t, "Physics.Bounces").Selected)
}

func TestRefresh_KeepsState(t *testing.T) {
	env := newEnv(t, fileStore(t), persist.FormatYAML)
	env.ctx.ToggleTest("UI.Opens")
	require.NoError(t, env.ctx.Refresh(context.Background()))
	assert.True(t, env.test(t, "UI.Opens").Selected)
}

func TestDoReset(t *testing.T) {
	store := fileStore(t)
	env := newEnv(t, store, persist.FormatYAML)
	env.ctx.SelectAll()
	env.ctx.ToggleWelcome()
	env.ctx.ToggleDebug()
	require.NoError(t, env.ctx.Save(context.Background()))

	require.NoError(t, env.ctx.DoReset(context.Background()))
	assert.True(t, env.ctx.ShowWelcome())
	assert.False(t, env.ctx.Debug())
	assert.False(t, env.ctx.State().AnySelected)
	assert.Len(t, env.ctx.Tests(), 3)

	_, ok, err := store.Get(context.Background(), "testmgr")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate(t *testing.T) {
	env := newEnv(t, fileStore(t), persist.FormatYAML)
	env.ctx.Update()
	assert.Equal(t, uint64(0), env.sim.Frame())

	require.NoError(t, env.sim.Enter())
	env.ctx.Update()
	env.ctx.Update()
	assert.Equal(t, uint64(2), env.sim.Frame())
	assert.False(t, env.ctx.Scheduler().Running())
}

func TestGoToEmptyScene(t *testing.T) {
	env := newEnv(t, fileStore(t), persist.FormatYAML)
	env.sim.AddSceneObject("Level")
	assert.False(t, env.ctx.State().SceneEmpty)

	require.NoError(t, env.sim.Enter())
	assert.ErrorIs(t, env.ctx.GoToEmptyScene(), ErrSimulationActive)
	assert.Equal(t, 0, env.focus, "the scene was not empty")
	require.NoError(t, env.sim.Exit())

	require.NoError(t, env.ctx.GoToEmptyScene())
	assert.True(t, env.ctx.State().SceneEmpty)
}

func TestContext_View(t *testing.T) {
	env := newEnv(t, fileStore(t), persist.FormatYAML)
	v, ok := env.ctx.View("Physics.Falls")
	require.True(t, ok)
	assert.Equal(t, "World/Physics", v.Path)
	assert.Equal(t, "Falls", v.Name)
	assert.Equal(t, "none", v.Result)

	_, ok = env.ctx.View("Physics")
	assert.False(t, ok)
	assert.False(t, strings.Contains(v.ID, "/"))
}
