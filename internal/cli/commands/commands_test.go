package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testmgr/internal/cli"
	"testmgr/internal/config"
	"testmgr/internal/discovery"
	"testmgr/internal/harness"
	"testmgr/internal/manager"
	"testmgr/internal/storage"
)

func demoRegistry() *discovery.Registry {
	r := discovery.NewRegistry()
	r.Suite("Demo").Path("Demo").
		Add("Passes", func(t *harness.T) { t.WaitFrames(1) }).
		Add("Fails", func(t *harness.T) { t.Errorf("boom") })
	return r
}

func execute(t *testing.T, registry *discovery.Registry, args ...string) error {
	t.Helper()
	cfg := config.New()
	var flags cli.Flags
	root := &cobra.Command{Use: "testmgr", SilenceUsage: true, SilenceErrors: true}
	NewCommands(cfg, registry).Register(root, &flags, cfg)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestRunAndReport(t *testing.T) {
	dir := t.TempDir()
	registry := demoRegistry()

	err := execute(t, registry, "run", "--project", dir, "--all", "--tick", "1ms")
	require.Error(t, err)
	assert.Equal(t, "1 test(s) failed", err.Error())

	reports := storage.NewReportStore(filepath.Join(dir, config.DefaultStateDir, config.DefaultReportFile))
	report, err := reports.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Meta.TotalTests)
	assert.Equal(t, 1, report.Meta.PassedTests)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "Demo.Fails", report.Failures[0].ID)

	require.NoError(t, execute(t, registry, "report", "--project", dir))
	require.NoError(t, execute(t, registry, "report", "--project", dir, "--resolve", "Demo.Fails"))
	assert.Error(t, execute(t, registry, "report", "--project", dir, "--resolve", "Demo.Passes"))

	report, err = reports.Load()
	require.NoError(t, err)
	assert.True(t, report.Failures[0].Resolved)

	require.NoError(t, execute(t, registry, "run", "--project", dir, "--filter", "Passes", "--tick", "1ms"))
	report, err = reports.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Meta.TotalTests)
}

func TestRun_NothingSelected(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, execute(t, demoRegistry(), "run", "--project", dir))

	_, err := os.Stat(filepath.Join(dir, config.DefaultStateDir, config.DefaultReportFile))
	assert.True(t, os.IsNotExist(err), "no run, no report")
}

func TestStateListReset(t *testing.T) {
	dir := t.TempDir()
	registry := demoRegistry()

	require.Error(t, execute(t, registry, "run", "--project", dir, "--all", "--tick", "1ms"))
	require.NoError(t, execute(t, registry, "state", "--project", dir, "--json"))
	require.NoError(t, execute(t, registry, "list", "--project", dir, "--expanded"))
	require.NoError(t, execute(t, registry, "list", "--project", dir, "--filter", "Demo/*"))
	require.NoError(t, execute(t, registry, "reset", "--project", dir, "--yes", "--results"))

	cfg, err := config.Load(config.Flags{ProjectPath: dir})
	require.NoError(t, err)
	s, err := openSession(context.Background(), cfg, registry, sessionOptions{})
	require.NoError(t, err)
	st := s.mgr.State()
	assert.True(t, st.AllSelected, "the selection survives clearing results")
	assert.False(t, st.AnyResults)
	require.NoError(t, s.Close(context.Background()))

	require.NoError(t, execute(t, registry, "reset", "--project", dir, "--yes"))
	s, err = openSession(context.Background(), cfg, registry, sessionOptions{})
	require.NoError(t, err)
	assert.False(t, s.mgr.State().AnySelected)
	assert.True(t, s.mgr.ShowWelcome())
	require.NoError(t, s.Close(context.Background()))
}

func TestUnknownBackend(t *testing.T) {
	err := execute(t, demoRegistry(), "state", "--project", t.TempDir(), "--store", "etcd")
	assert.ErrorContains(t, err, "etcd")
}

func TestSession_MergesSourceDirectives(t *testing.T) {
	dir := t.TempDir()
	src := `package demo

type Demo struct{}

//testmgr:test name="Passing test"
func (Demo) Passes() {}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.go"), []byte(src), 0644))

	cfg, err := config.Load(config.Flags{ProjectPath: dir})
	require.NoError(t, err)
	s, err := openSession(context.Background(), cfg, demoRegistry(), sessionOptions{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	test, ok := s.mgr.Test("Demo.Passes")
	require.True(t, ok)
	assert.Equal(t, "Passing test", test.Name)
	assert.Equal(t, "Demo", test.Path, "the registered path wins")
	assert.True(t, strings.HasSuffix(test.Source, "demo.go:6"), test.Source)
	assert.Len(t, s.mgr.Tests(), 2)
}

func TestSession_Publish(t *testing.T) {
	cfg, err := config.Load(config.Flags{ProjectPath: t.TempDir()})
	require.NoError(t, err)
	s, err := openSession(context.Background(), cfg, demoRegistry(), sessionOptions{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	s.mgr.SelectAll()
	require.True(t, s.mgr.RunSelected())
	s.update()

	st, ok := s.statusSnapshot().(manager.State)
	require.True(t, ok)
	assert.True(t, st.Running)
	assert.Equal(t, 2, st.Total)
	v, ok := s.lookup("Demo.Fails")
	require.True(t, ok)
	assert.Equal(t, "Demo", v.(manager.TestView).Path)
	_, ok = s.lookup("Demo.Missing")
	assert.False(t, ok)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yes", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := confirm(strings.NewReader(tt.input), &out, "Reset?"); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Reset? [y/N] " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}
