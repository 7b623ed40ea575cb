package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"testmgr/internal/config"
	"testmgr/internal/discovery"
	"testmgr/internal/execution"
	"testmgr/internal/logging"
	"testmgr/internal/manager"
	"testmgr/internal/metrics"
	"testmgr/internal/paths"
	"testmgr/internal/persist"
	"testmgr/internal/sim"
	"testmgr/internal/storage"
)

// session is one use of the manager by a command: it opens the store, discovers the tests and
// restores the persisted state, and saves it again on Close.
type session struct {
	cfg     *config.Config
	log     *logging.Logger
	logFile *os.File
	sim     *sim.Simulation
	store   storage.Store
	reports *storage.ReportStore
	metrics *metrics.Metrics
	server  *metrics.Server
	mgr     *manager.Context

	mu     sync.RWMutex
	status manager.State
	views  map[string]manager.TestView
}

type sessionOptions struct {
	// logToFile sends log lines to the state directory instead of stderr, for the TUI.
	logToFile bool
	recorders []execution.Recorder
	sinks     []execution.ReportSink
}

// newProvider discovers the registered tests and the //testmgr:test directives below the
// configured roots. Registered attributes win over the ones found in source.
func newProvider(cfg *config.Config, registry *discovery.Registry, log *logging.Logger) discovery.Provider {
	var roots []paths.Root
	for _, dir := range cfg.GetRoots() {
		roots = append(roots, paths.Root{Name: filepath.Base(dir), Dir: dir})
	}
	scanner := discovery.NewScanner(cfg.PathsToIgnore, cfg.IgnoreGlobs)
	source := discovery.NewSourceScanner(roots, scanner, log.Component("discovery"))
	source.SetWorkers(cfg.Workers)
	return discovery.Merge(registry, source)
}

func openSession(ctx context.Context, cfg *config.Config, registry *discovery.Registry, opts sessionOptions) (*session, error) {
	s := &session{cfg: cfg, sim: sim.New(), views: make(map[string]manager.TestView)}

	var out io.Writer = os.Stderr
	if opts.logToFile {
		if err := os.MkdirAll(cfg.GetStateDir(), 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(cfg.GetStateDir(), "testmgr.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		s.logFile = f
		out = f
	}
	log, err := logging.New(out, cfg.LogLevel)
	if err != nil {
		s.closeLog()
		return nil, err
	}
	s.log = log

	format, err := persist.ParseFormat(cfg.StateFormat)
	if err != nil {
		s.closeLog()
		return nil, err
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		s.closeLog()
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}
	s.store = store
	s.reports = storage.NewReportStore(cfg.GetReportPath())
	s.metrics = metrics.New()

	recorders := append([]execution.Recorder{s.metrics}, opts.recorders...)
	sinks := append([]execution.ReportSink{s.reports, s.metrics}, opts.sinks...)

	s.mgr = manager.New(manager.Options{
		Provider:  newProvider(cfg, registry, log),
		Sim:       s.sim,
		Store:     store,
		Key:       cfg.Store.Key,
		Format:    format,
		Log:       log,
		Recorders: recorders,
		Sinks:     sinks,
		OnFocus: func() {
			log.Component("manager").Debug("entered the simulation with an empty scene")
		},
	})
	if err := s.mgr.Init(ctx); err != nil {
		_ = store.Close()
		s.closeLog()
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	s.publish()
	return s, nil
}

// serveMetrics starts the metrics server when an address is configured.
func (s *session) serveMetrics() error {
	if s.cfg.MetricsAddr == "" {
		return nil
	}
	s.server = metrics.NewServer(s.metrics, s.statusSnapshot, s.lookup, s.log.Component("metrics"))
	_, err := s.server.Start(s.cfg.MetricsAddr)
	return err
}

// update ticks the manager and publishes the new state for the metrics server.
func (s *session) update() {
	s.mgr.Update()
	s.publish()
}

// publish copies the manager state for readers on other goroutines.
func (s *session) publish() {
	status := s.mgr.State()
	views := make(map[string]manager.TestView, len(s.views))
	for _, test := range s.mgr.Tests() {
		id := test.ID.String()
		views[id], _ = s.mgr.View(id)
	}

	s.mu.Lock()
	s.status = status
	s.views = views
	s.mu.Unlock()
}

func (s *session) statusSnapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *session) lookup(id string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[id]
	return v, ok
}

// Close saves the state and releases the store.
func (s *session) Close(ctx context.Context) error {
	err := s.mgr.Teardown(ctx)
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := s.server.Shutdown(shutdownCtx); serr != nil {
			s.log.WithError(serr).Warn("could not stop the metrics server")
		}
	}
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.closeLog()
	return err
}

func (s *session) closeLog() {
	if s.logFile != nil {
		_ = s.logFile.Close()
		s.logFile = nil
	}
}
