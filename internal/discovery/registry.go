package discovery

import (
	"context"
	"sync"
	"time"

	"testmgr/internal/domain"
	"testmgr/internal/harness"
	"testmgr/internal/sim"
)

// Registry holds tests registered in-process. It is safe for concurrent registration.
type Registry struct {
	mu     sync.Mutex
	suites []*Suite
	byType map[string]*Suite
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string]*Suite)}
}

// Suite groups the tests declared on one type. Suite-level hooks and path apply to every test
// that does not set its own.
type Suite struct {
	registry *Registry
	typ      string
	path     string
	setup    harness.SetupFunc
	teardown harness.TeardownFunc
	tests    []Descriptor
}

// Suite returns the suite for typ, creating it on first use.
func (r *Registry) Suite(typ string) *Suite {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byType[typ]; ok {
		return s
	}
	s := &Suite{registry: r, typ: typ}
	r.suites = append(r.suites, s)
	r.byType[typ] = s
	return s
}

// Path sets the default group path of the suite's tests.
func (s *Suite) Path(p string) *Suite {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	s.path = p
	return s
}

// Setup sets the default setup hook of the suite's tests.
func (s *Suite) Setup(fn harness.SetupFunc) *Suite {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	s.setup = fn
	return s
}

// Teardown sets the default teardown hook of the suite's tests.
func (s *Suite) Teardown(fn harness.TeardownFunc) *Suite {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	s.teardown = fn
	return s
}

// Option configures a registered test.
type Option func(d *Descriptor)

// WithPath places the test in group p.
func WithPath(p string) Option {
	return func(d *Descriptor) { d.Path = p }
}

// WithName sets the display name.
func WithName(name string) Option {
	return func(d *Descriptor) { d.Name = name }
}

// WithTimeout fails the test when it is still waiting after timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Descriptor) { d.Timeout = timeout }
}

// WithResource sets the resource handed to setup.
func WithResource(ref string) Option {
	return func(d *Descriptor) { d.Resource = sim.Resource{Ref: ref} }
}

// WithSetup overrides the setup hook.
func WithSetup(fn harness.SetupFunc) Option {
	return func(d *Descriptor) { d.Setup = fn }
}

// WithTeardown overrides the teardown hook.
func WithTeardown(fn harness.TeardownFunc) Option {
	return func(d *Descriptor) { d.Teardown = fn }
}

// Add registers method with body. Registering a method twice replaces the first registration.
func (s *Suite) Add(method string, body harness.Body, opts ...Option) *Suite {
	d := Descriptor{ID: domain.TestID{Type: s.typ, Method: method}, Body: body}
	for _, opt := range opts {
		opt(&d)
	}

	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	for i := range s.tests {
		if s.tests[i].ID == d.ID {
			s.tests[i] = d
			return s
		}
	}
	s.tests = append(s.tests, d)
	return s
}

// Discover implements Provider. Tests come out in registration order.
func (r *Registry) Discover(_ context.Context) ([]Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Descriptor
	for _, s := range r.suites {
		for _, d := range s.tests {
			if d.Path == "" {
				d.Path = s.path
			}
			if d.Setup == nil {
				d.Setup = s.setup
			}
			if d.Teardown == nil {
				d.Teardown = s.teardown
			}
			out = append(out, d)
		}
	}
	return out, nil
}

// Len returns the number of registered tests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.suites {
		n += len(s.tests)
	}
	return n
}
