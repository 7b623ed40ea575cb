package sim

import (
	"errors"
	"fmt"
	"sync"
)

// Names of the objects a freshly created default scene contains.
const (
	DefaultCameraName = "Main Camera"
	DefaultLightName  = "Directional Light"
)

// ErrNotActive is returned when a scene operation needs the simulation to be running.
var ErrNotActive = errors.New("simulation is not active")

// Host is the live simulation as seen by the scheduler.
type Host interface {
	IsActive() bool
	Enter() error
	Exit() error
	IsEmpty() bool
}

// Resource is a handle to something a test setup can instantiate, like a prefab.
// The zero value is the default resource: an empty object.
type Resource struct {
	Ref string `json:"ref,omitempty" yaml:"ref,omitempty"`
}

// IsZero reports whether r is the default resource.
func (r Resource) IsZero() bool {
	return r.Ref == ""
}

// Object is an instance living in the simulation's scene.
type Object struct {
	ID     int
	Name   string
	Source Resource
}

// Simulation is an in-process live simulation: a scene of objects advanced one frame per Step.
type Simulation struct {
	mu      sync.Mutex
	active  bool
	frame   uint64
	nextID  int
	objects []*Object

	onStateChange func(active bool)
}

// New creates a Simulation with a default scene (camera and light).
func New() *Simulation {
	s := &Simulation{}
	s.resetScene(true)
	return s
}

// OnStateChange registers a callback invoked after Enter and Exit change the active state.
func (s *Simulation) OnStateChange(fn func(active bool)) {
	s.mu.Lock()
	s.onStateChange = fn
	s.mu.Unlock()
}

// IsActive reports whether the simulation is in play mode.
func (s *Simulation) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Enter starts play mode. Entering an active simulation is a no-op.
func (s *Simulation) Enter() error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = true
	s.frame = 0
	fn := s.onStateChange
	s.mu.Unlock()

	if fn != nil {
		fn(true)
	}
	return nil
}

// Exit leaves play mode and discards every object instantiated while playing.
func (s *Simulation) Exit() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	kept := s.objects[:0]
	for _, o := range s.objects {
		if o.ID <= 0 {
			kept = append(kept, o)
		}
	}
	s.objects = kept
	fn := s.onStateChange
	s.mu.Unlock()

	if fn != nil {
		fn(false)
	}
	return nil
}

// Step advances one frame while active.
func (s *Simulation) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.frame++
	}
}

// Frame returns the number of frames stepped since the last Enter.
func (s *Simulation) Frame() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// IsEmpty reports whether the scene holds nothing, or only the default camera and light.
func (s *Simulation) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return isEmptyScene(s.objects)
}

func isEmptyScene(objects []*Object) bool {
	if len(objects) == 0 {
		return true
	}
	if len(objects) != 2 {
		return false
	}
	return objects[0].Name == DefaultCameraName && objects[1].Name == DefaultLightName
}

// NewEmptyScene replaces the scene with an empty one. It is refused while playing.
func (s *Simulation) NewEmptyScene() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return errors.New("cannot replace the scene while the simulation is active")
	}
	s.resetScene(false)
	return nil
}

// AddSceneObject places an authored object in the scene. Authored objects survive Exit.
func (s *Simulation) AddSceneObject(name string) *Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := &Object{ID: -(len(s.objects) + 1), Name: name}
	s.objects = append(s.objects, o)
	return o
}

// Instantiate creates a runtime copy of res in the scene.
func (s *Simulation) Instantiate(res Resource) (*Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil, ErrNotActive
	}
	s.nextID++
	name := res.Ref
	if name == "" {
		name = "New Object"
	}
	o := &Object{ID: s.nextID, Name: fmt.Sprintf("%s (Clone)", name), Source: res}
	s.objects = append(s.objects, o)
	return o, nil
}

// Destroy removes o from the scene. Destroying an unknown object is a no-op.
func (s *Simulation) Destroy(o *Object) {
	if o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.objects {
		if cur == o {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			return
		}
	}
}

// Objects returns the names of the objects currently in the scene.
func (s *Simulation) Objects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.objects))
	for _, o := range s.objects {
		names = append(names, o.Name)
	}
	return names
}

func (s *Simulation) resetScene(withDefaults bool) {
	s.objects = nil
	if withDefaults {
		s.objects = []*Object{
			{ID: -1, Name: DefaultCameraName},
			{ID: -2, Name: DefaultLightName},
		}
	}
}
