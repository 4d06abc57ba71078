package mem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/store"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/store/params"
)

const DriverName = "mem"

type Driver struct{}

// Store is an in-memory document store used for testing and local development.
// Hierarchy documents are held in maps keyed by their identity fields, so
// find-or-create is atomic under the store mutex.
type Store struct {
	mu       sync.Mutex
	projects map[string]*store.Project
	groups   map[groupKey]*store.VersionGroup
	versions map[groupKey]*store.Version
	builds   []*store.Build
}

type groupKey struct {
	projectID string
	name      string
}

func (d *Driver) Open(_ context.Context, _ params.Store) (store.Store, error) {
	return New(), nil
}

//nolint:gochecknoinits
func init() {
	store.Register(DriverName, &Driver{})
}

func New() *Store {
	return &Store{
		projects: make(map[string]*store.Project),
		groups:   make(map[groupKey]*store.VersionGroup),
		versions: make(map[groupKey]*store.Version),
	}
}

func (s *Store) GetOrCreateProject(_ context.Context, name, friendlyName string) (*store.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[name]; ok {
		cp := *p
		return &cp, nil
	}
	p := &store.Project{
		ID:           uuid.NewString(),
		Name:         name,
		FriendlyName: friendlyName,
	}
	s.projects[name] = p
	cp := *p
	return &cp, nil
}

func (s *Store) GetOrCreateVersionGroup(_ context.Context, projectID, name string) (*store.VersionGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := groupKey{projectID: projectID, name: name}
	if g, ok := s.groups[key]; ok {
		cp := *g
		return &cp, nil
	}
	g := &store.VersionGroup{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
	}
	s.groups[key] = g
	cp := *g
	return &cp, nil
}

func (s *Store) GetOrCreateVersion(_ context.Context, projectID, groupID, name string) (*store.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := groupKey{projectID: projectID, name: name}
	if v, ok := s.versions[key]; ok {
		cp := *v
		return &cp, nil
	}
	v := &store.Version{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		GroupID:   groupID,
		Name:      name,
		Time:      time.Now().UTC(),
	}
	s.versions[key] = v
	cp := *v
	return &cp, nil
}

func (s *Store) InsertBuild(_ context.Context, build *store.Build) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *build
	cp.ID = uuid.NewString()
	s.builds = append(s.builds, &cp)
	return cp.ID, nil
}

func (s *Store) Close() {}

// Projects returns a snapshot of all projects, used by tests.
func (s *Store) Projects() []*store.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.Project, 0, len(s.projects))
	for _, p := range s.projects {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// VersionGroups returns a snapshot of all version groups, used by tests.
func (s *Store) VersionGroups() []*store.VersionGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.VersionGroup, 0, len(s.groups))
	for _, g := range s.groups {
		cp := *g
		out = append(out, &cp)
	}
	return out
}

// Versions returns a snapshot of all versions, used by tests.
func (s *Store) Versions() []*store.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.Version, 0, len(s.versions))
	for _, v := range s.versions {
		cp := *v
		out = append(out, &cp)
	}
	return out
}

// Builds returns a snapshot of all recorded builds in insertion order, used by tests.
func (s *Store) Builds() []*store.Build {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.Build, 0, len(s.builds))
	for _, b := range s.builds {
		cp := *b
		out = append(out, &cp)
	}
	return out
}
