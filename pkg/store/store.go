package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lukeeey/bibliothek-build-monitor/pkg/store/params"
)

var (
	ErrConnectFailed       = errors.New("connect failed")
	ErrDriverConfiguration = errors.New("driver configuration")
	ErrUnknownDriver       = errors.New("unknown driver")
	ErrNotFound            = errors.New("not found")
	ErrOperationFailed     = errors.New("operation failed")
)

// Driver is the interface to access a document database as a Store.
// Each database provider implements a Driver.
type Driver interface {
	// Open opens access to the database store. Implementations give access to the same
	// storage based on the params.
	Open(ctx context.Context, params params.Store) (Store, error)
}

// Store is the document store holding the project / version-group / version hierarchy and
// the builds recorded under it.
//
// The GetOrCreate operations are atomic find-or-create: they return the post-operation
// document, so concurrent callers racing on the same key all observe a single document.
// InsertBuild is append-only and never deduplicates.
type Store interface {
	// GetOrCreateProject returns the project named name, creating it with the given
	// friendly name if it does not exist.
	GetOrCreateProject(ctx context.Context, name, friendlyName string) (*Project, error)

	// GetOrCreateVersionGroup returns the version group named name under the given
	// project, creating it if it does not exist.
	GetOrCreateVersionGroup(ctx context.Context, projectID, name string) (*VersionGroup, error)

	// GetOrCreateVersion returns the version named name under the given project,
	// creating it under the given version group if it does not exist.
	GetOrCreateVersion(ctx context.Context, projectID, groupID, name string) (*Version, error)

	// InsertBuild records a new build and returns its generated ID. It always inserts -
	// recording the same (project, version, number) again produces a second document.
	InsertBuild(ctx context.Context, build *Build) (string, error)

	// Close access to the database store. After calling Close the instance is unusable.
	Close()
}

// map drivers implementation
var (
	drivers   = make(map[string]Driver)
	driversMu sync.RWMutex
)

// Register 'driver' implementation under 'name'. Panic in case of empty name, nil driver
// or name already registered.
func Register(name string, driver Driver) {
	if name == "" {
		panic("store register name is missing")
	}
	if driver == nil {
		panic("store Register driver is nil")
	}
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, found := drivers[name]; found {
		panic("store Register driver already registered " + name)
	}
	drivers[name] = driver
}

// Open lookup driver by params.Type and return a Store connected based on params.
// Failed with ErrUnknownDriver in case the type is not registered.
func Open(ctx context.Context, params params.Store) (Store, error) {
	driversMu.RLock()
	d, ok := drivers[params.Type]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("open store %s: %w", params.Type, ErrUnknownDriver)
	}
	return d.Open(ctx, params)
}

// Drivers returns a list of registered drive names
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}
