package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittoiod/pkg/group"
	"github.com/marmos91/dittoiod/pkg/store/object"
)

// Registry manages the named containers served by one process.
// It provides thread-safe registration and lookup.
//
// Each registered container has its root group bootstrapped and the root's
// handle pair held open for the lifetime of the registration, so requests
// can resolve paths from the root without reopening it.
//
// Example usage:
//
//	reg := NewRegistry()
//	reg.AddContainer(ctx, &ContainerConfig{Name: "main", Container: c, Handler: h})
//
//	entry, _ := reg.Get("main")
//	req := &group.CreateRequest{Container: entry.Container, LocID: group.RootID, LocHandles: entry.Root}
type Registry struct {
	mu         sync.RWMutex
	containers map[string]*Entry
}

// Entry is a registered container.
type Entry struct {
	Name      string
	Container object.Container

	// SessionID identifies this registration in logs and replies
	SessionID uuid.UUID

	// Root is the root group's open handle pair, owned by the registry
	Root object.HandlePair

	Added time.Time
}

// ContainerConfig describes a container to register.
type ContainerConfig struct {
	Name      string
	Container object.Container
	Handler   *group.Handler

	// BootstrapTrans is the write transaction the root group is created
	// under if the container is empty
	BootstrapTrans object.TransID

	ChecksumScope group.ChecksumScope
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{containers: make(map[string]*Entry)}
}

// AddContainer registers a container. This method:
//  1. Validates that the name is free
//  2. Creates the root group if the container has none
//  3. Opens the root group and keeps its handles
//
// Returns an error if the name is taken or the root cannot be prepared.
func (r *Registry) AddContainer(ctx context.Context, config *ContainerConfig) (*Entry, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("cannot add container with empty name")
	}
	if config.Container == nil || config.Handler == nil {
		return nil, fmt.Errorf("container %q: container and handler are required", config.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.containers[config.Name]; exists {
		return nil, fmt.Errorf("container %q already registered", config.Name)
	}

	if _, err := config.Handler.Bootstrap(ctx, config.Container, config.BootstrapTrans, config.ChecksumScope); err != nil {
		return nil, fmt.Errorf("failed to bootstrap container %q: %w", config.Name, err)
	}
	root, err := group.OpenRoot(ctx, config.Container)
	if err != nil {
		return nil, fmt.Errorf("failed to open root of container %q: %w", config.Name, err)
	}

	entry := &Entry{
		Name:      config.Name,
		Container: config.Container,
		SessionID: uuid.New(),
		Root:      root,
		Added:     time.Now(),
	}
	r.containers[config.Name] = entry
	return entry, nil
}

// Get retrieves a container by name.
func (r *Registry) Get(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.containers[name]
	if !exists {
		return nil, fmt.Errorf("container %q not found", name)
	}
	return entry, nil
}

// Names returns the registered container names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.containers))
	for name := range r.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered containers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.containers)
}

// Remove unregisters a container, releasing its root handles and closing
// it.
func (r *Registry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	entry, exists := r.containers[name]
	if exists {
		delete(r.containers, name)
	}
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("container %q not found", name)
	}
	return entry.close(ctx)
}

// CloseAll unregisters and closes every container.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	entries := r.containers
	r.containers = make(map[string]*Entry)
	r.mu.Unlock()

	var errs []error
	for _, entry := range entries {
		if err := entry.close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Entry) close(ctx context.Context) error {
	errRd := e.Container.CloseObject(ctx, e.Root.Read)
	errWr := e.Container.CloseObject(ctx, e.Root.Write)
	errClose := e.Container.Close()
	if err := errors.Join(errRd, errWr, errClose); err != nil {
		return fmt.Errorf("failed to close container %q: %w", e.Name, err)
	}
	return nil
}
