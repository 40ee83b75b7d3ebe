package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// TrackerFactory is a function that creates a new IssueTracker instance.
type TrackerFactory func() IssueTracker

// Registry maps tracker names to factories. Integrations register
// themselves at init time.
type Registry struct {
	mu       sync.RWMutex
	trackers map[string]TrackerFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]TrackerFactory)}
}

var globalRegistry = NewRegistry()

// Register adds a tracker factory to the global registry.
// The name should be lowercase (e.g., "jira").
func Register(name string, factory TrackerFactory) {
	globalRegistry.Register(name, factory)
}

// Open creates the tracker named by ep.Type in the global registry and
// initializes it. An empty type selects "jira".
func Open(ctx context.Context, ep Endpoint) (IssueTracker, error) {
	return globalRegistry.Open(ctx, ep)
}

// Register adds a tracker factory to this registry.
func (r *Registry) Register(name string, factory TrackerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers[name] = factory
}

// Get retrieves a tracker factory from this registry.
func (r *Registry) Get(name string) TrackerFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trackers[name]
}

// List returns the names of all registered trackers, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.trackers))
	for name := range r.trackers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewTracker creates a new instance of the named tracker.
func (r *Registry) NewTracker(name string) (IssueTracker, error) {
	factory := r.Get(name)
	if factory == nil {
		return nil, fmt.Errorf("unknown tracker %q (available: %v)", name, r.List())
	}
	return factory(), nil
}

// Open creates and initializes the tracker for ep.
func (r *Registry) Open(ctx context.Context, ep Endpoint) (IssueTracker, error) {
	name := ep.Type
	if name == "" {
		name = "jira"
	}
	t, err := r.NewTracker(name)
	if err != nil {
		return nil, err
	}
	if err := t.Init(ctx, ep); err != nil {
		return nil, fmt.Errorf("init %s tracker for %s: %w", name, ep.URL, err)
	}
	return t, nil
}
