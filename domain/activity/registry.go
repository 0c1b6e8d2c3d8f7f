package activity

import (
	"sort"
	"sync"
)

// Registry manages activity definitions.
type Registry struct {
	activities map[string]*Activity
	mu         sync.RWMutex
}

// NewRegistry creates a new empty activity registry.
func NewRegistry() *Registry {
	return &Registry{
		activities: make(map[string]*Activity),
	}
}

// Register adds an activity, replacing any with the same name.
func (r *Registry) Register(a *Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities[a.Name] = a
}

// Get retrieves an activity by name. Returns nil if not found.
func (r *Registry) Get(name string) *Activity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activities[name]
}

// Count returns the number of registered activities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activities)
}

// Enabled returns the enabled activities sorted by Order, then Name.
func (r *Registry) Enabled() []*Activity {
	r.mu.RLock()
	out := make([]*Activity, 0, len(r.activities))
	for _, a := range r.activities {
		if a.Enabled {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}
