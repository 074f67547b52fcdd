// Package memory provides a thread-safe in-memory implementation of
// clients.Registry. Suitable for testing, demos, and single-process use.
package memory

import (
	"sort"
	"sync"

	"github.com/jmcleod/tokencert/clients"
)

// Registry is a thread-safe in-memory implementation of clients.Registry.
type Registry struct {
	mu  sync.RWMutex
	ids map[string]clients.ID
}

var _ clients.Registry = (*Registry)(nil)

// NewRegistry creates a new empty in-memory Registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]clients.ID)}
}

func (r *Registry) Add(id clients.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id.String()] = id
	return nil
}

func (r *Registry) Exists(id clients.ID, includeSubsystems bool) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.ids[id.String()]; ok {
		return true, nil
	}
	if includeSubsystems && !id.IsSubsystem() {
		for _, known := range r.ids {
			if known.Member() == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *Registry) IsLocalMember(id clients.ID) (bool, error) {
	return r.Exists(id.Member(), true)
}

func (r *Registry) List() ([]clients.ID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]clients.ID, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
