package service

import (
	"sort"
	"sync"

	"smarttest/internal/application/port/output"
)

var _ output.ActionRegistry = (*ActionRegistryImpl)(nil)

type ActionRegistryImpl struct {
	mu      sync.RWMutex
	actions map[string]output.ActionPort
}

func NewActionRegistry() *ActionRegistryImpl {
	return &ActionRegistryImpl{
		actions: make(map[string]output.ActionPort),
	}
}

func (r *ActionRegistryImpl) Register(action output.ActionPort) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[action.Name()] = action
}

func (r *ActionRegistryImpl) Get(name string) (output.ActionPort, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.actions[name]
	return action, ok
}

// All returns the registered actions sorted by name.
func (r *ActionRegistryImpl) All() []output.ActionPort {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]output.ActionPort, 0, len(r.actions))
	for _, action := range r.actions {
		result = append(result, action)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

func (r *ActionRegistryImpl) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, a := range all {
		names[i] = a.Name()
	}
	return names
}
