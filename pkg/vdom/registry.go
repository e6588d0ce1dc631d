package vdom

import "sync"

// Registry deduplicates templates by name. The first template registered
// under a name wins; later registrations return it unchanged.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// Register adds t if no template with its name is known and returns the
// canonical template for that name.
func (r *Registry) Register(t *Template) *Template {
	r.mu.RLock()
	existing, ok := r.templates[t.Name]
	r.mu.RUnlock()
	if ok {
		return existing
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.templates[t.Name]; ok {
		return existing
	}
	r.templates[t.Name] = t
	r.order = append(r.order, t.Name)
	return t
}

// Lookup returns the template registered under name.
func (r *Registry) Lookup(name string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	return t, ok
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}

// Names returns registered template names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
