package checks

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Registry holds the known checks. All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	checks   map[string]Check
	disabled map[string]bool
}

// Filter selects a subset of the registry. Zero-value fields match
// everything.
type Filter struct {
	Category  Category
	Framework string
	Tags      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		checks:   make(map[string]Check),
		disabled: make(map[string]bool),
	}
}

// Register adds a check. Duplicate ids are rejected.
func (r *Registry) Register(c Check) error {
	def := c.Definition()
	if def.ID == "" {
		return errors.New("check has no id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.checks[def.ID]; ok {
		return errors.Errorf("check %q already registered", def.ID)
	}
	r.checks[def.ID] = c
	return nil
}

// Get returns a check by id. Disabled checks are still returned; callers
// that honor enablement use List.
func (r *Registry) Get(id string) (Check, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.checks[id]
	return c, ok
}

// SetEnabled toggles a check without unregistering it.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.checks[id]; !ok {
		return errors.Errorf("unknown check %q", id)
	}
	r.disabled[id] = !enabled
	return nil
}

// List returns the definitions of enabled checks matching the filter,
// sorted by id.
func (r *Registry) List(filter Filter) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var defs []Definition
	for id, c := range r.checks {
		if r.disabled[id] {
			continue
		}
		def := c.Definition()
		if filter.matches(def) {
			defs = append(defs, def)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// ForFramework returns the enabled checks tagged with the framework, sorted
// by id.
func (r *Registry) ForFramework(framework string) []Check {
	defs := r.List(Filter{Framework: framework})

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Check, 0, len(defs))
	for _, def := range defs {
		result = append(result, r.checks[def.ID])
	}
	return result
}

func (f Filter) matches(def Definition) bool {
	if f.Category != "" && def.Category != f.Category {
		return false
	}
	if f.Framework != "" && !containsFold(def.Frameworks, f.Framework) {
		return false
	}
	for _, tag := range f.Tags {
		if !containsFold(def.Tags, tag) {
			return false
		}
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
