package plugin

import "sort"

// Registry owns the set of loaded plugin runtimes. Registration happens
// strictly at startup from a single goroutine; afterwards the registry is
// read-only, so iteration needs no locking.
type Registry struct {
	order  []*Runtime
	byName map[string]*Runtime
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Runtime)}
}

// Register adds a runtime. A duplicate name fails with
// *DuplicateNameError and leaves the registry unchanged.
func (r *Registry) Register(rt *Runtime) error {
	name := rt.Name()
	if _, exists := r.byName[name]; exists {
		return &DuplicateNameError{Name: name}
	}

	r.order = append(r.order, rt)
	r.byName[name] = rt
	return nil
}

// Get returns the runtime registered under name.
func (r *Registry) Get(name string) (*Runtime, error) {
	rt, ok := r.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return rt, nil
}

// All returns every runtime in registration order.
func (r *Registry) All() []*Runtime {
	return append([]*Runtime(nil), r.order...)
}

// OrderedForInit returns every runtime sorted by init priority,
// ascending. The sort is stable: equal priorities keep registration
// order, which is deterministic across runs.
func (r *Registry) OrderedForInit() []*Runtime {
	return r.sorted(func(rt *Runtime) int { return rt.Describe().InitPriority })
}

// OrderedForFinish returns every runtime sorted by finish priority,
// ascending, with the same tie-breaking as OrderedForInit.
func (r *Registry) OrderedForFinish() []*Runtime {
	return r.sorted(func(rt *Runtime) int { return rt.Describe().FinishPriority })
}

func (r *Registry) sorted(priority func(*Runtime) int) []*Runtime {
	out := append([]*Runtime(nil), r.order...)
	sort.SliceStable(out, func(i, j int) bool {
		return priority(out[i]) < priority(out[j])
	})
	return out
}
