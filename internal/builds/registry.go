package builds

import "sort"

// Registry holds every configured server build, ordered by name. Like the
// world registry it is populated once at startup and read-only afterwards.
type Registry struct {
	order  []Build
	byName map[string]Build
}

// NewRegistry builds a registry from the configured builds.
func NewRegistry(all []Build) *Registry {
	order := append([]Build(nil), all...)
	sort.Slice(order, func(i, j int) bool { return order[i].Name() < order[j].Name() })

	byName := make(map[string]Build, len(order))
	for _, b := range order {
		byName[b.Name()] = b
	}

	return &Registry{order: order, byName: byName}
}

// Get returns the build with the given name.
func (r *Registry) Get(name string) (Build, error) {
	b, ok := r.byName[name]
	if !ok {
		return nil, &NotFoundError{Build: name}
	}
	return b, nil
}

// All returns every registered build in name order.
func (r *Registry) All() []Build {
	return append([]Build(nil), r.order...)
}

// Names returns the names of every registered build in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, b := range r.order {
		names = append(names, b.Name())
	}
	return names
}

// Select resolves the build selection flags: explicit names win over the
// all switch, and an unknown name is an error.
func (r *Registry) Select(names []string, all bool) ([]Build, error) {
	if len(names) > 0 {
		selected := make([]Build, 0, len(names))
		for _, name := range names {
			b, err := r.Get(name)
			if err != nil {
				return nil, err
			}
			selected = append(selected, b)
		}
		return selected, nil
	}
	if all {
		return r.All(), nil
	}
	return nil, nil
}
