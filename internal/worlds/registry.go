package worlds

import (
	"context"
	"sort"
)

// Registry holds every configured world, ordered by name so iteration is
// deterministic across runs. The registry is populated once at startup and
// is read-only afterwards.
type Registry struct {
	order  []World
	byName map[string]World
}

// NewRegistry builds a registry from the configured worlds. The input
// order does not matter; worlds are kept sorted by name.
func NewRegistry(all []World) *Registry {
	order := append([]World(nil), all...)
	sort.Slice(order, func(i, j int) bool { return order[i].Name() < order[j].Name() })

	byName := make(map[string]World, len(order))
	for _, w := range order {
		byName[w.Name()] = w
	}

	return &Registry{order: order, byName: byName}
}

// Get returns the world with the given name.
func (r *Registry) Get(name string) (World, error) {
	w, ok := r.byName[name]
	if !ok {
		return nil, &NotFoundError{World: name}
	}
	return w, nil
}

// All returns every registered world in name order.
func (r *Registry) All() []World {
	return append([]World(nil), r.order...)
}

// Names returns the names of every registered world in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, w := range r.order {
		names = append(names, w.Name())
	}
	return names
}

// Select resolves the world selection flags: explicit names win over the
// all switch, and an unknown name is an error.
func (r *Registry) Select(names []string, all bool) ([]World, error) {
	if len(names) > 0 {
		selected := make([]World, 0, len(names))
		for _, name := range names {
			w, err := r.Get(name)
			if err != nil {
				return nil, err
			}
			selected = append(selected, w)
		}
		return selected, nil
	}
	if all {
		return r.All(), nil
	}
	return nil, nil
}

// BoundTo returns every world bound to the named server build, in
// registry order.
func (r *Registry) BoundTo(build string) []World {
	var bound []World
	for _, w := range r.order {
		if w.BuildName() == build {
			bound = append(bound, w)
		}
	}
	return bound
}

// OnlineBoundTo returns every world bound to the named server build whose
// process is currently online. The online status is queried live, so the
// result is a snapshot taken at call time.
func (r *Registry) OnlineBoundTo(ctx context.Context, build string) []World {
	var online []World
	for _, w := range r.BoundTo(build) {
		if w.IsOnline(ctx) {
			online = append(online, w)
		}
	}
	return online
}
