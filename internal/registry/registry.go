package registry

import (
	"fmt"
	"sort"
	"sync"

	"shagym.org/internal/workflow"
)

// Registry is the read-only user directory. Records are immutable once
// seeded; the workflow engine only ever looks users up.
type Registry struct {
	mu    sync.RWMutex
	users map[string]workflow.User
	order []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{users: make(map[string]workflow.User)}
}

// NewSeeded returns a registry preloaded with the demo accounts.
func NewSeeded() *Registry {
	r := New()
	for _, u := range SeedUsers() {
		r.add(u)
	}
	return r
}

// SeedUsers lists the demo accounts that ship with the system.
func SeedUsers() []workflow.User {
	return []workflow.User{
		{ID: "user-1", Name: "Alice (Complainer)", Role: workflow.RoleComplainer},
		{ID: "user-2", Name: "Bob (Inspector)", Role: workflow.RoleInspector},
		{ID: "user-3", Name: "Charlie (Commissioner)", Role: workflow.RoleCommissioner},
		{ID: "user-4", Name: "Diana (Prosecutor)", Role: workflow.RoleProsecutor},
		{ID: "user-5", Name: "Eve (Inspector)", Role: workflow.RoleInspector},
	}
}

func (r *Registry) add(u workflow.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; ok {
		return
	}
	r.users[u.ID] = u
	r.order = append(r.order, u.ID)
}

// Lookup resolves a user id.
func (r *Registry) Lookup(id string) (workflow.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return workflow.User{}, fmt.Errorf("%w: user %s", workflow.ErrNotFound, id)
	}
	return u, nil
}

// List returns every user in seed order.
func (r *Registry) List() []workflow.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]workflow.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.users[id])
	}
	return out
}

// ListByRole returns the users holding the given role, sorted by id.
func (r *Registry) ListByRole(role workflow.Role) []workflow.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []workflow.User
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
