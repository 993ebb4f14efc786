package realtime

import (
	"sync"

	"taskboard/domain"
)

// Registry is the in-memory source of truth for which users are online.
// Descriptors live exactly as long as their connection.
type Registry struct {
	mu    sync.Mutex
	users map[string]domain.User
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]domain.User)}
}

// Upsert stores the descriptor for its connection, replacing any previous
// one. Re-identification is last write wins.
func (r *Registry) Upsert(u domain.User) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ConnectionID]; !ok {
		r.order = append(r.order, u.ConnectionID)
	}
	r.users[u.ConnectionID] = u
	return u
}

// Remove deletes the descriptor for the connection. ok is false when the
// connection never identified; that is not an error.
func (r *Registry) Remove(connectionID string) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[connectionID]
	if !ok {
		return domain.User{}, false
	}
	delete(r.users, connectionID)
	for i, id := range r.order {
		if id == connectionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return u, true
}

// Get looks up the descriptor for a connection.
func (r *Registry) Get(connectionID string) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[connectionID]
	return u, ok
}

// List returns all descriptors in insertion order.
func (r *Registry) List() []domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.users[id])
	}
	return out
}
