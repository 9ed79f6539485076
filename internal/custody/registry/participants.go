// Package registry holds the in-memory participant and evidence state the
// custody service mutates. Registries keep insertion order and are safe for
// concurrent readers; all writes flow through the service, which serialises
// mutating operations.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/forensic-chain/forchain/internal/custody/model"
)

// ParticipantRegistry is the append-only identity → participant mapping.
// Participants are never edited or removed.
type ParticipantRegistry struct {
	mu    sync.RWMutex
	byID  map[string]*model.Participant
	order []string
}

// NewParticipantRegistry creates an empty registry.
func NewParticipantRegistry() *ParticipantRegistry {
	return &ParticipantRegistry{byID: make(map[string]*model.Participant)}
}

// Register creates a participant record. The role must be one of the
// enumerated set and the identifier must be unused.
func (r *ParticipantRegistry) Register(id, name string, role model.Role, organization string) (*model.Participant, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("role %q: %w", role, model.ErrInvalidRole)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; ok {
		return nil, fmt.Errorf("participant %q: %w", id, model.ErrDuplicateID)
	}

	p := &model.Participant{
		ParticipantID: id,
		Name:          name,
		Role:          role,
		Organization:  organization,
		CreatedAt:     time.Now().UTC(),
	}
	r.byID[id] = p
	r.order = append(r.order, id)
	return p, nil
}

// Get returns the participant with the given identifier.
func (r *ParticipantRegistry) Get(id string) (*model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("participant %q: %w", id, model.ErrNotFound)
	}
	return p, nil
}

// Exists reports whether a participant with the given identifier is registered.
func (r *ParticipantRegistry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// List returns all participants in registration order.
func (r *ParticipantRegistry) List() []*model.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Count returns the number of registered participants.
func (r *ParticipantRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
