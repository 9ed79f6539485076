package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a subscription is not found.
var ErrNotFound = errors.New("subscription not found")

// maxDeliveries bounds the per-process delivery log.
const maxDeliveries = 100

// Repository holds subscriptions and a bounded delivery log. Subscriptions
// are operational configuration, not evidence; they live in memory and are
// re-created after a restart.
type Repository struct {
	mu         sync.RWMutex
	subs       map[uuid.UUID]*Subscription
	order      []uuid.UUID
	deliveries []*Delivery
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{subs: make(map[uuid.UUID]*Subscription)}
}

// Create stores a new subscription, assigning its ID and creation time.
func (r *Repository) Create(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()
	sub.Active = true
	r.subs[sub.ID] = sub
	r.order = append(r.order, sub.ID)
}

// GetByID retrieves a subscription by ID.
func (r *Repository) GetByID(id uuid.UUID) (*Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sub, nil
}

// Delete removes a subscription.
func (r *Repository) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[id]; !ok {
		return ErrNotFound
	}
	delete(r.subs, id)
	for i, sid := range r.order {
		if sid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns all subscriptions in creation order.
func (r *Repository) List() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Subscription, 0, len(r.subs))
	for _, id := range r.order {
		out = append(out, r.subs[id])
	}
	return out
}

// ListByEvent returns the active subscriptions matching an event type, in
// creation order.
func (r *Repository) ListByEvent(eventType string) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Subscription
	for _, id := range r.order {
		sub := r.subs[id]
		if !sub.Active {
			continue
		}
		for _, e := range sub.Events {
			if e == eventType {
				out = append(out, sub)
				break
			}
		}
	}
	return out
}

// RecordDelivery appends a delivery record, evicting the oldest when full.
func (r *Repository) RecordDelivery(d *Delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d.ID = uuid.New()
	d.DeliveredAt = time.Now().UTC()
	r.deliveries = append(r.deliveries, d)
	if len(r.deliveries) > maxDeliveries {
		r.deliveries = r.deliveries[len(r.deliveries)-maxDeliveries:]
	}
}

// Deliveries returns the recorded delivery attempts for a subscription.
func (r *Repository) Deliveries(subID uuid.UUID) []*Delivery {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Delivery
	for _, d := range r.deliveries {
		if d.SubscriptionID == subID {
			out = append(out, d)
		}
	}
	return out
}
