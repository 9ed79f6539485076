package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/forensic-chain/forchain/internal/custody/model"
)

// EvidenceRegistry tracks the current state of each evidence item. Records
// are never deleted; deactivation flips IsActive one way.
type EvidenceRegistry struct {
	mu    sync.RWMutex
	byID  map[string]*model.Evidence
	order []string
}

// NewEvidenceRegistry creates an empty registry.
func NewEvidenceRegistry() *EvidenceRegistry {
	return &EvidenceRegistry{byID: make(map[string]*model.Evidence)}
}

// Create registers a new evidence item. The creator becomes the initial
// owner and the transfer history starts empty.
func (r *EvidenceRegistry) Create(req *model.CreateEvidenceRequest) (*model.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[req.EvidenceID]; ok {
		return nil, fmt.Errorf("evidence %q: %w", req.EvidenceID, model.ErrDuplicateID)
	}

	meta := req.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	ev := &model.Evidence{
		EvidenceID:      req.EvidenceID,
		Description:     req.Description,
		CreatorID:       req.CreatorID,
		CurrentOwnerID:  req.CreatorID,
		FileHash:        req.FileHash,
		FileLocation:    req.FileLocation,
		CaseID:          req.CaseID,
		Metadata:        meta,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
		TransferHistory: []model.Transfer{},
	}
	r.byID[req.EvidenceID] = ev
	r.order = append(r.order, req.EvidenceID)
	return ev.Clone(), nil
}

// Transfer appends a custody transfer and updates the current owner.
// The state is left untouched on any failure.
func (r *EvidenceRegistry) Transfer(evidenceID, fromOwnerID, toOwnerID, reason string) (*model.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.byID[evidenceID]
	if !ok {
		return nil, fmt.Errorf("evidence %q: %w", evidenceID, model.ErrNotFound)
	}
	if !ev.IsActive {
		return nil, fmt.Errorf("evidence %q: %w", evidenceID, model.ErrInactive)
	}
	if ev.CurrentOwnerID != fromOwnerID {
		return nil, fmt.Errorf("evidence %q owned by %q, not %q: %w",
			evidenceID, ev.CurrentOwnerID, fromOwnerID, model.ErrOwnerMismatch)
	}

	transfer := model.Transfer{
		FromOwner: fromOwnerID,
		ToOwner:   toOwnerID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
	ev.TransferHistory = append(ev.TransferHistory, transfer)
	ev.CurrentOwnerID = toOwnerID
	return &transfer, nil
}

// Deactivate flips the evidence inactive. Calling it again on an already
// inactive item fails with ErrInactive and changes nothing.
func (r *EvidenceRegistry) Deactivate(evidenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.byID[evidenceID]
	if !ok {
		return fmt.Errorf("evidence %q: %w", evidenceID, model.ErrNotFound)
	}
	if !ev.IsActive {
		return fmt.Errorf("evidence %q: %w", evidenceID, model.ErrInactive)
	}
	ev.IsActive = false
	return nil
}

// Get returns a copy of the evidence record.
func (r *EvidenceRegistry) Get(evidenceID string) (*model.Evidence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ev, ok := r.byID[evidenceID]
	if !ok {
		return nil, fmt.Errorf("evidence %q: %w", evidenceID, model.ErrNotFound)
	}
	return ev.Clone(), nil
}

// List returns evidence in creation order. With activeOnly set, deactivated
// items are skipped.
func (r *EvidenceRegistry) List(activeOnly bool) []*model.Evidence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Evidence, 0, len(r.order))
	for _, id := range r.order {
		ev := r.byID[id]
		if activeOnly && !ev.IsActive {
			continue
		}
		out = append(out, ev.Clone())
	}
	return out
}

// ListByCase returns the active evidence belonging to a case.
func (r *EvidenceRegistry) ListByCase(caseID string) []*model.Evidence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Evidence
	for _, id := range r.order {
		ev := r.byID[id]
		if ev.CaseID == caseID && ev.IsActive {
			out = append(out, ev.Clone())
		}
	}
	return out
}

// ListByOwner returns the active evidence currently held by a participant.
func (r *EvidenceRegistry) ListByOwner(ownerID string) []*model.Evidence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Evidence
	for _, id := range r.order {
		ev := r.byID[id]
		if ev.CurrentOwnerID == ownerID && ev.IsActive {
			out = append(out, ev.Clone())
		}
	}
	return out
}

// Count returns the number of evidence records, active or not.
func (r *EvidenceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
