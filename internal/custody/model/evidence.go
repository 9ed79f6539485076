package model

import "time"

// Transfer records one change of possession. It is appended to the owning
// evidence's history and never modified afterwards.
type Transfer struct {
	FromOwner string    `json:"from_owner"`
	ToOwner   string    `json:"to_owner"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Evidence is a registered piece of digital evidence. EvidenceID, CreatorID,
// and FileHash are set once at creation; CurrentOwnerID changes only through
// transfers, and IsActive flips true→false exactly once.
type Evidence struct {
	EvidenceID      string            `json:"evidence_id"`
	Description     string            `json:"description"`
	CreatorID       string            `json:"creator_id"`
	CurrentOwnerID  string            `json:"current_owner_id"`
	FileHash        string            `json:"file_hash"`
	FileLocation    string            `json:"file_location"`
	CaseID          string            `json:"case_id"`
	Metadata        map[string]string `json:"metadata"`
	IsActive        bool              `json:"is_active"`
	CreatedAt       time.Time         `json:"created_at"`
	TransferHistory []Transfer        `json:"transfer_history"`
}

// Clone returns a deep copy so callers can hand records across the API
// boundary without exposing registry-internal state to mutation.
func (e *Evidence) Clone() *Evidence {
	out := *e
	out.Metadata = make(map[string]string, len(e.Metadata))
	for k, v := range e.Metadata {
		out.Metadata[k] = v
	}
	out.TransferHistory = make([]Transfer, len(e.TransferHistory))
	copy(out.TransferHistory, e.TransferHistory)
	return &out
}

// CreateEvidenceRequest is the payload for registering evidence.
// EvidenceID may be empty, in which case the service derives it from FileHash.
type CreateEvidenceRequest struct {
	EvidenceID   string            `json:"evidence_id"`
	Description  string            `json:"description"   binding:"required"`
	CreatorID    string            `json:"creator_id"    binding:"required"`
	FileHash     string            `json:"file_hash"     binding:"required"`
	FileLocation string            `json:"file_location" binding:"required"`
	CaseID       string            `json:"case_id"       binding:"required"`
	Metadata     map[string]string `json:"metadata"`
}

// TransferEvidenceRequest is the payload for a custody transfer.
type TransferEvidenceRequest struct {
	EvidenceID  string `json:"evidence_id"   binding:"required"`
	FromOwnerID string `json:"from_owner_id" binding:"required"`
	ToOwnerID   string `json:"to_owner_id"   binding:"required"`
	Reason      string `json:"reason"        binding:"required"`
}

// DeactivateEvidenceRequest is the payload for flagging evidence inactive.
type DeactivateEvidenceRequest struct {
	RequesterID string `json:"requester_id" binding:"required"`
	Reason      string `json:"reason"`
}
