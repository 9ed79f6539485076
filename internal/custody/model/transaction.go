package model

import "time"

// TransactionKind tags the event a ledger transaction records.
type TransactionKind string

const (
	TxParticipantRegistered TransactionKind = "participant_registered"
	TxEvidenceCreated       TransactionKind = "evidence_created"
	TxEvidenceTransferred   TransactionKind = "evidence_transferred"
	TxEvidenceDeactivated   TransactionKind = "evidence_deactivated"
)

// Transaction is a single immutable event record. A transaction is pending
// until it is sealed into a mined block; the kind-specific fields that do not
// apply to a given kind are left empty and omitted from the JSON encoding.
type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	Type          TransactionKind `json:"type"`
	Timestamp     time.Time       `json:"timestamp"`

	// participant_registered
	ParticipantID string `json:"participant_id,omitempty"`
	Name          string `json:"name,omitempty"`
	Role          string `json:"role,omitempty"`

	// evidence_created / evidence_transferred / evidence_deactivated
	EvidenceID string `json:"evidence_id,omitempty"`

	// evidence_created
	CreatorID   string `json:"creator_id,omitempty"`
	FileHash    string `json:"file_hash,omitempty"`
	CaseID      string `json:"case_id,omitempty"`
	Description string `json:"description,omitempty"`

	// evidence_transferred
	FromOwner string `json:"from_owner,omitempty"`
	ToOwner   string `json:"to_owner,omitempty"`

	// evidence_deactivated
	DeactivatedBy string `json:"deactivated_by,omitempty"`

	// evidence_transferred / evidence_deactivated
	Reason string `json:"reason,omitempty"`
}

// SealedTransaction is a transaction annotated with the block that sealed it,
// as returned by evidence history queries.
type SealedTransaction struct {
	Transaction
	BlockIndex int    `json:"block_index"`
	BlockHash  string `json:"block_hash"`
}
