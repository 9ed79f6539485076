package model

import "time"

// Role is the function a participant performs in the chain of custody.
type Role string

const (
	RoleInvestigator   Role = "investigator"
	RoleForensicExpert Role = "forensic_expert"
	RoleProsecutor     Role = "prosecutor"
	RoleJudge          Role = "judge"
	RoleAdmin          Role = "admin"
)

// ValidRole reports whether r is one of the enumerated participant roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleInvestigator, RoleForensicExpert, RoleProsecutor, RoleJudge, RoleAdmin:
		return true
	}
	return false
}

// CanCreateEvidence reports whether the role is allowed to register new
// evidence. Prosecutors and judges receive and review evidence but do not
// originate it.
func (r Role) CanCreateEvidence() bool {
	switch r {
	case RoleInvestigator, RoleForensicExpert, RoleAdmin:
		return true
	}
	return false
}

// Participant is an accountable party registered with the ledger.
// Records are immutable once created; the registry is append-only.
type Participant struct {
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name"`
	Role          Role      `json:"role"`
	Organization  string    `json:"organization"`
	CreatedAt     time.Time `json:"created_at"`
}

// RegisterParticipantRequest is the payload for registering a participant.
type RegisterParticipantRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Name          string `json:"name"           binding:"required"`
	Role          string `json:"role"           binding:"required"`
	Organization  string `json:"organization"   binding:"required"`
}
