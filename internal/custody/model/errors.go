package model

import "errors"

// Domain error kinds. Handlers map these to HTTP statuses with errors.Is;
// none of them are fatal to the process.
var (
	// ErrDuplicateID is returned when a participant or evidence identifier
	// is already registered.
	ErrDuplicateID = errors.New("identifier already exists")

	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownParticipant is returned when an operation references a
	// participant that is not in the registry.
	ErrUnknownParticipant = errors.New("participant not registered")

	// ErrOwnerMismatch is returned when a transfer names a from-owner that
	// is not the evidence's current owner.
	ErrOwnerMismatch = errors.New("not the current owner")

	// ErrInactive is returned when an operation targets evidence that has
	// already been deactivated.
	ErrInactive = errors.New("evidence is inactive")

	// ErrInvalidRole is returned when a registration names a role outside
	// the enumerated set.
	ErrInvalidRole = errors.New("invalid participant role")

	// ErrPermissionDenied is returned when a participant's role does not
	// allow the requested operation.
	ErrPermissionDenied = errors.New("role not permitted for this operation")
)
