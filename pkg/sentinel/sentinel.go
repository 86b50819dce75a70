package sentinel

import "errors"

// Sentinel dependency errors. Stores and collaborators should return these
// (optionally wrapped) so services can translate them into domain errors
// exactly once.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrExpired          = errors.New("expired")
	ErrAlreadyUsed      = errors.New("already used")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyAttested  = errors.New("already attested")
	ErrAlreadyRevoked   = errors.New("already revoked")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrInactive         = errors.New("identity inactive")
	ErrInvalidState     = errors.New("invalid state")
	ErrTimeout          = errors.New("upstream timeout")
	ErrUnavailable      = errors.New("unavailable")
)
