package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrNotParticipant = errors.New("player is not a participant in this session")
	ErrPlayerInactive = errors.New("player is no longer active")

	// Session errors
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExists     = errors.New("session already exists")
	ErrSessionInProgress = errors.New("session is already in progress")
	ErrWrongPhase        = errors.New("action not allowed in the current phase")
	ErrNotAdmin          = errors.New("action requires elevated privilege")
	ErrAdminNotEligible  = errors.New("elevated identities do not participate")
	ErrNoParticipants    = errors.New("no eligible participants")

	// Card and slot errors
	ErrMalformedCard   = errors.New("malformed card")
	ErrCardNotInHand   = errors.New("card is not in hand")
	ErrDuplicateCard   = errors.New("card committed to more than one slot")
	ErrEmptyDeployment = errors.New("at least one slot must be filled")
	ErrDeploymentLimit = errors.New("multi-card deployment already used this session")
	ErrHandNotFound    = errors.New("hand not found")
	ErrSlotsNotFound   = errors.New("slot assignment not found")
	ErrPowerUsed       = errors.New("power already used this session")

	// Extraction errors
	ErrNoExtraction       = errors.New("no extraction available")
	ErrExtractionResolved = errors.New("extraction already resolved")
	ErrNotCandidate       = errors.New("card is not an extraction candidate")

	// Store errors
	ErrConflict = errors.New("concurrent update conflict")
)
