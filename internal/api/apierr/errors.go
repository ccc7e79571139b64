package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeSessionInProgress  = "SESSION_IN_PROGRESS"
	CodeWrongPhase         = "WRONG_PHASE"
	CodeNotParticipant     = "NOT_PARTICIPANT"
	CodePlayerInactive     = "PLAYER_INACTIVE"
	CodeAdminNotEligible   = "ADMIN_NOT_ELIGIBLE"
	CodeNoParticipants     = "NO_PARTICIPANTS"
	CodeInvalidCard        = "INVALID_CARD"
	CodeCardNotInHand      = "CARD_NOT_IN_HAND"
	CodeDuplicateCard      = "DUPLICATE_CARD"
	CodeEmptyDeployment    = "EMPTY_DEPLOYMENT"
	CodeDeploymentLimit    = "DEPLOYMENT_LIMIT"
	CodePowerUsed          = "POWER_USED"
	CodeNoExtraction       = "NO_EXTRACTION"
	CodeExtractionResolved = "EXTRACTION_RESOLVED"
	CodeNotCandidate       = "NOT_CANDIDATE"
	CodeConflict           = "CONFLICT"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrSessionNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeSessionNotFound, "Session not found"}}
	case errors.Is(err, model.ErrSessionInProgress):
		return &httpError{http.StatusConflict, APIError{CodeSessionInProgress, "Session is already in progress"}}
	case errors.Is(err, model.ErrWrongPhase):
		return &httpError{http.StatusConflict, APIError{CodeWrongPhase, "Not allowed in the current phase"}}
	case errors.Is(err, model.ErrNotParticipant):
		return &httpError{http.StatusForbidden, APIError{CodeNotParticipant, "Not a participant in this session"}}
	case errors.Is(err, model.ErrPlayerInactive):
		return &httpError{http.StatusForbidden, APIError{CodePlayerInactive, "Player has been eliminated"}}
	case errors.Is(err, model.ErrNotAdmin):
		return &httpError{http.StatusForbidden, APIError{CodeForbidden, "Elevated privilege required"}}
	case errors.Is(err, model.ErrAdminNotEligible):
		return &httpError{http.StatusForbidden, APIError{CodeAdminNotEligible, "Elevated identities cannot participate"}}
	case errors.Is(err, model.ErrNoParticipants):
		return &httpError{http.StatusConflict, APIError{CodeNoParticipants, "Not enough eligible participants"}}
	case errors.Is(err, model.ErrMalformedCard):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidCard, "Malformed card"}}
	case errors.Is(err, model.ErrCardNotInHand):
		return &httpError{http.StatusBadRequest, APIError{CodeCardNotInHand, "Card is not in your hand"}}
	case errors.Is(err, model.ErrDuplicateCard):
		return &httpError{http.StatusBadRequest, APIError{CodeDuplicateCard, "A card may fill only one slot"}}
	case errors.Is(err, model.ErrEmptyDeployment):
		return &httpError{http.StatusBadRequest, APIError{CodeEmptyDeployment, "At least one slot must be filled"}}
	case errors.Is(err, model.ErrDeploymentLimit):
		return &httpError{http.StatusConflict, APIError{CodeDeploymentLimit, "Multi-card deployment already used"}}
	case errors.Is(err, model.ErrPowerUsed):
		return &httpError{http.StatusConflict, APIError{CodePowerUsed, "Power already used"}}
	case errors.Is(err, model.ErrNoExtraction), errors.Is(err, model.ErrHandNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeNoExtraction, "No extraction available"}}
	case errors.Is(err, model.ErrExtractionResolved):
		return &httpError{http.StatusConflict, APIError{CodeExtractionResolved, "Extraction already resolved"}}
	case errors.Is(err, model.ErrNotCandidate):
		return &httpError{http.StatusBadRequest, APIError{CodeNotCandidate, "Card is not an extraction candidate"}}
	case errors.Is(err, model.ErrConflict):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "Concurrent update, retry"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired token"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrInvalidInput):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError() error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, "Elevated privilege required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
