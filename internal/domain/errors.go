package domain

import "fmt"

// AppError is the base domain error type. The code set is closed: every
// business failure in the hub maps to exactly one of the constructors below.
type AppError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Status  int         `json:"-"`
	Cause   error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Authentication (401).

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrInvalidToken(msg string) *AppError {
	return &AppError{Code: "INVALID_TOKEN", Message: msg, Status: 401}
}

func ErrInvalidSignature() *AppError {
	return &AppError{Code: "INVALID_SIGNATURE", Message: "request signature verification failed", Status: 401}
}

// Authorization (403).

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: 403}
}

// Not found (404).

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

// Payment (402).

func ErrInsufficientFunds(required, available Amount) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient available balance",
		Details: map[string]string{"required": required.String(), "available": available.String()},
		Status:  402,
	}
}

// Conflict (409).

func ErrAlreadySettled(sessionID string) *AppError {
	return &AppError{Code: "ALREADY_SETTLED", Message: fmt.Sprintf("session %s is already settled", sessionID), Status: 409}
}

func ErrAlreadyInLobby(lobbyID string) *AppError {
	return &AppError{Code: "ALREADY_IN_LOBBY", Message: fmt.Sprintf("user is already in lobby %s", lobbyID), Status: 409}
}

func ErrDisplayNameTaken(name string) *AppError {
	return &AppError{Code: "DISPLAY_NAME_TAKEN", Message: fmt.Sprintf("display name %q is taken", name), Status: 409}
}

func ErrDuplicateExecution(msg string) *AppError {
	return &AppError{Code: "DUPLICATE_EXECUTION", Message: msg, Status: 409}
}

func ErrConcurrencyConflict(msg string) *AppError {
	return &AppError{Code: "CONCURRENCY_CONFLICT", Message: msg, Status: 409}
}

// Business/state (422).

func ErrLobbyFull(lobbyID string) *AppError {
	return &AppError{Code: "LOBBY_FULL", Message: fmt.Sprintf("lobby %s is full", lobbyID), Status: 422}
}

func ErrLobbyNotReady(lobbyID string) *AppError {
	return &AppError{Code: "LOBBY_NOT_READY", Message: fmt.Sprintf("lobby %s is not ready", lobbyID), Status: 422}
}

func ErrSessionExpired(sessionID string) *AppError {
	return &AppError{Code: "SESSION_EXPIRED", Message: fmt.Sprintf("session %s has expired", sessionID), Status: 422}
}

func ErrGameNotActive(gameID string) *AppError {
	return &AppError{Code: "GAME_NOT_ACTIVE", Message: fmt.Sprintf("game %s is not active", gameID), Status: 422}
}

func ErrInvalidState(msg string) *AppError {
	return &AppError{Code: "INVALID_STATE", Message: msg, Status: 422}
}

// Validation (400).

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

// ErrValidationFields carries a per-field detail map.
func ErrValidationFields(msg string, fields map[string]string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Details: fields, Status: 400}
}

// Infrastructure (500).

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}
