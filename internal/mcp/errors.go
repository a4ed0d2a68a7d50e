package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/partdesk/internal/domain/record"
	"github.com/rpggio/partdesk/internal/repository"
)

var (
	// ErrUnauthorized is returned when the status password is missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrJournalDisabled is returned by recent_activity when no journal is configured.
	ErrJournalDisabled = errors.New("activity journal disabled")
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return &APIError{Code: "UNAUTHORIZED", Message: "status password missing or wrong", RecoveryHint: "Pass the status password as password"}
	case errors.Is(err, record.ErrInvalidStatus):
		return &APIError{Code: "INVALID_STATUS", Message: err.Error(), Details: record.Statuses, RecoveryHint: "Use one of Pending, Requested, Delivered"}
	case errors.Is(err, record.ErrInvalidDataURL):
		return &APIError{Code: "INVALID_PHOTO", Message: err.Error(), RecoveryHint: "Send data:<mime>;base64,<payload>"}
	case errors.Is(err, record.ErrValidation):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "technician and part are required"}
	case errors.Is(err, ErrJournalDisabled):
		return &APIError{Code: "JOURNAL_DISABLED", Message: err.Error(), RecoveryHint: "Set journal.path to enable the activity journal"}
	case errors.Is(err, repository.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: err.Error()}
	case errors.Is(err, repository.ErrStorageWrite):
		return &APIError{Code: "STORAGE_WRITE_FAILED", Message: err.Error(), RecoveryHint: "Check free space and permissions of the local data directory"}
	case errors.Is(err, repository.ErrBackendUnavailable):
		return &APIError{Code: "BACKEND_UNAVAILABLE", Message: err.Error(), RecoveryHint: "Retry later"}
	default:
		return &APIError{Code: "INTERNAL", Message: err.Error()}
	}
}
