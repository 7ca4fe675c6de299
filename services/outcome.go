package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/carnival-system/models"
)

const internalErrorMessage = "the server encountered a problem and could not complete the operation"

// Outcome is the structured result shared by every manager operation.
type Outcome struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"error_kind,omitempty"`
	Err     error     `json:"-"`
}

// Error returns nil for a successful outcome and the underlying error otherwise.
func (o Outcome) Error() error {
	if o.Success {
		return nil
	}
	return o.Err
}

func succeeded(message string) Outcome {
	return Outcome{Success: true, Message: message}
}

// failure converts err into an Outcome. Internal errors are logged with the operation name and entity ids
// and their message is replaced so persistence details never reach the caller.
func failure(ctx context.Context, logger *slog.Logger, op string, err error, attrs ...slog.Attr) Outcome {
	kind := KindOf(err)
	message := err.Error()
	if kind == KindInternal {
		args := make([]any, 0, len(attrs)+2)
		args = append(args, slog.String("op", op), slog.Any("error", err))
		for _, a := range attrs {
			args = append(args, a)
		}
		logger.ErrorContext(ctx, "operation failed", args...)
		message = internalErrorMessage
	}
	return Outcome{Success: false, Message: message, Kind: kind, Err: err}
}

type OwnershipResult struct {
	Outcome
	Carnival *models.Carnival `json:"carnival,omitempty"`
	Claimant *models.User     `json:"claimant,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

type RegistrationResult struct {
	Outcome
	Registration         *models.AttendanceRegistration `json:"registration,omitempty"`
	CurrentRegistrations int                            `json:"current_registrations"`
}

type FeeResult struct {
	Outcome
	Registration *models.AttendanceRegistration `json:"registration,omitempty"`
	Changed      bool                           `json:"changed"`
}

type AssignmentResult struct {
	Outcome
	Assignment   *models.PlayerAssignment       `json:"assignment,omitempty"`
	Registration *models.AttendanceRegistration `json:"registration,omitempty"`
}
