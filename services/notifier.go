package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/carnival-system/models"
)

// Notifier delivers state-change notifications. Implementations must not block the caller
// on delivery and have no way to fail the operation that triggered them.
type Notifier interface {
	NotifyClaim(ctx context.Context, carnival *models.Carnival, claimant *models.User, club *models.Club, originalContactEmail string)
	NotifyApproval(ctx context.Context, carnival *models.Carnival, club *models.Club, approverName string)
	NotifyRejection(ctx context.Context, carnival *models.Carnival, club *models.Club, approverName, reason string)
}

type NopNotifier struct{}

func (NopNotifier) NotifyClaim(context.Context, *models.Carnival, *models.User, *models.Club, string) {
}

func (NopNotifier) NotifyApproval(context.Context, *models.Carnival, *models.Club, string) {}

func (NopNotifier) NotifyRejection(context.Context, *models.Carnival, *models.Club, string, string) {}

// EventPublisher receives carnival-scoped events after commit, for live dashboards.
type EventPublisher interface {
	Publish(carnivalID int, eventType string, payload any)
}

const (
	EventCarnivalClaimed       = "carnival.claimed"
	EventCarnivalReleased      = "carnival.released"
	EventRegistrationCreated   = "registration.created"
	EventRegistrationApproved  = "registration.approved"
	EventRegistrationRejected  = "registration.rejected"
	EventRegistrationUpdated   = "registration.updated"
	EventRegistrationWithdrawn = "registration.withdrawn"
	EventRosterChanged         = "registration.roster_changed"
	EventFeesChanged           = "carnival.fees_changed"
)

type nopPublisher struct{}

func (nopPublisher) Publish(int, string, any) {}

// notifyBestEffort runs send after the transaction committed. A panicking notifier is logged and swallowed.
func notifyBestEffort(ctx context.Context, logger *slog.Logger, op string, send func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "notification dispatch panicked", slog.String("op", op), slog.Any("panic", r))
		}
	}()
	send()
}

func publishBestEffort(ctx context.Context, logger *slog.Logger, events EventPublisher, carnivalID int, eventType string, payload any) {
	notifyBestEffort(ctx, logger, eventType, func() {
		events.Publish(carnivalID, eventType, payload)
	})
}
