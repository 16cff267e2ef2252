package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kickride/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationRideEnded NotificationType = "RIDE_ENDED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]any
	CreatedAt   time.Time
}

// NotificationService delivers rider notifications through the accounts
// service. Delivery is best-effort: failures are logged and never returned.
type NotificationService struct {
	accounts Accounts
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(accounts Accounts) *NotificationService {
	return &NotificationService{accounts: accounts}
}

// NotifyRideEnded tells the rider their ride was closed.
func (s *NotificationService) NotifyRideEnded(ctx context.Context, ride *domain.Ride) {
	minutes := 0
	if ride.EndedAt != nil {
		minutes = int(ride.EndedAt.Sub(ride.CreatedAt).Minutes())
	}

	s.send(ctx, Notification{
		Type:        NotificationRideEnded,
		RecipientID: ride.UserID,
		Title:       "Ride Ended",
		Message:     fmt.Sprintf("Your ride on %s has ended after %d minutes.", ride.KickboardCode, minutes),
		Data: map[string]any{
			"type":          string(NotificationRideEnded),
			"rideId":        ride.ID,
			"kickboardCode": ride.KickboardCode,
		},
		CreatedAt: time.Now(),
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) {
	if s == nil || s.accounts == nil {
		return
	}
	if err := s.accounts.SendNotification(ctx, n.RecipientID, n.Title, n.Message, n.Data); err != nil {
		slog.WarnContext(ctx, "notification delivery failed",
			"type", n.Type,
			"user_id", n.RecipientID,
			"error", err,
		)
		return
	}
	slog.DebugContext(ctx, "notification sent", "type", n.Type, "user_id", n.RecipientID)
}
