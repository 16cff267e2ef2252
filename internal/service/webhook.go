package service

import (
	"context"
	"log/slog"
	"time"

	"kickride/internal/domain"
	"kickride/internal/metrics"
	"kickride/internal/repository"
)

// TerminateEvent is the platform's notice that a ride was closed on its side.
type TerminateEvent struct {
	RemoteRideID string
	TerminatedAt time.Time
}

// SpeedEvent is the platform's notice that a kickboard speed cap changed.
type SpeedEvent struct {
	RemoteRideID string
	MaxSpeed     int
}

// WebhookService applies platform webhooks to local rides.
type WebhookService struct {
	rideService *RideService
	rideRepo    repository.RideRepository
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(rideService *RideService, rideRepo repository.RideRepository) *WebhookService {
	return &WebhookService{rideService: rideService, rideRepo: rideRepo}
}

// OnTerminate closes the local ride at the platform's termination time.
// A ride that is already closed keeps its end time.
func (s *WebhookService) OnTerminate(ctx context.Context, event TerminateEvent) (*domain.Ride, error) {
	ride, err := s.rideService.GetRideByRemoteIDOrThrow(ctx, event.RemoteRideID)
	if err != nil {
		return nil, err
	}
	if ride.EndedAt != nil {
		return ride, nil
	}

	endedAt := event.TerminatedAt
	if endedAt.IsZero() {
		endedAt = s.rideService.now()
	}

	updated, err := s.rideRepo.Update(ctx, ride.ID, repository.RidePatch{EndedAt: &endedAt})
	if err != nil {
		return nil, err
	}

	metrics.RideEvents.WithLabelValues("webhook_terminated").Inc()
	slog.InfoContext(ctx, "ride terminated by platform", "ride_id", updated.ID, "user_id", updated.UserID)
	return updated, nil
}

// OnSpeedChange stores a speed cap applied on the platform side.
func (s *WebhookService) OnSpeedChange(ctx context.Context, event SpeedEvent) (*domain.Ride, error) {
	if event.MaxSpeed <= 0 {
		return nil, invalid("maxSpeed must be positive")
	}

	ride, err := s.rideService.GetRideByRemoteIDOrThrow(ctx, event.RemoteRideID)
	if err != nil {
		return nil, err
	}
	return s.rideRepo.Update(ctx, ride.ID, repository.RidePatch{MaxSpeed: &event.MaxSpeed})
}
