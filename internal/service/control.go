package service

import (
	"context"

	"kickride/internal/config"
	"kickride/internal/domain"
	"kickride/internal/repository"
)

// Lock locks the kickboard of an active ride.
func (s *RideService) Lock(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	locked := true
	return s.control(ctx, ride, repository.RidePatch{IsLocked: &locked}, func(ctx context.Context, id string) error {
		return s.platform.SetLock(ctx, id, true)
	})
}

// Unlock unlocks the kickboard of an active ride.
func (s *RideService) Unlock(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	locked := false
	return s.control(ctx, ride, repository.RidePatch{IsLocked: &locked}, func(ctx context.Context, id string) error {
		return s.platform.SetLock(ctx, id, false)
	})
}

// LightsOn turns the kickboard lights on.
func (s *RideService) LightsOn(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	on := true
	return s.control(ctx, ride, repository.RidePatch{IsLightsOn: &on}, func(ctx context.Context, id string) error {
		return s.platform.SetLights(ctx, id, true)
	})
}

// LightsOff turns the kickboard lights off.
func (s *RideService) LightsOff(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	on := false
	return s.control(ctx, ride, repository.RidePatch{IsLightsOn: &on}, func(ctx context.Context, id string) error {
		return s.platform.SetLights(ctx, id, false)
	})
}

// SetMaxSpeed caps the kickboard speed in km/h. A nil or zero maxSpeed
// restores the platform default, stored locally as the configured default.
func (s *RideService) SetMaxSpeed(ctx context.Context, ride *domain.Ride, maxSpeed *int) (*domain.Ride, error) {
	if maxSpeed != nil && *maxSpeed < 0 {
		return nil, invalid("maxSpeed must not be negative")
	}
	if maxSpeed != nil && *maxSpeed == 0 {
		maxSpeed = nil
	}

	stored := s.defaultSpeed
	if maxSpeed != nil {
		stored = *maxSpeed
	}
	return s.control(ctx, ride, repository.RidePatch{MaxSpeed: &stored}, func(ctx context.Context, id string) error {
		return s.platform.SetMaxSpeed(ctx, id, maxSpeed)
	})
}

// control sends a command to the platform and reflects it locally according
// to the configured policy. Under the intended policy the local row is
// updated even when the platform failed, and the platform error is still
// returned.
func (s *RideService) control(ctx context.Context, ride *domain.Ride, patch repository.RidePatch, send func(context.Context, string) error) (*domain.Ride, error) {
	if ride.State() != domain.RideStateActive {
		return nil, ErrCurrentNotRiding
	}

	remoteErr := send(ctx, ride.RemoteRideID())
	if remoteErr != nil && s.policy == config.ControlPolicyConfirmed {
		return nil, remoteErr
	}

	updated, err := s.rideRepo.Update(ctx, ride.ID, patch)
	if remoteErr != nil {
		return updated, remoteErr
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetStatus fetches the live kickboard status of a ride.
func (s *RideService) GetStatus(ctx context.Context, ride *domain.Ride) (*domain.RideStatus, error) {
	return s.platform.GetStatus(ctx, ride.RemoteRideID())
}

// GetTimeline fetches the telemetry timeline of a ride.
func (s *RideService) GetTimeline(ctx context.Context, ride *domain.Ride) ([]domain.TimelineEntry, error) {
	return s.platform.GetTimeline(ctx, ride.RemoteRideID())
}

// GetPricing asks the platform for the price of ending the ride at a point.
func (s *RideService) GetPricing(ctx context.Context, ride *domain.Ride, at domain.GeoPoint) (*domain.RidePricing, error) {
	if err := validatePoint(at.Latitude, at.Longitude); err != nil {
		return nil, err
	}
	return s.platform.GetPricing(ctx, ride.RemoteRideID(), at)
}

// GetHelmet fetches the helmet attached to the ride's kickboard.
func (s *RideService) GetHelmet(ctx context.Context, ride *domain.Ride, deviceInfo string) (domain.Helmet, error) {
	return s.platform.GetHelmet(ctx, ride.RemoteRideID(), deviceInfo)
}

// GetHelmetCredentials fetches the credentials needed to open the helmet lock.
func (s *RideService) GetHelmetCredentials(ctx context.Context, ride *domain.Ride) (domain.Helmet, error) {
	return s.platform.GetHelmetCredentials(ctx, ride.RemoteRideID())
}

// BorrowHelmet prepares (complete=false) or completes a helmet borrow.
func (s *RideService) BorrowHelmet(ctx context.Context, ride *domain.Ride, complete bool) (domain.Helmet, error) {
	return s.platform.BorrowHelmet(ctx, ride.RemoteRideID(), complete)
}

// ReturnHelmet prepares (complete=false) or completes a helmet return.
func (s *RideService) ReturnHelmet(ctx context.Context, ride *domain.Ride, complete bool) (domain.Helmet, error) {
	return s.platform.ReturnHelmet(ctx, ride.RemoteRideID(), complete)
}
