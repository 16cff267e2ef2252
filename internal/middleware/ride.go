package middleware

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"kickride/internal/domain"
	"kickride/internal/service"
)

// RideLookup resolves the ride a request acts on.
type RideLookup interface {
	GetCurrentRide(ctx context.Context, userID string) (*domain.Ride, error)
	GetRideOrThrow(ctx context.Context, rideID, userID string) (*domain.Ride, error)
	GetRideByRemoteIDOrThrow(ctx context.Context, remoteRideID string) (*domain.Ride, error)
	CheckReady(ctx context.Context, userID string) error
}

// UserLookup loads a rider by id for internal callers acting on their behalf.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*domain.Rider, error)
}

var _ RideLookup = (*service.RideService)(nil)

// CurrentRideOptions controls how CurrentRide treats the rider's active ride.
type CurrentRideOptions struct {
	// AllowNull lets the request through when the rider is not riding.
	AllowNull bool
	// ThrowIfRiding rejects the request when the rider is already riding.
	ThrowIfRiding bool
}

// CurrentRide loads the authenticated rider's active ride.
func CurrentRide(rides RideLookup, opts CurrentRideOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		rider := RiderFrom(c)
		if rider == nil {
			abort(c, service.ErrRequiredLogin)
			return
		}

		ride, err := rides.GetCurrentRide(c.Request.Context(), rider.UserID)
		if err != nil {
			abort(c, err)
			return
		}

		switch {
		case ride != nil && opts.ThrowIfRiding:
			abort(c, service.ErrAlreadyRiding)
			return
		case ride == nil && !opts.AllowNull && !opts.ThrowIfRiding:
			abort(c, service.ErrCurrentNotRiding)
			return
		}

		SetRide(c, ride)
		c.Next()
	}
}

// RideByParam loads the ride named by the :rideId path parameter. When a
// rider is authenticated the lookup is limited to their own rides.
func RideByParam(rides RideLookup, throwIfRideEnd bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := ""
		if rider := RiderFrom(c); rider != nil {
			userID = rider.UserID
		}

		ride, err := rides.GetRideOrThrow(c.Request.Context(), c.Param("rideId"), userID)
		if err != nil {
			abort(c, err)
			return
		}
		if throwIfRideEnd && ride.State() == domain.RideStateEnded {
			abort(c, service.ErrCurrentNotRiding)
			return
		}

		SetRide(c, ride)
		c.Next()
	}
}

// RideByRemoteID loads a ride by the platform ride id in :rideId.
func RideByRemoteID(rides RideLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		ride, err := rides.GetRideByRemoteIDOrThrow(c.Request.Context(), c.Param("rideId"))
		if err != nil {
			abort(c, err)
			return
		}
		SetRide(c, ride)
		c.Next()
	}
}

// RequireReady rejects riders without a license or a payment method.
func RequireReady(rides RideLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		rider := RiderFrom(c)
		if rider == nil {
			abort(c, service.ErrRequiredLogin)
			return
		}
		if err := rides.CheckReady(c.Request.Context(), rider.UserID); err != nil {
			abort(c, err)
			return
		}
		c.Next()
	}
}

// RiderByQuery lets internal callers act as the rider named by ?userId.
func RiderByQuery(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("userId")
		if userID == "" {
			abort(c, service.ErrFailedValidate)
			return
		}

		rider, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			slog.DebugContext(c.Request.Context(), "internal rider lookup failed", "user_id", userID, "error", err)
			abort(c, err)
			return
		}

		c.Set(riderKey, rider)
		c.Next()
	}
}
