package repository

import (
	"context"
	"time"

	"kickride/internal/domain"
)

// OrderField is a column rides may be sorted by.
type OrderField string

const (
	OrderByCreatedAt OrderField = "createdAt"
	OrderByUpdatedAt OrderField = "updatedAt"
	OrderByEndedAt   OrderField = "endedAt"
)

// RideFilter narrows a ride listing. Zero values mean "no constraint" except
// for Take, which the query layer always fills in.
type RideFilter struct {
	Search      string
	UserID      string
	CouponID    string
	CreatedFrom time.Time
	CreatedTo   time.Time
	OrderBy     OrderField
	OrderDesc   bool
	Take        int
	Skip        int
}

// RidePatch lists the mutable columns of a ride. Nil fields are left untouched;
// the coupon is written only when SetCoupon is true so it can be cleared.
// EndedAt never overwrites an end time that is already set.
type RidePatch struct {
	UserID        *string
	KickboardCode *string
	SetCoupon     bool
	CouponID      *string
	Photo         *string
	IsLocked      *bool
	IsLightsOn    *bool
	MaxSpeed      *int
	Price         *int
	EndedAt       *time.Time
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride together with its first location sample.
	// Returns ErrActiveRideExists when the user already has an open ride.
	Create(ctx context.Context, ride *domain.Ride, first *domain.Location) error

	// Update applies patch to the ride and returns the stored row.
	Update(ctx context.Context, rideID string, patch RidePatch) (*domain.Ride, error)

	// GetByID retrieves a ride by ID, restricted to userID when it is non-empty.
	GetByID(ctx context.Context, rideID, userID string) (*domain.Ride, error)

	// GetCurrentByUser retrieves the newest unterminated ride of a user.
	// Returns nil if the user is not riding.
	GetCurrentByUser(ctx context.Context, userID string) (*domain.Ride, error)

	// GetByRemoteRideID retrieves a ride by its platform ride id.
	GetByRemoteRideID(ctx context.Context, remoteRideID string) (*domain.Ride, error)

	// List returns one page of rides and the total number of matches,
	// both read from the same snapshot.
	List(ctx context.Context, filter RideFilter) ([]*domain.Ride, int, error)

	// Count returns the number of rides matching filter.
	Count(ctx context.Context, filter RideFilter) (int, error)

	// CreateLocation appends a location sample to a ride.
	CreateLocation(ctx context.Context, loc *domain.Location) error
}
