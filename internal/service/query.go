package service

import (
	"context"
	"time"

	"kickride/internal/domain"
	"kickride/internal/repository"
)

const (
	defaultRidesTake = 10
	maxRidesTake     = 100
)

// RideQuery is a history listing request. Nil fields take their defaults:
// take 10, skip 0, from epoch to now, ordered by createdAt descending.
type RideQuery struct {
	Take         *int
	Skip         *int
	Search       string
	UserID       string
	CouponID     string
	StartedAt    *time.Time
	EndedAt      *time.Time
	OrderByField string
	OrderBySort  string
}

// RideList is one page of rides plus the total number of matches.
type RideList struct {
	Rides []*domain.Ride `json:"rides"`
	Total int            `json:"total"`
}

// GetRides lists rides. When rider is non-nil the listing is restricted to
// that rider whatever UserID was requested.
func (s *RideService) GetRides(ctx context.Context, query RideQuery, rider *domain.Rider) (*RideList, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, err
	}
	if rider != nil {
		filter.UserID = rider.UserID
	}

	rides, total, err := s.rideRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &RideList{Rides: rides, Total: total}, nil
}

func (s *RideService) buildFilter(q RideQuery) (repository.RideFilter, error) {
	filter := repository.RideFilter{
		Search:      q.Search,
		Take:        defaultRidesTake,
		CreatedFrom: time.Unix(0, 0),
		CreatedTo:   s.now(),
		OrderBy:     repository.OrderByCreatedAt,
		OrderDesc:   true,
	}

	if q.Take != nil {
		if *q.Take < 0 || *q.Take > maxRidesTake {
			return filter, invalid("take must be between 0 and %d", maxRidesTake)
		}
		filter.Take = *q.Take
	}
	if q.Skip != nil {
		if *q.Skip < 0 {
			return filter, invalid("skip must not be negative")
		}
		filter.Skip = *q.Skip
	}
	if q.UserID != "" {
		if !isUUID(q.UserID) {
			return filter, invalid("userId must be a uuid")
		}
		filter.UserID = q.UserID
	}
	if q.CouponID != "" {
		if !isUUID(q.CouponID) {
			return filter, invalid("couponId must be a uuid")
		}
		filter.CouponID = q.CouponID
	}
	if q.StartedAt != nil {
		filter.CreatedFrom = *q.StartedAt
	}
	if q.EndedAt != nil {
		filter.CreatedTo = *q.EndedAt
	}

	switch repository.OrderField(q.OrderByField) {
	case "":
	case repository.OrderByCreatedAt, repository.OrderByUpdatedAt, repository.OrderByEndedAt:
		filter.OrderBy = repository.OrderField(q.OrderByField)
	default:
		return filter, invalid("orderByField must be one of createdAt, updatedAt, endedAt")
	}

	switch q.OrderBySort {
	case "", "desc":
	case "asc":
		filter.OrderDesc = false
	default:
		return filter, invalid("orderBySort must be asc or desc")
	}

	return filter, nil
}
