package domain

import (
	"encoding/json"
	"time"
)

// RideState is the lifecycle state of a ride as seen locally.
type RideState string

const (
	RideStateNone   RideState = "NONE"
	RideStateActive RideState = "ACTIVE"
	RideStateEnded  RideState = "ENDED"
)

// RideProperties is the opaque bag stored with a ride. The platform ride id
// lives under openapi.rideId and never changes after creation.
type RideProperties struct {
	OpenAPI OpenAPIRide `json:"openapi"`
}

// OpenAPIRide identifies the ride on the fleet platform.
type OpenAPIRide struct {
	RideID string `json:"rideId"`
}

// Ride represents one kickboard rental session.
type Ride struct {
	ID            string         `json:"rideId"`
	UserID        string         `json:"userId"`
	KickboardCode string         `json:"kickboardCode"`
	CouponID      *string        `json:"couponId"`
	Photo         *string        `json:"photo"`
	IsLocked      bool           `json:"isLocked"`
	IsLightsOn    bool           `json:"isLightsOn"`
	MaxSpeed      *int           `json:"maxSpeed"`
	Price         *int           `json:"price"`
	Properties    RideProperties `json:"properties"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	EndedAt       *time.Time     `json:"endedAt"`
}

// RemoteRideID returns the platform's identifier for this ride.
func (r *Ride) RemoteRideID() string {
	return r.Properties.OpenAPI.RideID
}

// State reports where the ride sits in NONE -> ACTIVE -> ENDED.
func (r *Ride) State() RideState {
	if r == nil {
		return RideStateNone
	}
	if r.EndedAt != nil {
		return RideStateEnded
	}
	return RideStateActive
}

// HasCoupon reports whether couponID is the coupon currently attached.
// An empty couponID matches a ride without a coupon.
func (r *Ride) HasCoupon(couponID string) bool {
	if r.CouponID == nil {
		return couponID == ""
	}
	return *r.CouponID == couponID
}

// MarshalProperties encodes the properties bag for storage.
func (p RideProperties) MarshalProperties() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalProperties decodes a stored properties bag.
func UnmarshalProperties(data []byte) (RideProperties, error) {
	var p RideProperties
	if len(data) == 0 {
		return p, nil
	}
	err := json.Unmarshal(data, &p)
	return p, err
}

// Location is a position sample appended to a ride.
type Location struct {
	ID        string    `json:"locationId"`
	RideID    string    `json:"rideId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
