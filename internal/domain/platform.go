package domain

import (
	"encoding/json"
	"time"
)

// RideStatus is the live kickboard state reported by the platform.
type RideStatus struct {
	GPS struct {
		Latitude           float64 `json:"latitude"`
		Longitude          float64 `json:"longitude"`
		SatelliteUsedCount int     `json:"satelliteUsedCount"`
		IsValid            bool    `json:"isValid"`
		Speed              float64 `json:"speed"`
	} `json:"gps"`
	Power struct {
		SpeedLimit int `json:"speedLimit"`
		Scooter    struct {
			Battery int `json:"battery"`
		} `json:"scooter"`
	} `json:"power"`
	IsEnabled  bool      `json:"isEnabled"`
	IsLightsOn bool      `json:"isLightsOn"`
	IsFallDown bool      `json:"isFallDown"`
	Speed      float64   `json:"speed"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TimelineEntry is one telemetry sample of a ride.
type TimelineEntry struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Battery   int       `json:"battery"`
	CreatedAt time.Time `json:"createdAt"`
}

// PriceLine is a single component of a ride price.
type PriceLine struct {
	Price    int `json:"price"`
	Discount int `json:"discount"`
	Total    int `json:"total"`
}

// RidePricing is the platform's computed price breakdown.
type RidePricing struct {
	Standard  PriceLine `json:"standard"`
	PerMinute PriceLine `json:"perMinute"`
	Surcharge PriceLine `json:"surcharge"`
	IsNightly bool      `json:"isNightly"`
	Price     int       `json:"price"`
	Discount  int       `json:"discount"`
	Total     int       `json:"total"`
}

// Helmet is the platform's borrowed-helmet resource. Its shape is owned by
// the platform and relayed as-is.
type Helmet = json.RawMessage

// Kickboard is a vehicle as listed by the platform.
type Kickboard struct {
	KickboardCode string  `json:"kickboardCode"`
	Lost          *int    `json:"lost"`
	Photo         *string `json:"photo"`
	HelmetID      *string `json:"helmetId"`
	Status        struct {
		GPS   GeoPoint `json:"gps"`
		Power struct {
			Scooter struct {
				Battery int `json:"battery"`
			} `json:"scooter"`
		} `json:"power"`
	} `json:"status"`
}

// Region is a service area with its pricing and geofences.
type Region struct {
	RegionID  string           `json:"regionId"`
	Enabled   bool             `json:"enabled"`
	Name      string           `json:"name"`
	PricingID string           `json:"pricingId"`
	Pricing   json.RawMessage  `json:"pricing,omitempty"`
	Geofences []RegionGeofence `json:"geofences"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// RegionGeofence is one polygon of a region. The GeoJSON is relayed as-is.
type RegionGeofence struct {
	GeofenceID string          `json:"geofenceId"`
	Enabled    bool            `json:"enabled"`
	Name       string          `json:"name"`
	GeoJSON    json.RawMessage `json:"geojson"`
	ProfileID  string          `json:"profileId"`
	Profile    json.RawMessage `json:"profile,omitempty"`
}
