package platform

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kickride/internal/domain"
)

// StartRideRequest is what the platform needs to open a ride.
type StartRideRequest struct {
	KickboardCode   string    `json:"kickboardCode"`
	UserID          string    `json:"userId"`
	Phone           string    `json:"phone"`
	Realname        string    `json:"realname"`
	Birthday        time.Time `json:"birthday"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	DiscountID      string    `json:"discountId,omitempty"`
	DiscountGroupID string    `json:"discountGroupId,omitempty"`
	Debug           bool      `json:"debug,omitempty"`
}

// StartRide opens a ride on the platform and returns its ride id.
func (c *Client) StartRide(ctx context.Context, req StartRideRequest) (string, error) {
	var resp struct {
		RideID string `json:"rideId"`
	}
	if err := c.do(ctx, "start_ride", http.MethodPost, "ride/rides", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.RideID, nil
}

// TerminateRide closes a ride. at may be nil when the rider's position is unknown.
func (c *Client) TerminateRide(ctx context.Context, remoteRideID string, at *domain.GeoPoint) error {
	var query url.Values
	if at != nil {
		query = geoQuery(*at)
	}
	return c.do(ctx, "terminate_ride", http.MethodDelete, ridePath(remoteRideID), query, nil, nil)
}

// SetDiscount replaces the discount applied to a ride. A nil discount clears it.
func (c *Client) SetDiscount(ctx context.Context, remoteRideID string, discount *domain.DiscountReference) error {
	body := struct {
		DiscountID      *string `json:"discountId"`
		DiscountGroupID *string `json:"discountGroupId"`
	}{}
	if discount != nil {
		body.DiscountID = &discount.DiscountID
		body.DiscountGroupID = &discount.DiscountGroupID
	}
	return c.do(ctx, "set_discount", http.MethodPost, ridePath(remoteRideID)+"/discount", nil, body, nil)
}

// SetLock locks or unlocks the kickboard of a ride.
func (c *Client) SetLock(ctx context.Context, remoteRideID string, locked bool) error {
	return c.do(ctx, "set_lock", http.MethodGet, ridePath(remoteRideID)+"/lock/"+onOff(locked), nil, nil, nil)
}

// SetLights turns the kickboard lights on or off.
func (c *Client) SetLights(ctx context.Context, remoteRideID string, on bool) error {
	return c.do(ctx, "set_lights", http.MethodGet, ridePath(remoteRideID)+"/lights/"+onOff(on), nil, nil, nil)
}

// SetMaxSpeed caps the kickboard speed. A nil speed restores the platform default.
func (c *Client) SetMaxSpeed(ctx context.Context, remoteRideID string, maxSpeed *int) error {
	query := url.Values{}
	if maxSpeed != nil {
		query.Set("maxSpeed", strconv.Itoa(*maxSpeed))
	}
	return c.do(ctx, "set_max_speed", http.MethodGet, ridePath(remoteRideID)+"/maxSpeed", query, nil, nil)
}

// GetStatus fetches the live kickboard status of a ride.
func (c *Client) GetStatus(ctx context.Context, remoteRideID string) (*domain.RideStatus, error) {
	var resp struct {
		Status domain.RideStatus `json:"status"`
	}
	if err := c.do(ctx, "get_status", http.MethodGet, ridePath(remoteRideID)+"/status", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Status, nil
}

// GetTimeline fetches the telemetry samples recorded for a ride.
func (c *Client) GetTimeline(ctx context.Context, remoteRideID string) ([]domain.TimelineEntry, error) {
	var resp struct {
		Timeline []domain.TimelineEntry `json:"timeline"`
	}
	if err := c.do(ctx, "get_timeline", http.MethodGet, ridePath(remoteRideID)+"/timeline", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Timeline == nil {
		resp.Timeline = []domain.TimelineEntry{}
	}
	return resp.Timeline, nil
}

// GetPricing asks the platform what the ride would cost if it ended at the given point.
func (c *Client) GetPricing(ctx context.Context, remoteRideID string, at domain.GeoPoint) (*domain.RidePricing, error) {
	var resp struct {
		Pricing domain.RidePricing `json:"pricing"`
	}
	if err := c.do(ctx, "get_pricing", http.MethodGet, ridePath(remoteRideID)+"/pricing", geoQuery(at), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Pricing, nil
}

// SetReturnedPhoto uploads the URL of the return photo.
func (c *Client) SetReturnedPhoto(ctx context.Context, remoteRideID, photo string) error {
	body := map[string]string{"photo": photo}
	return c.do(ctx, "set_photo", http.MethodPost, ridePath(remoteRideID)+"/photo", nil, body, nil)
}

func ridePath(remoteRideID string) string {
	return "ride/rides/" + url.PathEscape(remoteRideID)
}

func geoQuery(p domain.GeoPoint) url.Values {
	return url.Values{
		"latitude":  {strconv.FormatFloat(p.Latitude, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(p.Longitude, 'f', -1, 64)},
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
