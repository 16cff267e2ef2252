package platform

import (
	"context"
	"net/http"
	"net/url"

	"kickride/internal/domain"
)

type helmetResponse struct {
	Helmet domain.Helmet `json:"helmet"`
}

// GetHelmet returns the helmet attached to a ride's kickboard.
func (c *Client) GetHelmet(ctx context.Context, remoteRideID, deviceInfo string) (domain.Helmet, error) {
	var query url.Values
	if deviceInfo != "" {
		query = url.Values{"deviceInfo": {deviceInfo}}
	}

	var resp helmetResponse
	if err := c.do(ctx, "get_helmet", http.MethodGet, ridePath(remoteRideID)+"/borrowedHelmet", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Helmet, nil
}

// GetHelmetCredentials returns the credentials used to unlock the helmet.
func (c *Client) GetHelmetCredentials(ctx context.Context, remoteRideID string) (domain.Helmet, error) {
	var resp helmetResponse
	if err := c.do(ctx, "get_helmet_credentials", http.MethodGet, ridePath(remoteRideID)+"/borrowedHelmet/credentials", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Helmet, nil
}

// BorrowHelmet prepares a helmet borrow, or confirms it when complete is set.
func (c *Client) BorrowHelmet(ctx context.Context, remoteRideID string, complete bool) (domain.Helmet, error) {
	return c.helmetStep(ctx, "borrow_helmet", remoteRideID, "borrow", complete)
}

// ReturnHelmet prepares a helmet return, or confirms it when complete is set.
func (c *Client) ReturnHelmet(ctx context.Context, remoteRideID string, complete bool) (domain.Helmet, error) {
	return c.helmetStep(ctx, "return_helmet", remoteRideID, "return", complete)
}

func (c *Client) helmetStep(ctx context.Context, operation, remoteRideID, step string, complete bool) (domain.Helmet, error) {
	method := http.MethodGet
	if complete {
		method = http.MethodPatch
	}

	var resp helmetResponse
	if err := c.do(ctx, operation, method, ridePath(remoteRideID)+"/borrowedHelmet/"+step, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Helmet, nil
}
