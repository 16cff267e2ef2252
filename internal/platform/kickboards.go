package platform

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"kickride/internal/domain"
)

// NearKickboards lists kickboards within radius meters of a point.
func (c *Client) NearKickboards(ctx context.Context, at domain.GeoPoint, radius int) ([]domain.Kickboard, error) {
	query := url.Values{
		"lat":    {strconv.FormatFloat(at.Latitude, 'f', -1, 64)},
		"lng":    {strconv.FormatFloat(at.Longitude, 'f', -1, 64)},
		"radius": {strconv.Itoa(radius)},
	}

	var resp struct {
		Kickboards []domain.Kickboard `json:"kickboards"`
	}
	if err := c.do(ctx, "near_kickboards", http.MethodGet, "kickboard/near", query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Kickboards == nil {
		resp.Kickboards = []domain.Kickboard{}
	}
	return resp.Kickboards, nil
}

// GetKickboard fetches one kickboard by its code.
func (c *Client) GetKickboard(ctx context.Context, kickboardCode string) (*domain.Kickboard, error) {
	var resp struct {
		Kickboard domain.Kickboard `json:"kickboard"`
	}
	if err := c.do(ctx, "get_kickboard", http.MethodGet, "kickboard/"+url.PathEscape(kickboardCode), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Kickboard, nil
}

// KickboardCodeByQRCode resolves the kickboard code printed in a QR code URL.
func (c *Client) KickboardCodeByQRCode(ctx context.Context, qrURL string) (string, error) {
	var resp struct {
		KickboardCode string `json:"kickboardCode"`
	}
	body := map[string]string{"url": qrURL}
	if err := c.do(ctx, "kickboard_qrcode", http.MethodPost, "kickboard/qrcode", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.KickboardCode, nil
}

// GetRegions lists every service region.
func (c *Client) GetRegions(ctx context.Context) ([]domain.Region, error) {
	var resp struct {
		Regions []domain.Region `json:"regions"`
	}
	if err := c.do(ctx, "get_regions", http.MethodGet, "location/regions/all", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Regions == nil {
		resp.Regions = []domain.Region{}
	}
	return resp.Regions, nil
}
