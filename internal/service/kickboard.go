package service

import (
	"context"

	"kickride/internal/domain"
)

const (
	defaultNearRadius = 1000
	maxNearRadius     = 10000
)

// KickboardService serves vehicle and region lookups from the platform.
type KickboardService struct {
	directory KickboardDirectory
}

// NewKickboardService creates a new KickboardService.
func NewKickboardService(directory KickboardDirectory) *KickboardService {
	return &KickboardService{directory: directory}
}

// Near lists kickboards around a point. radius is in meters; zero means the
// default of 1000.
func (s *KickboardService) Near(ctx context.Context, at domain.GeoPoint, radius int) ([]domain.Kickboard, error) {
	if err := validatePoint(at.Latitude, at.Longitude); err != nil {
		return nil, err
	}
	if radius == 0 {
		radius = defaultNearRadius
	}
	if radius < 0 || radius > maxNearRadius {
		return nil, invalid("radius must be between 1 and %d", maxNearRadius)
	}
	return s.directory.NearKickboards(ctx, at, radius)
}

// Get fetches a kickboard by code.
func (s *KickboardService) Get(ctx context.Context, kickboardCode string) (*domain.Kickboard, error) {
	if !kickboardCodePattern.MatchString(kickboardCode) {
		return nil, invalid("kickboardCode must be alphanumeric")
	}
	return s.directory.GetKickboard(ctx, kickboardCode)
}

// CodeByQRCode resolves a scanned QR code URL to a kickboard code.
func (s *KickboardService) CodeByQRCode(ctx context.Context, qrURL string) (string, error) {
	if !isURI(qrURL) {
		return "", invalid("url must be a uri")
	}
	return s.directory.KickboardCodeByQRCode(ctx, qrURL)
}

// Regions lists the service regions.
func (s *KickboardService) Regions(ctx context.Context) ([]domain.Region, error) {
	return s.directory.GetRegions(ctx)
}
