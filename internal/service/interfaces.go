package service

import (
	"context"

	"kickride/internal/domain"
	"kickride/internal/platform"
)

// RidePlatform is the fleet platform's ride resource.
type RidePlatform interface {
	StartRide(ctx context.Context, req platform.StartRideRequest) (string, error)
	TerminateRide(ctx context.Context, remoteRideID string, at *domain.GeoPoint) error
	SetDiscount(ctx context.Context, remoteRideID string, discount *domain.DiscountReference) error
	SetLock(ctx context.Context, remoteRideID string, locked bool) error
	SetLights(ctx context.Context, remoteRideID string, on bool) error
	SetMaxSpeed(ctx context.Context, remoteRideID string, maxSpeed *int) error
	GetStatus(ctx context.Context, remoteRideID string) (*domain.RideStatus, error)
	GetTimeline(ctx context.Context, remoteRideID string) ([]domain.TimelineEntry, error)
	GetPricing(ctx context.Context, remoteRideID string, at domain.GeoPoint) (*domain.RidePricing, error)
	SetReturnedPhoto(ctx context.Context, remoteRideID, photo string) error
	GetHelmet(ctx context.Context, remoteRideID, deviceInfo string) (domain.Helmet, error)
	GetHelmetCredentials(ctx context.Context, remoteRideID string) (domain.Helmet, error)
	BorrowHelmet(ctx context.Context, remoteRideID string, complete bool) (domain.Helmet, error)
	ReturnHelmet(ctx context.Context, remoteRideID string, complete bool) (domain.Helmet, error)
}

// KickboardDirectory lists vehicles known to the fleet platform.
type KickboardDirectory interface {
	NearKickboards(ctx context.Context, at domain.GeoPoint, radius int) ([]domain.Kickboard, error)
	GetKickboard(ctx context.Context, kickboardCode string) (*domain.Kickboard, error)
	KickboardCodeByQRCode(ctx context.Context, qrURL string) (string, error)
	GetRegions(ctx context.Context) ([]domain.Region, error)
}

// CouponGateway is the payments service's coupon API.
type CouponGateway interface {
	GetCoupon(ctx context.Context, userID, couponID string) (*domain.Coupon, error)
	RedeemCoupon(ctx context.Context, userID, couponID string) (*domain.CouponProperties, error)
	ReleaseCoupon(ctx context.Context, userID, couponID string) error
}

// PaymentsReadiness reports whether a rider can be charged.
type PaymentsReadiness interface {
	Ready(ctx context.Context, userID string) error
}

// Accounts is the accounts service as used after authentication.
type Accounts interface {
	GetUser(ctx context.Context, userID string) (*domain.Rider, error)
	GetLicense(ctx context.Context, userID string) (*domain.License, error)
	AwardPoints(ctx context.Context, userID, kind string, points int) error
	SendNotification(ctx context.Context, userID, title, message string, data map[string]any) error
}

// ErrorReporter forwards non-fatal failures to error tracking.
type ErrorReporter interface {
	Report(ctx context.Context, err error, attrs map[string]any)
}

// Ensure the production clients satisfy the collaborator contracts.
var (
	_ RidePlatform       = (*platform.Client)(nil)
	_ KickboardDirectory = (*platform.Client)(nil)
)
