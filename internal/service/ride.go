package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"github.com/google/uuid"

	"kickride/internal/config"
	"kickride/internal/coreservice"
	"kickride/internal/domain"
	"kickride/internal/metrics"
	"kickride/internal/platform"
	"kickride/internal/redis"
	"kickride/internal/repository"
)

var kickboardCodePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// RideService orchestrates the ride lifecycle across the local store, the
// fleet platform and the payments coupon protocol.
type RideService struct {
	rideRepo      repository.RideRepository
	platform      RidePlatform
	coupons       *CouponService
	accounts      Accounts
	payments      PaymentsReadiness
	locker        redis.RiderLocker
	notifications *NotificationService
	reporter      ErrorReporter

	policy       config.ControlPolicy
	lockTTL      time.Duration
	defaultSpeed int
	now          func() time.Time
}

// NewRideService creates a new RideService.
func NewRideService(
	rideRepo repository.RideRepository,
	ridePlatform RidePlatform,
	coupons *CouponService,
	accounts Accounts,
	payments PaymentsReadiness,
	locker redis.RiderLocker,
	notifications *NotificationService,
	reporter ErrorReporter,
	cfg config.RideConfig,
) *RideService {
	if reporter == nil {
		reporter = nopReporter{}
	}
	policy := cfg.ControlPolicy
	if policy == "" {
		policy = config.ControlPolicyConfirmed
	}
	defaultSpeed := cfg.DefaultSpeedKm
	if defaultSpeed <= 0 {
		defaultSpeed = 20
	}
	lockTTL := cfg.StartLockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}

	return &RideService{
		rideRepo:      rideRepo,
		platform:      ridePlatform,
		coupons:       coupons,
		accounts:      accounts,
		payments:      payments,
		locker:        locker,
		notifications: notifications,
		reporter:      reporter,
		policy:        policy,
		lockTTL:       lockTTL,
		defaultSpeed:  defaultSpeed,
		now:           time.Now,
	}
}

// StartRideRequest contains the parameters for starting a ride.
type StartRideRequest struct {
	KickboardCode string
	CouponID      string // Optional
	Latitude      float64
	Longitude     float64
	Debug         bool
}

// Start opens a ride for rider on a kickboard.
//
// Steps run in a fixed order: coupon redemption, platform ride creation,
// local insert. A failure after the coupon was redeemed releases it again,
// and a failed local insert also terminates the platform ride.
func (s *RideService) Start(ctx context.Context, rider *domain.Rider, req StartRideRequest) (*domain.Ride, error) {
	if err := validateStartRequest(req); err != nil {
		return nil, err
	}

	token, err := s.locker.AcquireRiderLock(ctx, rider.UserID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire start lock: %w", err)
	}
	if token == "" {
		return nil, ErrAlreadyRiding
	}
	defer func() {
		if err := s.locker.ReleaseRiderLock(context.WithoutCancel(ctx), rider.UserID, token); err != nil {
			slog.WarnContext(ctx, "release start lock failed", "user_id", rider.UserID, "error", err)
		}
	}()

	current, err := s.rideRepo.GetCurrentByUser(ctx, rider.UserID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, ErrAlreadyRiding
	}

	var discount *domain.DiscountReference
	if req.CouponID != "" {
		discount, err = s.coupons.Acquire(ctx, rider.UserID, req.CouponID)
		if err != nil {
			return nil, err
		}
	}

	platformReq := platform.StartRideRequest{
		KickboardCode: req.KickboardCode,
		UserID:        rider.UserID,
		Phone:         rider.Phone,
		Realname:      rider.Realname,
		Birthday:      rider.Birthday,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Debug:         req.Debug,
	}
	if discount != nil {
		platformReq.DiscountID = discount.DiscountID
		platformReq.DiscountGroupID = discount.DiscountGroupID
	}

	remoteRideID, err := s.platform.StartRide(ctx, platformReq)
	if err != nil {
		s.releaseCoupon(ctx, rider.UserID, req.CouponID, "start_failed")
		return nil, err
	}

	now := s.now()
	ride := &domain.Ride{
		ID:            uuid.New().String(),
		UserID:        rider.UserID,
		KickboardCode: req.KickboardCode,
		Properties:    domain.RideProperties{OpenAPI: domain.OpenAPIRide{RideID: remoteRideID}},
		CreatedAt:     now,
	}
	if req.CouponID != "" {
		couponID := req.CouponID
		ride.CouponID = &couponID
	}
	first := &domain.Location{
		ID:        uuid.New().String(),
		RideID:    ride.ID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		CreatedAt: now,
	}

	if err := s.rideRepo.Create(ctx, ride, first); err != nil {
		s.abandonRemoteRide(ctx, remoteRideID, rider.UserID, &domain.GeoPoint{Latitude: req.Latitude, Longitude: req.Longitude})
		s.releaseCoupon(ctx, rider.UserID, req.CouponID, "insert_failed")
		if errors.Is(err, repository.ErrActiveRideExists) {
			return nil, ErrAlreadyRiding
		}
		return nil, err
	}

	metrics.RideEvents.WithLabelValues("started").Inc()
	slog.InfoContext(ctx, "ride started", "ride_id", ride.ID, "user_id", ride.UserID, "kickboard_code", ride.KickboardCode)
	return ride, nil
}

func (s *RideService) releaseCoupon(ctx context.Context, userID, couponID, reason string) {
	if couponID == "" {
		return
	}

	ctx = context.WithoutCancel(ctx)
	if reason != "coupon_changed" {
		metrics.RideEvents.WithLabelValues("coupon_compensated").Inc()
	}
	if err := s.coupons.Reverse(ctx, userID, couponID); err != nil {
		slog.ErrorContext(ctx, "coupon compensation failed", "user_id", userID, "coupon_id", couponID, "reason", reason, "error", err)
		s.reporter.Report(ctx, fmt.Errorf("release coupon %s: %w", couponID, err), map[string]any{"user_id": userID, "reason": reason})
		return
	}
	slog.InfoContext(ctx, "coupon released", "user_id", userID, "coupon_id", couponID, "reason", reason)
}

func (s *RideService) abandonRemoteRide(ctx context.Context, remoteRideID, userID string, at *domain.GeoPoint) {
	ctx = context.WithoutCancel(ctx)
	metrics.RideEvents.WithLabelValues("remote_compensated").Inc()
	if err := s.platform.TerminateRide(ctx, remoteRideID, at); err != nil && !platform.IsRideAlreadyEnded(err) {
		slog.ErrorContext(ctx, "platform ride compensation failed", "user_id", userID, "remote_ride_id", remoteRideID, "error", err)
		s.reporter.Report(ctx, fmt.Errorf("terminate orphaned platform ride %s: %w", remoteRideID, err), map[string]any{"user_id": userID})
	}
}

// Terminate ends a ride. The platform's "already ended" answer counts as
// success; any other platform failure leaves the local ride open.
// at may be nil when the rider's position is unknown.
func (s *RideService) Terminate(ctx context.Context, ride *domain.Ride, at *domain.GeoPoint) (*domain.Ride, error) {
	if at != nil {
		if err := validatePoint(at.Latitude, at.Longitude); err != nil {
			return nil, err
		}
	}

	if err := s.platform.TerminateRide(ctx, ride.RemoteRideID(), at); err != nil {
		if !platform.IsRideAlreadyEnded(err) {
			return nil, err
		}
		metrics.RideEvents.WithLabelValues("already_ended").Inc()
		slog.InfoContext(ctx, "ride already ended on platform", "ride_id", ride.ID, "user_id", ride.UserID)
	}

	if ride.EndedAt != nil {
		return ride, nil
	}

	endedAt := s.now()
	updated, err := s.rideRepo.Update(ctx, ride.ID, repository.RidePatch{EndedAt: &endedAt})
	if err != nil {
		return nil, err
	}

	metrics.RideEvents.WithLabelValues("terminated").Inc()
	slog.InfoContext(ctx, "ride terminated", "ride_id", updated.ID, "user_id", updated.UserID)

	s.awardPoints(ctx, updated)
	if s.notifications != nil {
		s.notifications.NotifyRideEnded(ctx, updated)
	}
	return updated, nil
}

func (s *RideService) awardPoints(ctx context.Context, ride *domain.Ride) {
	if err := s.accounts.AwardPoints(ctx, ride.UserID, "ride", 1); err != nil {
		metrics.RideEvents.WithLabelValues("points_failed").Inc()
		slog.WarnContext(ctx, "award ride points failed", "ride_id", ride.ID, "user_id", ride.UserID, "error", err)
		s.reporter.Report(ctx, fmt.Errorf("award points: %w", err), map[string]any{"ride_id": ride.ID, "user_id": ride.UserID})
	}
}

// ChangeCoupon swaps the coupon applied to an active ride. An empty couponID
// detaches the current coupon.
//
// The new coupon is redeemed and pushed to the platform, and the ride row is
// updated, before the old coupon is released. A failure before the row is
// updated leaves the old coupon redeemed and attached. A failure to release
// the old coupon afterwards is reported, never retried as a second use.
func (s *RideService) ChangeCoupon(ctx context.Context, ride *domain.Ride, couponID string) (*domain.Ride, error) {
	if couponID != "" && !isUUID(couponID) {
		return nil, invalid("couponId must be a uuid")
	}
	if ride.State() != domain.RideStateActive {
		return nil, ErrCurrentNotRiding
	}
	if ride.HasCoupon(couponID) {
		return ride, nil
	}

	var discount *domain.DiscountReference
	if couponID != "" {
		var err error
		discount, err = s.coupons.Acquire(ctx, ride.UserID, couponID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.platform.SetDiscount(ctx, ride.RemoteRideID(), discount); err != nil {
		s.releaseCoupon(ctx, ride.UserID, couponID, "change_failed")
		return nil, err
	}

	patch := repository.RidePatch{SetCoupon: true}
	if couponID != "" {
		patch.CouponID = &couponID
	}
	updated, err := s.rideRepo.Update(ctx, ride.ID, patch)
	if err != nil {
		s.restoreDiscount(ctx, ride)
		s.releaseCoupon(ctx, ride.UserID, couponID, "change_failed")
		return nil, err
	}

	if ride.CouponID != nil {
		s.releaseCoupon(ctx, ride.UserID, *ride.CouponID, "coupon_changed")
	}

	metrics.RideEvents.WithLabelValues("coupon_changed").Inc()
	return updated, nil
}

// restoreDiscount puts the discount of the ride's stored coupon back on the
// platform ride.
func (s *RideService) restoreDiscount(ctx context.Context, ride *domain.Ride) {
	ctx = context.WithoutCancel(ctx)
	metrics.RideEvents.WithLabelValues("discount_compensated").Inc()

	var discount *domain.DiscountReference
	if ride.CouponID != nil {
		var err error
		discount, err = s.coupons.Discount(ctx, ride.UserID, *ride.CouponID)
		if err != nil {
			slog.ErrorContext(ctx, "discount compensation failed", "ride_id", ride.ID, "user_id", ride.UserID, "error", err)
			s.reporter.Report(ctx, fmt.Errorf("load discount of coupon %s: %w", *ride.CouponID, err), map[string]any{"ride_id": ride.ID, "user_id": ride.UserID})
			return
		}
	}

	if err := s.platform.SetDiscount(ctx, ride.RemoteRideID(), discount); err != nil {
		slog.ErrorContext(ctx, "discount compensation failed", "ride_id", ride.ID, "user_id", ride.UserID, "error", err)
		s.reporter.Report(ctx, fmt.Errorf("restore platform discount: %w", err), map[string]any{"ride_id": ride.ID, "user_id": ride.UserID})
	}
}

// AddLocation appends a position sample to a ride.
func (s *RideService) AddLocation(ctx context.Context, ride *domain.Ride, at domain.GeoPoint) (*domain.Location, error) {
	if err := validatePoint(at.Latitude, at.Longitude); err != nil {
		return nil, err
	}

	loc := &domain.Location{
		ID:        uuid.New().String(),
		RideID:    ride.ID,
		Latitude:  at.Latitude,
		Longitude: at.Longitude,
		CreatedAt: s.now(),
	}
	if err := s.rideRepo.CreateLocation(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// SetReturnedPhoto pushes the return photo to the platform, then stores it.
func (s *RideService) SetReturnedPhoto(ctx context.Context, ride *domain.Ride, photo string) (*domain.Ride, error) {
	if !isURI(photo) {
		return nil, invalid("photo must be a uri")
	}
	if err := s.platform.SetReturnedPhoto(ctx, ride.RemoteRideID(), photo); err != nil {
		return nil, err
	}
	return s.rideRepo.Update(ctx, ride.ID, repository.RidePatch{Photo: &photo})
}

// ModifyRideRequest lists the ride fields operators may correct. The
// platform ride id is not among them.
type ModifyRideRequest struct {
	UserID        *string
	KickboardCode *string
	Price         *int
}

// Modify applies an operator correction to a ride.
func (s *RideService) Modify(ctx context.Context, ride *domain.Ride, req ModifyRideRequest) (*domain.Ride, error) {
	if req.UserID != nil && !isUUID(*req.UserID) {
		return nil, invalid("userId must be a uuid")
	}
	if req.KickboardCode != nil && len(*req.KickboardCode) != 6 {
		return nil, invalid("kickboardCode must be 6 characters")
	}
	if req.Price != nil && *req.Price < 0 {
		return nil, invalid("price must not be negative")
	}

	updated, err := s.rideRepo.Update(ctx, ride.ID, repository.RidePatch{
		UserID:        req.UserID,
		KickboardCode: req.KickboardCode,
		Price:         req.Price,
	})
	if errors.Is(err, repository.ErrActiveRideExists) {
		return nil, ErrAlreadyRiding
	}
	return updated, err
}

// CheckReady verifies the rider may start a ride: a registered license and
// a chargeable payment method.
func (s *RideService) CheckReady(ctx context.Context, userID string) error {
	if _, err := s.accounts.GetLicense(ctx, userID); err != nil {
		if isClientError(err) {
			return ErrLicenseRequired
		}
		return err
	}
	if err := s.payments.Ready(ctx, userID); err != nil {
		if isClientError(err) {
			return ErrPaymentsNotReady
		}
		return err
	}
	return nil
}

// GetCurrentRide returns the rider's active ride, or nil when not riding.
func (s *RideService) GetCurrentRide(ctx context.Context, userID string) (*domain.Ride, error) {
	return s.rideRepo.GetCurrentByUser(ctx, userID)
}

// GetCurrentRideOrThrow returns the rider's active ride or ErrCurrentNotRiding.
func (s *RideService) GetCurrentRideOrThrow(ctx context.Context, userID string) (*domain.Ride, error) {
	ride, err := s.rideRepo.GetCurrentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, ErrCurrentNotRiding
	}
	return ride, nil
}

// GetRideOrThrow returns a ride by id. A non-empty userID restricts the
// lookup to that rider's rides.
func (s *RideService) GetRideOrThrow(ctx context.Context, rideID, userID string) (*domain.Ride, error) {
	if !isUUID(rideID) {
		return nil, ErrCannotFindRide
	}
	ride, err := s.rideRepo.GetByID(ctx, rideID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCannotFindRide
		}
		return nil, err
	}
	return ride, nil
}

// GetRideByRemoteIDOrThrow returns the ride the platform knows as remoteRideID.
func (s *RideService) GetRideByRemoteIDOrThrow(ctx context.Context, remoteRideID string) (*domain.Ride, error) {
	if remoteRideID == "" {
		return nil, ErrCannotFindRide
	}
	ride, err := s.rideRepo.GetByRemoteRideID(ctx, remoteRideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCannotFindRide
		}
		return nil, err
	}
	return ride, nil
}

// validateStartRequest validates the start ride request.
func validateStartRequest(req StartRideRequest) error {
	if req.KickboardCode == "" || !kickboardCodePattern.MatchString(req.KickboardCode) {
		return invalid("kickboardCode must be alphanumeric")
	}
	if req.CouponID != "" && !isUUID(req.CouponID) {
		return invalid("couponId must be a uuid")
	}
	return validatePoint(req.Latitude, req.Longitude)
}

func validatePoint(lat, lng float64) error {
	if !isValidLatitude(lat) {
		return invalid("latitude must be between -90 and 90")
	}
	if !isValidLongitude(lng) {
		return invalid("longitude must be between -180 and 180")
	}
	return nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func isURI(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// isClientError reports a 4xx answer from a core service.
func isClientError(err error) bool {
	var apiErr *coreservice.APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, error, map[string]any) {}
