package service

import (
	"context"
	"fmt"
	"time"

	"kickride/internal/coreservice"
	"kickride/internal/domain"
	"kickride/internal/metrics"
	"kickride/internal/repository"
)

var (
	_ CouponGateway     = (*coreservice.Payments)(nil)
	_ PaymentsReadiness = (*coreservice.Payments)(nil)
	_ Accounts          = (*coreservice.Accounts)(nil)
)

// CouponService checks coupon rules and exchanges coupons for platform
// discounts through the payments service.
type CouponService struct {
	coupons  CouponGateway
	rideRepo repository.RideRepository
	location *time.Location
	now      func() time.Time
}

// NewCouponService creates a new CouponService. Day-of-week and time-window
// rules are evaluated in location.
func NewCouponService(coupons CouponGateway, rideRepo repository.RideRepository, location *time.Location) *CouponService {
	if location == nil {
		location = time.UTC
	}
	return &CouponService{
		coupons:  coupons,
		rideRepo: rideRepo,
		location: location,
		now:      time.Now,
	}
}

// Get fetches a coupon owned by userID.
func (s *CouponService) Get(ctx context.Context, userID, couponID string) (*domain.Coupon, error) {
	coupon, err := s.coupons.GetCoupon(ctx, userID, couponID)
	if err != nil {
		if coreservice.IsNotFound(err) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	// The payments lookup is already scoped to users/{userID}; some
	// responses leave userId out, so only a conflicting owner is rejected.
	if coupon.UserID != "" && coupon.UserID != userID {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// VerifyEligibility applies the coupon's day-of-week, usage-count and
// time-window rules. Rides already using the coupon are counted before the
// current redemption.
func (s *CouponService) VerifyEligibility(ctx context.Context, coupon *domain.Coupon, userID string) error {
	rules := coupon.Rules()
	if rules == nil {
		return nil
	}

	now := s.now().In(s.location)

	if rules.DayOfWeek != 0 && rules.DayOfWeek&(1<<uint(now.Weekday())) == 0 {
		metrics.CouponRejections.WithLabelValues("day_of_week").Inc()
		return ErrCouponInvalidDayOfWeek
	}

	if rules.Count > 0 {
		filter := repository.RideFilter{UserID: userID, CouponID: coupon.CouponID}
		if rules.Period > 0 {
			filter.CreatedFrom = now.AddDate(0, 0, -rules.Period)
		}

		used, err := s.rideRepo.Count(ctx, filter)
		if err != nil {
			return fmt.Errorf("count coupon usage: %w", err)
		}
		if used >= rules.Count {
			if rules.Period > 0 {
				metrics.CouponRejections.WithLabelValues("count_of_period").Inc()
				return ErrCouponLimitCountOfPeriod
			}
			metrics.CouponRejections.WithLabelValues("count").Inc()
			return ErrCouponLimitCount
		}
	}

	if len(rules.Time) > 0 && !inTimeWindows(now, rules.Time) {
		metrics.CouponRejections.WithLabelValues("time").Inc()
		return ErrCouponNoAvailableTime
	}

	return nil
}

func inTimeWindows(now time.Time, windows [][2]int) bool {
	minute := now.Hour()*60 + now.Minute()
	for _, w := range windows {
		if minute >= w[0] && minute <= w[1] {
			return true
		}
	}
	return false
}

// Redeem consumes the coupon and returns its discount reference. The
// payments call is not idempotent; call once per logical redemption.
func (s *CouponService) Redeem(ctx context.Context, userID string, coupon *domain.Coupon) (*domain.DiscountReference, error) {
	props, err := s.coupons.RedeemCoupon(ctx, userID, coupon.CouponID)
	if err != nil {
		return nil, err
	}
	return discountOf(coupon, props), nil
}

// Discount returns the discount reference of an already redeemed coupon.
func (s *CouponService) Discount(ctx context.Context, userID, couponID string) (*domain.DiscountReference, error) {
	coupon, err := s.Get(ctx, userID, couponID)
	if err != nil {
		return nil, err
	}
	return discountOf(coupon, &coupon.Properties), nil
}

// discountOf prefers the discount issued at redemption and falls back to
// the coupon group's discount.
func discountOf(coupon *domain.Coupon, props *domain.CouponProperties) *domain.DiscountReference {
	if props != nil && props.OpenAPI != nil {
		return props.OpenAPI
	}

	ref := &domain.DiscountReference{}
	if group := coupon.CouponGroup.Properties.OpenAPI; group != nil {
		ref.DiscountGroupID = group.DiscountGroupID
	}
	return ref
}

// Acquire looks up, verifies and redeems a coupon in that order.
func (s *CouponService) Acquire(ctx context.Context, userID, couponID string) (*domain.DiscountReference, error) {
	coupon, err := s.Get(ctx, userID, couponID)
	if err != nil {
		return nil, err
	}
	if err := s.VerifyEligibility(ctx, coupon, userID); err != nil {
		return nil, err
	}
	return s.Redeem(ctx, userID, coupon)
}

// Reverse makes a redeemed coupon usable again.
func (s *CouponService) Reverse(ctx context.Context, userID, couponID string) error {
	return s.coupons.ReleaseCoupon(ctx, userID, couponID)
}
