package coreservice

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"kickride/internal/domain"
)

// Payments is the payments-service client: readiness and coupons.
type Payments struct {
	c *client
}

// NewPayments creates a payments client. tokens should be a long-lived
// source for the "coreservice-payments" subject.
func NewPayments(baseURL string, tokens *TokenSource, timeout time.Duration) *Payments {
	return &Payments{c: newClient("payments", baseURL, tokens, timeout)}
}

// Ready fails when the rider has unsettled payments or no payment method.
func (p *Payments) Ready(ctx context.Context, userID string) error {
	return p.c.do(ctx, "ready", http.MethodGet, url.PathEscape(userID)+"/ready", nil, nil, nil)
}

// GetCoupon fetches a coupon owned by userID.
func (p *Payments) GetCoupon(ctx context.Context, userID, couponID string) (*domain.Coupon, error) {
	var resp struct {
		Coupon domain.Coupon `json:"coupon"`
	}
	if err := p.c.do(ctx, "get_coupon", http.MethodGet, couponPath(userID, couponID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Coupon, nil
}

// RedeemCoupon marks a coupon used and returns the platform discount it unlocks.
// The call is not idempotent.
func (p *Payments) RedeemCoupon(ctx context.Context, userID, couponID string) (*domain.CouponProperties, error) {
	var resp struct {
		Properties domain.CouponProperties `json:"properties"`
	}
	if err := p.c.do(ctx, "redeem_coupon", http.MethodGet, couponPath(userID, couponID)+"/redeem", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Properties, nil
}

// ReleaseCoupon clears usedAt so the coupon can be redeemed again.
func (p *Payments) ReleaseCoupon(ctx context.Context, userID, couponID string) error {
	body := map[string]any{"usedAt": nil}
	return p.c.do(ctx, "release_coupon", http.MethodPost, couponPath(userID, couponID), nil, body, nil)
}

func couponPath(userID, couponID string) string {
	return "users/" + url.PathEscape(userID) + "/coupons/" + url.PathEscape(couponID)
}
