package domain

import "time"

// CouponGroupType distinguishes reusable coupons from single-use ones.
type CouponGroupType string

const (
	CouponGroupLongtime CouponGroupType = "LONGTIME"
	CouponGroupOnetime  CouponGroupType = "ONETIME"
)

// Coupon is a payments-owned discount coupon issued to a rider.
type Coupon struct {
	CouponID      string           `json:"couponId"`
	UserID        string           `json:"userId"`
	CouponGroupID string           `json:"couponGroupId"`
	CouponGroup   CouponGroup      `json:"couponGroup"`
	Properties    CouponProperties `json:"properties"`
	UsedAt        *time.Time       `json:"usedAt"`
	ExpiredAt     *time.Time       `json:"expiredAt"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// CouponGroup carries the usage rules shared by every coupon of a kind.
type CouponGroup struct {
	CouponGroupID string                `json:"couponGroupId"`
	Code          string                `json:"code"`
	Type          CouponGroupType       `json:"type"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Validity      int                   `json:"validity"`
	Limit         int                   `json:"limit"`
	Properties    CouponGroupProperties `json:"properties"`
}

// CouponProperties holds the platform discount issued when a coupon is redeemed.
type CouponProperties struct {
	OpenAPI *DiscountReference `json:"openapi,omitempty"`
}

// CouponGroupProperties holds the platform discount group and the usage rules.
type CouponGroupProperties struct {
	OpenAPI *struct {
		DiscountGroupID string `json:"discountGroupId"`
	} `json:"openapi,omitempty"`
	CoreService *CouponRules `json:"coreservice,omitempty"`
}

// CouponRules restrict when a coupon may be used.
//
// DayOfWeek is a 7-bit mask, bit 0 being Sunday. Count limits how many rides
// may use the coupon, over the trailing Period days when Period is set.
// Time lists inclusive [start, end] minute-of-day windows.
type CouponRules struct {
	DayOfWeek int      `json:"dayOfWeek,omitempty"`
	Period    int      `json:"period,omitempty"`
	Count     int      `json:"count,omitempty"`
	Time      [][2]int `json:"time,omitempty"`
}

// Rules returns the coupon's usage rules, or nil when unrestricted.
func (c *Coupon) Rules() *CouponRules {
	return c.CouponGroup.Properties.CoreService
}

// DiscountReference is what the platform pricing engine needs to apply a discount.
type DiscountReference struct {
	DiscountID      string     `json:"discountId,omitempty"`
	DiscountGroupID string     `json:"discountGroupId,omitempty"`
	ExpiredAt       *time.Time `json:"expiredAt,omitempty"`
}
