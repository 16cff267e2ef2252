package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"kickride/internal/domain"
	"kickride/internal/middleware"
	"kickride/internal/service"
)

// RideHandler serves ride actions. The ride itself is resolved by the ride
// middleware, so the same handlers back the rider and the internal routes.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// StartRideParams are the query parameters of a ride start.
type StartRideParams struct {
	KickboardCode string   `form:"kickboardCode" binding:"required"`
	CouponID      string   `form:"couponId"`
	Latitude      *float64 `form:"latitude" binding:"required"`
	Longitude     *float64 `form:"longitude" binding:"required"`
	Debug         bool     `form:"debug"`
}

var errMissingCoordinate = errors.New("latitude and longitude must be given together")

// PointParams is an optional latitude/longitude pair in the query string.
type PointParams struct {
	Latitude  *float64 `form:"latitude"`
	Longitude *float64 `form:"longitude"`
}

func (p PointParams) point() (*domain.GeoPoint, error) {
	if p.Latitude == nil && p.Longitude == nil {
		return nil, nil
	}
	if p.Latitude == nil || p.Longitude == nil {
		return nil, bindError(errMissingCoordinate)
	}
	return &domain.GeoPoint{Latitude: *p.Latitude, Longitude: *p.Longitude}, nil
}

// ChangeCouponRequest is the body of a coupon change. A null or empty
// couponId removes the coupon.
type ChangeCouponRequest struct {
	CouponID *string `json:"couponId"`
}

// PhotoRequest is the body of a return photo upload.
type PhotoRequest struct {
	Photo string `json:"photo" binding:"required"`
}

// MaxSpeedRequest is the body of a speed cap change. Null restores the default.
type MaxSpeedRequest struct {
	MaxSpeed *int `json:"maxSpeed"`
}

// ModifyRideRequest is the body of an operator correction.
type ModifyRideRequest struct {
	UserID        *string `json:"userId"`
	KickboardCode *string `json:"kickboardCode"`
	Price         *int    `json:"price"`
}

// ListRidesParams are the query parameters of a ride listing.
type ListRidesParams struct {
	Take         *int   `form:"take"`
	Skip         *int   `form:"skip"`
	Search       string `form:"search"`
	UserID       string `form:"userId"`
	CouponID     string `form:"couponId"`
	StartedAt    string `form:"startedAt"`
	EndedAt      string `form:"endedAt"`
	OrderByField string `form:"orderByField"`
	OrderBySort  string `form:"orderBySort"`
}

func (p ListRidesParams) query() (service.RideQuery, error) {
	q := service.RideQuery{
		Take:         p.Take,
		Skip:         p.Skip,
		Search:       p.Search,
		UserID:       p.UserID,
		CouponID:     p.CouponID,
		OrderByField: p.OrderByField,
		OrderBySort:  p.OrderBySort,
	}
	var err error
	if q.StartedAt, err = parseTime(p.StartedAt); err != nil {
		return q, bindError(err)
	}
	if q.EndedAt, err = parseTime(p.EndedAt); err != nil {
		return q, bindError(err)
	}
	return q, nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.UnixMilli(ms)
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Current handles GET /current. The ride is null when the rider is not riding.
func (h *RideHandler) Current(c *gin.Context) {
	respondOK(c, gin.H{"ride": middleware.RideFrom(c)})
}

// Start handles POST /current and POST /internal/rides?userId=.
func (h *RideHandler) Start(c *gin.Context) {
	var params StartRideParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, bindError(err))
		return
	}

	ride, err := h.rideService.Start(c.Request.Context(), middleware.RiderFrom(c), service.StartRideRequest{
		KickboardCode: params.KickboardCode,
		CouponID:      params.CouponID,
		Latitude:      *params.Latitude,
		Longitude:     *params.Longitude,
		Debug:         params.Debug,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{"ride": ride})
}

// Terminate handles DELETE on a ride. The position is optional.
func (h *RideHandler) Terminate(c *gin.Context) {
	var params PointParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, bindError(err))
		return
	}
	at, err := params.point()
	if err != nil {
		respondError(c, err)
		return
	}

	ride, err := h.rideService.Terminate(c.Request.Context(), middleware.RideFrom(c), at)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"ride": ride})
}

// Get returns the resolved ride.
func (h *RideHandler) Get(c *gin.Context) {
	respondOK(c, gin.H{"ride": middleware.RideFrom(c)})
}

// List handles ride listings. Riders only ever see their own rides.
func (h *RideHandler) List(c *gin.Context) {
	var params ListRidesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, bindError(err))
		return
	}
	query, err := params.query()
	if err != nil {
		respondError(c, err)
		return
	}

	list, err := h.rideService.GetRides(c.Request.Context(), query, middleware.RiderFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"rides": list.Rides, "total": list.Total})
}

// Status handles GET .../status.
func (h *RideHandler) Status(c *gin.Context) {
	status, err := h.rideService.GetStatus(c.Request.Context(), middleware.RideFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"status": status})
}

// ChangeCoupon handles POST .../coupon.
func (h *RideHandler) ChangeCoupon(c *gin.Context) {
	var req ChangeCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	couponID := ""
	if req.CouponID != nil {
		couponID = *req.CouponID
	}

	ride, err := h.rideService.ChangeCoupon(c.Request.Context(), middleware.RideFrom(c), couponID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"ride": ride})
}

// AddLocation handles GET /current/location?latitude&longitude.
func (h *RideHandler) AddLocation(c *gin.Context) {
	var params PointParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, bindError(err))
		return
	}
	at, err := params.point()
	if err != nil {
		respondError(c, err)
		return
	}
	if at == nil {
		respondError(c, bindError(errMissingCoordinate))
		return
	}

	loc, err := h.rideService.AddLocation(c.Request.Context(), middleware.RideFrom(c), *at)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"location": loc})
}

// Timeline handles GET .../timeline.
func (h *RideHandler) Timeline(c *gin.Context) {
	timeline, err := h.rideService.GetTimeline(c.Request.Context(), middleware.RideFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"timeline": timeline})
}

// Pricing handles GET /current/pricing?latitude&longitude.
func (h *RideHandler) Pricing(c *gin.Context) {
	var params PointParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, bindError(err))
		return
	}
	at, err := params.point()
	if err != nil {
		respondError(c, err)
		return
	}
	if at == nil {
		respondError(c, bindError(errMissingCoordinate))
		return
	}

	pricing, err := h.rideService.GetPricing(c.Request.Context(), middleware.RideFrom(c), *at)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"pricing": pricing})
}

// LightsOn handles .../lights/on.
func (h *RideHandler) LightsOn(c *gin.Context) {
	h.respondRide(c)(h.rideService.LightsOn(c.Request.Context(), middleware.RideFrom(c)))
}

// LightsOff handles .../lights/off.
func (h *RideHandler) LightsOff(c *gin.Context) {
	h.respondRide(c)(h.rideService.LightsOff(c.Request.Context(), middleware.RideFrom(c)))
}

// LockOn handles .../lock/on.
func (h *RideHandler) LockOn(c *gin.Context) {
	h.respondRide(c)(h.rideService.Lock(c.Request.Context(), middleware.RideFrom(c)))
}

// LockOff handles .../lock/off.
func (h *RideHandler) LockOff(c *gin.Context) {
	h.respondRide(c)(h.rideService.Unlock(c.Request.Context(), middleware.RideFrom(c)))
}

// MaxSpeed handles POST .../maxSpeed.
func (h *RideHandler) MaxSpeed(c *gin.Context) {
	var req MaxSpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	h.respondRide(c)(h.rideService.SetMaxSpeed(c.Request.Context(), middleware.RideFrom(c), req.MaxSpeed))
}

// Photo handles POST .../photo.
func (h *RideHandler) Photo(c *gin.Context) {
	var req PhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	h.respondRide(c)(h.rideService.SetReturnedPhoto(c.Request.Context(), middleware.RideFrom(c), req.Photo))
}

// Modify handles POST /internal/rides/:rideId.
func (h *RideHandler) Modify(c *gin.Context) {
	var req ModifyRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	h.respondRide(c)(h.rideService.Modify(c.Request.Context(), middleware.RideFrom(c), service.ModifyRideRequest{
		UserID:        req.UserID,
		KickboardCode: req.KickboardCode,
		Price:         req.Price,
	}))
}

func (h *RideHandler) respondRide(c *gin.Context) func(*domain.Ride, error) {
	return func(ride *domain.Ride, err error) {
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, gin.H{"ride": ride})
	}
}
