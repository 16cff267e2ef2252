package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"kickride/internal/domain"
	"kickride/internal/service"
)

// KickboardFinder looks up kickboards and service regions.
type KickboardFinder interface {
	Near(ctx context.Context, at domain.GeoPoint, radius int) ([]domain.Kickboard, error)
	Get(ctx context.Context, kickboardCode string) (*domain.Kickboard, error)
	CodeByQRCode(ctx context.Context, qrURL string) (string, error)
	Regions(ctx context.Context) ([]domain.Region, error)
}

var _ KickboardFinder = (*service.KickboardService)(nil)

// KickboardHandler handles HTTP requests for kickboards and regions.
type KickboardHandler struct {
	kickboards KickboardFinder
}

// NewKickboardHandler creates a new KickboardHandler.
func NewKickboardHandler(kickboards KickboardFinder) *KickboardHandler {
	return &KickboardHandler{kickboards: kickboards}
}

// NearParams are the query parameters of a nearby search.
type NearParams struct {
	Latitude  *float64 `form:"lat" binding:"required"`
	Longitude *float64 `form:"lng" binding:"required"`
	Radius    int      `form:"radius"`
}

// QRCodeRequest is the body of a QR code resolution.
type QRCodeRequest struct {
	URL string `json:"url" binding:"required"`
}

// Near handles GET /kickboards?lat&lng&radius.
func (h *KickboardHandler) Near(c *gin.Context) {
	var params NearParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, bindError(err))
		return
	}

	kickboards, err := h.kickboards.Near(c.Request.Context(), domain.GeoPoint{
		Latitude:  *params.Latitude,
		Longitude: *params.Longitude,
	}, params.Radius)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"kickboards": kickboards})
}

// Get handles GET /kickboards/:kickboardCode.
func (h *KickboardHandler) Get(c *gin.Context) {
	kickboard, err := h.kickboards.Get(c.Request.Context(), c.Param("kickboardCode"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"kickboard": kickboard})
}

// QRCode handles POST /kickboards/qrcode.
func (h *KickboardHandler) QRCode(c *gin.Context) {
	var req QRCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	code, err := h.kickboards.CodeByQRCode(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"kickboardCode": code})
}

// Regions handles GET /regions.
func (h *KickboardHandler) Regions(c *gin.Context) {
	regions, err := h.kickboards.Regions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"regions": regions})
}
