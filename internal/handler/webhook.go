package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"kickride/internal/domain"
	"kickride/internal/service"
)

// WebhookApplier applies platform events to local rides.
type WebhookApplier interface {
	OnTerminate(ctx context.Context, event service.TerminateEvent) (*domain.Ride, error)
	OnSpeedChange(ctx context.Context, event service.SpeedEvent) (*domain.Ride, error)
}

var _ WebhookApplier = (*service.WebhookService)(nil)

// WebhookHandler receives platform webhooks.
type WebhookHandler struct {
	webhooks WebhookApplier
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhooks WebhookApplier) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// TerminateWebhook is the platform's ride termination payload.
type TerminateWebhook struct {
	Data struct {
		RideID       string     `json:"rideId" binding:"required"`
		TerminatedAt *time.Time `json:"terminatedAt"`
	} `json:"data"`
}

// SpeedWebhook is the platform's speed cap payload.
type SpeedWebhook struct {
	Data struct {
		RideID   string `json:"rideId" binding:"required"`
		MaxSpeed int    `json:"maxSpeed" binding:"required"`
	} `json:"data"`
}

// Terminate handles POST /webhook/terminate.
func (h *WebhookHandler) Terminate(c *gin.Context) {
	var req TerminateWebhook
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	event := service.TerminateEvent{RemoteRideID: req.Data.RideID}
	if req.Data.TerminatedAt != nil {
		event.TerminatedAt = *req.Data.TerminatedAt
	}

	ride, err := h.webhooks.OnTerminate(c.Request.Context(), event)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"ride": ride})
}

// Speed handles POST /webhook/speed.
func (h *WebhookHandler) Speed(c *gin.Context) {
	var req SpeedWebhook
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	ride, err := h.webhooks.OnSpeedChange(c.Request.Context(), service.SpeedEvent{
		RemoteRideID: req.Data.RideID,
		MaxSpeed:     req.Data.MaxSpeed,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"ride": ride})
}
