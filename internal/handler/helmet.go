package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kickride/internal/domain"
	"kickride/internal/middleware"
)

// GetHelmet handles GET /current/helmet?deviceInfo=.
func (h *RideHandler) GetHelmet(c *gin.Context) {
	helmet, err := h.rideService.GetHelmet(c.Request.Context(), middleware.RideFrom(c), c.Query("deviceInfo"))
	h.respondHelmet(c, helmet, err)
}

// HelmetCredentials handles GET /current/helmet/credentials.
func (h *RideHandler) HelmetCredentials(c *gin.Context) {
	helmet, err := h.rideService.GetHelmetCredentials(c.Request.Context(), middleware.RideFrom(c))
	h.respondHelmet(c, helmet, err)
}

// BorrowHelmet prepares a borrow on GET and completes it on PATCH.
func (h *RideHandler) BorrowHelmet(c *gin.Context) {
	complete := c.Request.Method == http.MethodPatch
	helmet, err := h.rideService.BorrowHelmet(c.Request.Context(), middleware.RideFrom(c), complete)
	h.respondHelmet(c, helmet, err)
}

// ReturnHelmet prepares a return on GET and completes it on PATCH.
func (h *RideHandler) ReturnHelmet(c *gin.Context) {
	complete := c.Request.Method == http.MethodPatch
	helmet, err := h.rideService.ReturnHelmet(c.Request.Context(), middleware.RideFrom(c), complete)
	h.respondHelmet(c, helmet, err)
}

func (h *RideHandler) respondHelmet(c *gin.Context, helmet domain.Helmet, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"helmet": helmet})
}
