package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// RootHandler serves the service banner, readiness and health endpoints.
type RootHandler struct {
	mode     string
	hostname string
	checks   map[string]Pinger
}

// NewRootHandler creates a new RootHandler. checks are probed by Health.
func NewRootHandler(mode string, checks map[string]Pinger) *RootHandler {
	hostname, _ := os.Hostname()
	return &RootHandler{mode: mode, hostname: hostname, checks: checks}
}

// Index handles GET /.
func (h *RootHandler) Index(c *gin.Context) {
	respondOK(c, gin.H{"mode": h.mode, "cluster": h.hostname})
}

// Ready handles GET /ready. The readiness middleware has already run.
func (h *RootHandler) Ready(c *gin.Context) {
	respondOK(c, nil)
}

// Health handles GET /health.
func (h *RootHandler) Health(c *gin.Context) {
	status := http.StatusOK
	results := make(gin.H, len(h.checks))
	for name, check := range h.checks {
		if err := check.Ping(c.Request.Context()); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
}
