package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"kickride/internal/coreservice"
	"kickride/internal/platform"
	"kickride/internal/repository"
	"kickride/internal/service"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Opcode  int    `json:"opcode"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// respondJSON sends a successful envelope: opcode 0 merged with payload.
func respondJSON(c *gin.Context, code int, payload gin.H) {
	body := gin.H{"opcode": service.OpcodeSuccess}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(code, body)
}

// respondOK sends a successful envelope with status 200.
func respondOK(c *gin.Context, payload gin.H) {
	respondJSON(c, http.StatusOK, payload)
}

// respondError sends an error envelope with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	status, body := mapError(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, body)
}

// mapError maps service, upstream and repository errors to a status and body.
func mapError(err error) (int, ErrorResponse) {
	if e, ok := service.AsError(err); ok {
		resp := ErrorResponse{Opcode: e.Opcode, Code: e.Code}
		if msg := err.Error(); msg != e.Code {
			resp.Message = msg
		}
		return e.Status, resp
	}

	var platformErr *platform.APIError
	if errors.As(err, &platformErr) {
		return upstreamStatus(platformErr.Status), ErrorResponse{
			Opcode:  platformErr.Opcode,
			Message: platformErr.Message,
		}
	}

	var coreErr *coreservice.APIError
	if errors.As(err, &coreErr) {
		return upstreamStatus(coreErr.Status), ErrorResponse{
			Opcode:  coreErr.Opcode,
			Message: coreErr.Message,
		}
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return mapError(service.ErrCannotFindRide)
	case errors.Is(err, repository.ErrActiveRideExists):
		return mapError(service.ErrAlreadyRiding)
	}

	return http.StatusInternalServerError, ErrorResponse{
		Opcode: service.ErrInvalidError.Opcode,
		Code:   service.ErrInvalidError.Code,
	}
}

// upstreamStatus passes client errors of a collaborator through and turns
// everything else into a bad gateway.
func upstreamStatus(status int) int {
	if status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}

// bindError wraps a gin binding failure as a validation error.
func bindError(err error) error {
	return fmt.Errorf("%w: %v", service.ErrFailedValidate, err)
}

// ErrorRenderer writes the last error recorded on the context when nothing
// else has answered the request. Middleware reports failures through
// c.Error and relies on it.
func ErrorRenderer() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		respondError(c, c.Errors.Last().Err)
	}
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	respondError(c, service.ErrInvalidAPI)
}
