package platform

import (
	"errors"
	"fmt"
)

const (
	// OpcodeRideAlreadyEnded is returned by the platform when terminating a
	// ride that is unknown or already closed on its side.
	OpcodeRideAlreadyEnded = -513

	// OpcodeUnknown marks failures without a platform response (network
	// errors, undecodable bodies).
	OpcodeUnknown = -1
)

// APIError is a normalized platform failure.
type APIError struct {
	Status  int
	Opcode  int
	Message string
	cause   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform: opcode %d: %s", e.Opcode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// IsRideAlreadyEnded reports whether err is the platform's "already ended" answer.
func IsRideAlreadyEnded(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Opcode == OpcodeRideAlreadyEnded
}
