package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a user-facing domain failure with a stable opcode.
type Error struct {
	Opcode int
	Status int
	Code   string
}

func (e *Error) Error() string {
	return e.Code
}

// Is matches any *Error with the same opcode.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Opcode == e.Opcode
}

// OpcodeSuccess is reported by every successful response.
const OpcodeSuccess = 0

var (
	// ErrRequiredAccessKey is returned when no credential was presented.
	ErrRequiredAccessKey = &Error{Opcode: 301, Status: http.StatusUnauthorized, Code: "REQUIRED_ACCESS_KEY"}

	// ErrExpiredAccessKey is returned for an expired or malformed credential.
	ErrExpiredAccessKey = &Error{Opcode: 302, Status: http.StatusUnauthorized, Code: "EXPIRED_ACCESS_KEY"}

	// ErrPermissionDenied is returned when the caller may not touch the resource.
	ErrPermissionDenied = &Error{Opcode: 303, Status: http.StatusForbidden, Code: "PERMISSION_DENIED"}

	// ErrRequiredLogin is returned when the rider session is not valid.
	ErrRequiredLogin = &Error{Opcode: 304, Status: http.StatusUnauthorized, Code: "REQUIRED_LOGIN"}

	// ErrInvalidError is the catch-all for unexpected failures.
	ErrInvalidError = &Error{Opcode: 305, Status: http.StatusInternalServerError, Code: "INVALID_ERROR"}

	// ErrFailedValidate is returned for malformed input.
	ErrFailedValidate = &Error{Opcode: 306, Status: http.StatusBadRequest, Code: "FAILED_VALIDATE"}

	// ErrInvalidAPI is returned for unknown routes.
	ErrInvalidAPI = &Error{Opcode: 307, Status: http.StatusNotFound, Code: "INVALID_API"}

	// ErrCurrentNotRiding is returned when the rider has no active ride.
	ErrCurrentNotRiding = &Error{Opcode: 308, Status: http.StatusNotFound, Code: "CURRENT_NOT_RIDING"}

	// ErrAlreadyRiding is returned when the rider already has an active ride.
	ErrAlreadyRiding = &Error{Opcode: 309, Status: http.StatusConflict, Code: "ALREADY_RIDING"}

	// ErrCannotFindRide is returned when a ride does not exist.
	ErrCannotFindRide = &Error{Opcode: 310, Status: http.StatusNotFound, Code: "CANNOT_FIND_RIDE"}

	// ErrCouponInvalidDayOfWeek is returned when the coupon is not valid today.
	ErrCouponInvalidDayOfWeek = &Error{Opcode: 311, Status: http.StatusBadRequest, Code: "COUPON_INVALID_DAY_OF_WEEK"}

	// ErrCouponLimitCount is returned when the coupon's lifetime use count is reached.
	ErrCouponLimitCount = &Error{Opcode: 312, Status: http.StatusBadRequest, Code: "COUPON_LIMIT_COUNT"}

	// ErrCouponLimitCountOfPeriod is returned when the coupon's use count within its period is reached.
	ErrCouponLimitCountOfPeriod = &Error{Opcode: 313, Status: http.StatusBadRequest, Code: "COUPON_LIMIT_COUNT_OF_PERIOD"}

	// ErrCouponNoAvailableTime is returned outside every allowed time window.
	ErrCouponNoAvailableTime = &Error{Opcode: 314, Status: http.StatusBadRequest, Code: "COUPON_NO_AVAILABLE_TIME"}

	// ErrCouponNotFound is returned when the coupon does not exist or belongs to someone else.
	ErrCouponNotFound = &Error{Opcode: 315, Status: http.StatusNotFound, Code: "COUPON_NOT_FOUND"}

	// ErrLicenseRequired is returned when the rider has no registered license.
	ErrLicenseRequired = &Error{Opcode: 316, Status: http.StatusForbidden, Code: "LICENSE_REQUIRED"}

	// ErrPaymentsNotReady is returned when the rider cannot be charged.
	ErrPaymentsNotReady = &Error{Opcode: 317, Status: http.StatusPaymentRequired, Code: "PAYMENTS_NOT_READY"}
)

// invalid wraps ErrFailedValidate with a field message.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFailedValidate, fmt.Sprintf(format, args...))
}

// AsError extracts the domain error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
