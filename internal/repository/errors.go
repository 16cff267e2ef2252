package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrActiveRideExists is returned when a user already has an unterminated ride.
	ErrActiveRideExists = errors.New("user already has an active ride")
)
