package middleware

import (
	"github.com/gin-gonic/gin"

	"kickride/internal/coreservice"
	"kickride/internal/domain"
)

const (
	riderKey  = "kickride.rider"
	rideKey   = "kickride.ride"
	callerKey = "kickride.caller"
)

// RiderFrom returns the rider authenticated for this request, if any.
func RiderFrom(c *gin.Context) *domain.Rider {
	if v, ok := c.Get(riderKey); ok {
		return v.(*domain.Rider)
	}
	return nil
}

// RideFrom returns the ride resolved by a ride middleware. It is nil when the
// middleware allowed a missing ride.
func RideFrom(c *gin.Context) *domain.Ride {
	if v, ok := c.Get(rideKey); ok {
		ride, _ := v.(*domain.Ride)
		return ride
	}
	return nil
}

// CallerFrom returns the service behind a verified internal token.
func CallerFrom(c *gin.Context) *coreservice.Caller {
	if v, ok := c.Get(callerKey); ok {
		return v.(*coreservice.Caller)
	}
	return nil
}

// SetRide replaces the ride stored on the request.
func SetRide(c *gin.Context, ride *domain.Ride) {
	c.Set(rideKey, ride)
}

// abort stops the chain and leaves err for the error renderer.
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
