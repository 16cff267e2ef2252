package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"kickride/internal/handler"
	"kickride/internal/metrics"
	"kickride/internal/middleware"
	"kickride/internal/redis"
)

// Accounts is what the router needs from the accounts service.
type Accounts interface {
	middleware.Authorizer
	middleware.UserLookup
}

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler      *handler.RideHandler
	KickboardHandler *handler.KickboardHandler
	WebhookHandler   *handler.WebhookHandler
	RootHandler      *handler.RootHandler
	Rides            middleware.RideLookup
	Accounts         Accounts
	Sessions         redis.SessionCache
	SessionTTL       time.Duration
	Responses        middleware.ResponseStore
	InternalKey      string
	WebhookToken     string
	NewRelicApp      *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware. The error renderer runs innermost so the
	// New Relic and metrics middleware see the final status.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicContext())
	}
	router.Use(metrics.Middleware())
	router.Use(handler.ErrorRenderer())

	rides := deps.RideHandler
	kickboards := deps.KickboardHandler

	router.GET("/", deps.RootHandler.Index)
	router.GET("/health", deps.RootHandler.Health)
	router.GET("/metrics", metrics.Handler())

	// Platform webhooks.
	webhook := router.Group("/webhook", middleware.WebhookAuth(deps.WebhookToken))
	{
		webhook.POST("/terminate", deps.WebhookHandler.Terminate)
		webhook.POST("/speed", deps.WebhookHandler.Speed)
	}

	// Internal API for other core services.
	internal := router.Group("/internal/rides",
		middleware.InternalAuth(deps.InternalKey),
		middleware.Idempotency(deps.Responses),
	)
	{
		byID := middleware.RideByParam(deps.Rides, false)
		activeByID := middleware.RideByParam(deps.Rides, true)

		internal.GET("", rides.List)
		internal.POST("",
			middleware.RiderByQuery(deps.Accounts),
			middleware.CurrentRide(deps.Rides, middleware.CurrentRideOptions{ThrowIfRiding: true}),
			middleware.RequireReady(deps.Rides),
			rides.Start,
		)
		internal.GET("/byOpenAPI/:rideId", middleware.RideByRemoteID(deps.Rides), rides.Get)
		internal.GET("/:rideId", byID, rides.Get)
		internal.POST("/:rideId", byID, rides.Modify)
		internal.DELETE("/:rideId", activeByID, rides.Terminate)
		internal.POST("/:rideId/photo", byID, rides.Photo)
		internal.GET("/:rideId/status", byID, rides.Status)
		internal.POST("/:rideId/coupon", activeByID, rides.ChangeCoupon)
		internal.GET("/:rideId/timeline", byID, rides.Timeline)
		internal.GET("/:rideId/lights/on", activeByID, rides.LightsOn)
		internal.GET("/:rideId/lights/off", activeByID, rides.LightsOff)
		internal.GET("/:rideId/lock/on", activeByID, rides.LockOn)
		internal.GET("/:rideId/lock/off", activeByID, rides.LockOff)
		internal.POST("/:rideId/maxSpeed", activeByID, rides.MaxSpeed)
	}

	// Rider API.
	rider := router.Group("",
		middleware.RiderAuth(deps.Accounts, deps.Sessions, deps.SessionTTL),
		middleware.Idempotency(deps.Responses),
	)
	{
		rider.GET("/current",
			middleware.CurrentRide(deps.Rides, middleware.CurrentRideOptions{AllowNull: true}),
			rides.Current,
		)
		rider.POST("/current",
			middleware.CurrentRide(deps.Rides, middleware.CurrentRideOptions{ThrowIfRiding: true}),
			middleware.RequireReady(deps.Rides),
			rides.Start,
		)
		rider.DELETE("/current",
			middleware.CurrentRide(deps.Rides, middleware.CurrentRideOptions{}),
			rides.Terminate,
		)

		current := rider.Group("/current", middleware.CurrentRide(deps.Rides, middleware.CurrentRideOptions{}))
		{
			current.GET("/status", rides.Status)
			current.POST("/coupon", rides.ChangeCoupon)
			current.GET("/location", rides.AddLocation)
			current.GET("/timeline", rides.Timeline)
			current.GET("/pricing", rides.Pricing)
			current.GET("/lights/on", rides.LightsOn)
			current.GET("/lights/off", rides.LightsOff)
			current.GET("/lock/on", rides.LockOn)
			current.GET("/lock/off", rides.LockOff)

			current.GET("/helmet", rides.GetHelmet)
			current.GET("/helmet/credentials", rides.HelmetCredentials)
			current.GET("/helmet/borrow", rides.BorrowHelmet)
			current.PATCH("/helmet/borrow", rides.BorrowHelmet)
			current.GET("/helmet/return", rides.ReturnHelmet)
			current.PATCH("/helmet/return", rides.ReturnHelmet)
		}

		histories := rider.Group("/histories")
		{
			histories.GET("", rides.List)
			histories.GET("/:rideId", middleware.RideByParam(deps.Rides, false), rides.Get)
			histories.POST("/:rideId/photo", middleware.RideByParam(deps.Rides, false), rides.Photo)
		}

		rider.GET("/kickboards", kickboards.Near)
		rider.POST("/kickboards/qrcode", kickboards.QRCode)
		rider.GET("/kickboards/:kickboardCode", kickboards.Get)
		rider.GET("/regions", kickboards.Regions)

		rider.GET("/ready", middleware.RequireReady(deps.Rides), deps.RootHandler.Ready)
	}

	router.NoRoute(handler.NotFound)

	return router
}
