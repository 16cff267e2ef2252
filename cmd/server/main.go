package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"kickride/internal/app"
	"kickride/internal/config"
	"kickride/internal/coreservice"
	"kickride/internal/handler"
	"kickride/internal/logging"
	"kickride/internal/middleware"
	"kickride/internal/platform"
	internalRedis "kickride/internal/redis"
	"kickride/internal/repository/postgres"
	"kickride/internal/service"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			slog.Warn("failed to initialize New Relic", "error", err)
		} else {
			slog.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL")

	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.Info("connected to Redis")

	server := wireServer(db, redisClient, nrApp, cfg)

	go func() {
		slog.Info("starting server", "port", cfg.Server.Port, "mode", cfg.Server.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	slog.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	// Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Repositories.
	rideRepo := postgres.NewRideRepository(db)

	// Collaborators. Each core service gets its own token source because the
	// tokens are signed with that service's key.
	ridePlatform := platform.NewClient(cfg.Platform)
	accounts := coreservice.NewAccounts(
		cfg.CoreService.AccountsURL,
		coreservice.NewTokenSource("coreservice-accounts", cfg.CoreService.RideURL, cfg.CoreService.AccountsKey),
		cfg.CoreService.Timeout,
	)
	payments := coreservice.NewPayments(
		cfg.CoreService.PaymentsURL,
		coreservice.NewTokenSource("coreservice-payments", cfg.CoreService.RideURL, cfg.CoreService.PaymentsKey),
		cfg.CoreService.Timeout,
	)

	// Services.
	notificationService := service.NewNotificationService(accounts)
	couponService := service.NewCouponService(payments, rideRepo, cfg.Ride.Location)
	rideService := service.NewRideService(
		rideRepo,
		ridePlatform,
		couponService,
		accounts,
		payments,
		lockStore,
		notificationService,
		app.NewRelicReporter{},
		cfg.Ride,
	)
	webhookService := service.NewWebhookService(rideService, rideRepo)
	kickboardService := service.NewKickboardService(ridePlatform)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:      handler.NewRideHandler(rideService),
		KickboardHandler: handler.NewKickboardHandler(kickboardService),
		WebhookHandler:   handler.NewWebhookHandler(webhookService),
		RootHandler: handler.NewRootHandler(cfg.Server.Mode, map[string]handler.Pinger{
			"postgres": handler.PingFunc(db.PingContext),
			"redis": handler.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		}),
		Rides:        rideService,
		Accounts:     accounts,
		Sessions:     cacheStore,
		SessionTTL:   cfg.Ride.SessionTTL,
		Responses:    middleware.RedisResponseStore{Client: redisClient},
		InternalKey:  cfg.CoreService.RideKey,
		WebhookToken: cfg.Platform.WebhookToken,
		NewRelicApp:  nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
