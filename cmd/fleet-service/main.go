package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adminapi "taxi-fleet/internal/admin/api"
	adminapp "taxi-fleet/internal/admin/app"
	adminrepo "taxi-fleet/internal/admin/repo"
	authapi "taxi-fleet/internal/auth/api"
	authapp "taxi-fleet/internal/auth/app"
	authrepo "taxi-fleet/internal/auth/repo"
	"taxi-fleet/internal/board"
	fleetapi "taxi-fleet/internal/fleet/api"
	fleetapp "taxi-fleet/internal/fleet/app"
	fleetrepo "taxi-fleet/internal/fleet/repo"
	orderapi "taxi-fleet/internal/order/api"
	orderapp "taxi-fleet/internal/order/app"
	orderrepo "taxi-fleet/internal/order/repo"
	"taxi-fleet/internal/shared/config"
	"taxi-fleet/internal/shared/db"
	"taxi-fleet/internal/shared/health"
	"taxi-fleet/internal/shared/middleware"
	"taxi-fleet/internal/shared/mq"
	"taxi-fleet/internal/shared/util"
	shiftapi "taxi-fleet/internal/shift/api"
	shiftapp "taxi-fleet/internal/shift/app"
	shiftrepo "taxi-fleet/internal/shift/repo"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("main", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, "migrations"); err != nil {
		logger.Fatal("main", err)
	}

	rmqConn, rmqCh, err := mq.Connect(cfg.RabbitMQ)
	if err != nil {
		logger.Fatal("main", err)
	}
	defer rmqConn.Close()
	defer rmqCh.Close()

	publisher := mq.NewPublisher(rmqCh, cfg.RabbitMQ.Exchange)
	secret := []byte(cfg.Auth.JWTSecret)

	// repositories
	users := authrepo.NewUserRepo(pool)
	fleet := fleetrepo.NewFleetRepo(pool)
	orders := orderrepo.NewOrderRepo(pool)
	shifts := shiftrepo.NewShiftRepo(pool)
	overview := adminrepo.NewOverviewRepo(pool)

	// services
	authService := authapp.NewAuthService(users, secret,
		time.Duration(cfg.Auth.TokenTTLHours)*time.Hour, logger)
	fleetService := fleetapp.NewFleetService(fleet, logger)
	orderService := orderapp.NewOrderService(orders, fleetService, shifts,
		publisher, logger, cfg.Dispatch.RequireActiveShift)
	shiftService := shiftapp.NewShiftService(shifts, fleetService, publisher, logger)
	adminService := adminapp.NewAdminService(overview)

	bootstrapEmail := os.Getenv("ADMIN_EMAIL")
	bootstrapPassword := os.Getenv("ADMIN_PASSWORD")
	if bootstrapEmail != "" && bootstrapPassword != "" {
		if err := authService.EnsureAdmin(ctx, bootstrapEmail, bootstrapPassword); err != nil {
			logger.Fatal("main", err)
		}
	}

	// live board
	hub := board.NewHub(logger)
	go hub.Run(ctx)
	if err := board.Consume(rmqCh, cfg.RabbitMQ.Exchange, hub, logger); err != nil {
		logger.Fatal("main", err)
	}

	authMW := middleware.Auth(secret)

	protected := http.NewServeMux()
	fleetapi.NewHandler(fleetService, logger).RegisterRoutes(protected)
	orderapi.NewHandler(orderService, logger).RegisterRoutes(protected)
	shiftapi.NewHandler(shiftService, logger).RegisterRoutes(protected)
	adminapi.NewHandler(adminService, logger).RegisterRoutes(protected)
	protected.HandleFunc("GET /ws/board", board.NewHandler(hub, logger).WatchHandler)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Handler("fleet-service", pool, rmqConn))
	authapi.NewHandler(authService, logger).RegisterRoutes(mux, authMW)
	mux.Handle("/", authMW(protected))

	server := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: middleware.RequestID(mux),
	}

	go func() {
		logger.Info("main", "fleet-service listening on :"+cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("main", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("main", "shutting down fleet-service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}
	logger.Info("main", "fleet-service stopped gracefully")
}
