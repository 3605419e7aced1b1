package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parkshare/service-reservation/internal/application"
	"github.com/parkshare/service-reservation/internal/auth"
	"github.com/parkshare/service-reservation/internal/config"
	"github.com/parkshare/service-reservation/internal/database"
	"github.com/parkshare/service-reservation/internal/domain/reservation"
	reservationEvents "github.com/parkshare/service-reservation/internal/events"
	"github.com/parkshare/service-reservation/internal/handler"
	"github.com/parkshare/service-reservation/internal/health"
	"github.com/parkshare/service-reservation/internal/kafka"
	"github.com/parkshare/service-reservation/internal/logger"
	"github.com/parkshare/service-reservation/internal/middleware"
	"github.com/parkshare/service-reservation/internal/repository"
	"github.com/parkshare/service-reservation/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-reservation")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-reservation",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DB.DSN(), log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.SpaceModel{},
			&repository.ProductModel{},
			&repository.VehicleModel{},
			&repository.ReservationModel{},
		); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DB.URL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, 15*time.Minute)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repositories
	reservationRepo := repository.NewGormReservationRepository(db)
	spaceRepo := repository.NewGormSpaceRepository(db)
	vehicleRepo := repository.NewGormVehicleRepository(db)

	// Initialize pricing policy
	rounding, err := reservation.ParseRoundingMode(cfg.PricingRounding)
	if err != nil {
		log.Fatal("invalid pricing rounding mode", zap.Error(err))
	}
	pricingPolicy := reservation.NewStandardPricingPolicy(rounding)

	// Initialize application services
	reservationService := application.NewReservationService(
		reservationRepo,
		spaceRepo,
		vehicleRepo,
		pricingPolicy,
		kafkaProducer,
		cfg.CancellationLeadTime,
		log,
	)
	spaceService := application.NewSpaceService(spaceRepo, kafkaProducer, log)
	vehicleService := application.NewVehicleService(vehicleRepo, log)

	// Initialize and start the space event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.Kafka.GroupPrefix + "reservation-service"
	spaceConsumer := reservationEvents.NewSpaceEventConsumer(
		cfg.Kafka.Brokers,
		groupID,
		reservationService,
		log,
	)
	defer func() { _ = spaceConsumer.Close() }()

	go func() {
		log.Info("starting space event consumer")
		if err := spaceConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("space event consumer error", zap.Error(err))
		}
	}()

	// Start the completion sweeper
	sweeper := scheduler.NewCompletionSweeper(reservationService, cfg.CompletionSweepSpec, log)
	if err := sweeper.Start(); err != nil {
		log.Fatal("failed to start completion sweeper", zap.Error(err))
	}

	// Initialize HTTP handlers
	reservationHandler := handler.NewReservationHandler(reservationService)
	spaceHandler := handler.NewSpaceHandler(spaceService)
	vehicleHandler := handler.NewVehicleHandler(vehicleService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.RateLimitMiddleware(20, 40))

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-reservation")
	healthHandler.RegisterRoutes(router)

	// Register routes
	reservationHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	spaceHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	vehicleHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-reservation...")

	// Stop the sweeper and the consumer
	sweeper.Stop()
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-reservation stopped")
}
