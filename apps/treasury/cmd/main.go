package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"treasury/apps/treasury/internal/api"
	"treasury/apps/treasury/internal/bus"
	"treasury/apps/treasury/internal/clock"
	"treasury/apps/treasury/internal/config"
	"treasury/apps/treasury/internal/payout"
	"treasury/apps/treasury/internal/pipeline"
	"treasury/apps/treasury/internal/repository"
	"treasury/apps/treasury/internal/scheduler"
	"treasury/apps/treasury/internal/venue"
)

func main() {
	// Initialize zap logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Load configuration from environment variables
	cfg := config.NewConfig()

	logger.Info("Starting application with configuration",
		zap.String("db_url", cfg.DbURL),
		zap.String("kafka_broker", cfg.KafkaBroker),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.String("payout_api_url", cfg.PayoutAPIURL),
		zap.String("venue_api_url", cfg.VenueAPIURL),
		zap.Duration("heartbeat_tick", cfg.HeartbeatTick),
		zap.Duration("settlement_delay", cfg.SettlementDelay),
		zap.Int("api_port", cfg.APIPort),
	)

	// Connect to database
	db, err := sql.Open("postgres", cfg.DbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Initialize database tables
	if err := repository.InitMigration(db); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	orderRepository := repository.NewOrderRepository(db, logger)
	settingsRepository := repository.NewSettingsRepository(db, logger)
	snapshotRepository := repository.NewSnapshotRepository(db, logger)

	systemClock := clock.System()
	payoutClient := payout.NewHTTPClient(cfg.PayoutAPIURL, logger)
	venueClient := venue.NewHTTPClient(cfg.VenueAPIURL, logger)

	// Assemble the processing pipeline
	ingestion := pipeline.NewIngestion(orderRepository, payoutClient, systemClock, logger)
	deposit := pipeline.NewDeposit(orderRepository, venueClient, systemClock, logger)
	settlement := pipeline.NewSettlement(orderRepository, snapshotRepository, venueClient, systemClock, cfg.SettlementDelay, logger)
	processor := pipeline.NewProcessor(settingsRepository, ingestion, deposit, settlement, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create event dispatcher and consumer
	dispatcher, err := bus.NewKafkaDispatcher(cfg.KafkaBroker, cfg.KafkaTopic, logger)
	if err != nil {
		logger.Fatal("Failed to create event dispatcher", zap.Error(err))
	}
	defer dispatcher.Close()

	consumer, err := bus.NewKafkaConsumer(cfg.KafkaBroker, cfg.KafkaTopic, logger, processor.HandleStoreDue)
	if err != nil {
		logger.Fatal("Failed to create event consumer", zap.Error(err))
	}
	defer consumer.Close()

	// Start consumer in background
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Fatal("Event consumer failed", zap.Error(err))
		}
	}()

	// Start heartbeat in background
	heartbeat := scheduler.NewHeartbeat(settingsRepository, dispatcher, systemClock, cfg.HeartbeatTick, logger)
	go func() {
		if err := heartbeat.Start(ctx); err != nil {
			logger.Fatal("Heartbeat failed", zap.Error(err))
		}
	}()

	// Create and start API server
	apiServer := api.NewServer(cfg.APIPort, orderRepository, settingsRepository, snapshotRepository, systemClock, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Received shutdown signal, starting graceful shutdown...")
	cancel()

	// Create a context with timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown API server gracefully
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error shutting down API server", zap.Error(err))
	}

	logger.Info("Application shutdown complete")
}
