package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/spacepoints-ledger/internal/config"
	"github.com/spacepoints-ledger/internal/data/mongo"
	"github.com/spacepoints-ledger/internal/data/postgres"
	"github.com/spacepoints-ledger/internal/logger"
	"github.com/spacepoints-ledger/internal/platform/messaging/consumers"
	"github.com/spacepoints-ledger/internal/platform/messaging/producers"
	"github.com/spacepoints-ledger/internal/platform/persistence"
	"github.com/spacepoints-ledger/internal/reward_processor/consumer"
	"github.com/spacepoints-ledger/internal/reward_processor/outbox_poller"
	processor "github.com/spacepoints-ledger/internal/reward_processor/service"
	"github.com/spacepoints-ledger/internal/service"
)

// expireSweepLimit bounds how many overdue distributions one sweep marks
const expireSweepLimit = 500

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("reward_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Reward Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	balanceRepo := postgres.NewBalanceRepository(log, postgresDB)
	legacyRepo := postgres.NewLegacyBalanceRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	rewardRepo := postgres.NewRewardRepository(log, postgresDB)
	historyRepo, err := mongo.NewHistoryRepository(appCtx, log, mongoDB.Database())
	if err != nil {
		log.Error("Failed to initialize history repository", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Initialize services. The processor settles inline, so no producer
	// is wired into the reward service.
	ledgerService := service.NewLedgerService(log, postgresDB, balanceRepo, legacyRepo, outboxRepo, historyRepo)
	rewardService := service.NewRewardService(log, rewardRepo, ledgerService, nil)
	reconciliationService := service.NewReconciliationService(log, balanceRepo, legacyRepo, cfg.Reconciliation.ScanPageSize)

	baseProcessing := processor.NewRewardProcessingService(log, rewardService)
	processingService, err := processor.NewWorkerPoolProcessingService(
		baseProcessing,
		processor.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize reward event handler
	rewardEventHandler := consumer.NewRewardEventHandler(
		log,
		processingService,
		dlqProducer,
	)

	// Initialize outbox poller
	historyPublisher := outbox_poller.NewHistoryPublisher(
		outboxRepo,
		historyRepo,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		historyPublisher,
		log,
	)

	// Initialize the nightly sweep: expire overdue distributions and
	// report dual-ledger drift
	sweeper := cron.New()
	_, err = sweeper.AddFunc(cfg.Reconciliation.SweepSchedule, func() {
		sweepCtx, cancelSweep := context.WithTimeout(appCtx, 30*time.Minute)
		defer cancelSweep()

		expired, err := rewardService.ExpireOverdue(sweepCtx, expireSweepLimit)
		if err != nil {
			log.Error("Expiry sweep failed", "error", err)
		} else {
			log.Info("Expiry sweep finished", "expired", expired)
		}

		summary, err := reconciliationService.SystemSyncSummary(sweepCtx)
		if err != nil {
			log.Error("Reconciliation sweep failed", "error", err)
			return
		}
		log.Info("Reconciliation sweep finished",
			"primary_users", summary.PrimaryUserCount,
			"secondary_users", summary.SecondaryUserCount,
			"scanned_users", summary.ScannedUserCount,
			"inconsistent_users", summary.InconsistentUserCount,
		)
	})
	if err != nil {
		log.Error("Failed to schedule reconciliation sweep", "schedule", cfg.Reconciliation.SweepSchedule, "error", err)
		os.Exit(1)
	}
	sweeper.Start()

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.RewardTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.RewardTopic, cfg.Kafka.ConsumerGroup, rewardEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Stop the sweep scheduler and wait for an in-flight run
	<-sweeper.Stop().Done()

	// Shutdown the worker pool
	log.Info("Shutting down worker pool", "running_workers", processingService.Running())
	processingService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Reward Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Reward Processor shutdown completed with errors")
	} else {
		log.Info("Reward Processor shutdown completed successfully")
	}
}
