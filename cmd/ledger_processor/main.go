package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/petropulse-loyalty-ledger/internal/config"
	"github.com/petropulse-loyalty-ledger/internal/data/mongo"
	"github.com/petropulse-loyalty-ledger/internal/data/postgres"
	"github.com/petropulse-loyalty-ledger/internal/ledger_processor/components"
	"github.com/petropulse-loyalty-ledger/internal/ledger_processor/consumer"
	"github.com/petropulse-loyalty-ledger/internal/ledger_processor/reconcile_sweeper"
	"github.com/petropulse-loyalty-ledger/internal/ledger_processor/service"
	"github.com/petropulse-loyalty-ledger/internal/logger"
	"github.com/petropulse-loyalty-ledger/internal/platform/messaging/consumers"
	"github.com/petropulse-loyalty-ledger/internal/platform/messaging/producers"
	"github.com/petropulse-loyalty-ledger/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ledger_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, cfg.Application.Name, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	customerRepo := postgres.NewCustomerRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())
	if cfg.MongoDB.Transactions {
		ledgerRepo.UseTransactions(mongoDB)
	}
	if err := ledgerRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure ledger indexes", "error", err)
		os.Exit(1)
	}

	ledgerService, err := components.CreateLedgerService(customerRepo, ledgerRepo, log, cfg)
	if err != nil {
		log.Error("Failed to create ledger service", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	requestHandler := consumer.NewLedgerRequestHandler(log, ledgerService, deadLetters)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.RequestTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, requestHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	if cfg.Reconcile.Enabled {
		runner := service.NewBatchRunner(customerRepo, ledgerService, log)
		sweeper := reconcile_sweeper.NewSweeper(&cfg.Reconcile, runner, log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Start(appCtx)
		}()
	} else {
		log.Info("Reconciliation sweeper disabled")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		kafkaConsumer.Wait()
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Consumer and sweeper have returned, so no customer is in flight
	ledgerService.Shutdown()

	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
		serviceErr = err
	}

	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
		serviceErr = err
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		serviceErr = err
	}

	if serviceErr != nil {
		log.Error("Ledger Processor shutdown completed with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Ledger Processor shutdown completed successfully")
}
