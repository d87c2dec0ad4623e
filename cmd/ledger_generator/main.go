package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/petropulse-loyalty-ledger/internal/config"
	"github.com/petropulse-loyalty-ledger/internal/data/mongo"
	"github.com/petropulse-loyalty-ledger/internal/data/postgres"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/petropulse-loyalty-ledger/internal/domain/shared"
	"github.com/petropulse-loyalty-ledger/internal/ledger_processor/components"
	"github.com/petropulse-loyalty-ledger/internal/ledger_processor/service"
	"github.com/petropulse-loyalty-ledger/internal/logger"
	"github.com/petropulse-loyalty-ledger/internal/platform/messaging/producers"
	"github.com/petropulse-loyalty-ledger/internal/platform/persistence"
)

const (
	flagConfig    = "config"
	flagSeed      = "seed"
	flagWorkers   = "workers"
	flagEnqueue   = "enqueue"
	flagReconcile = "reconcile"

	defaultConfigName = "ledger_generator"
)

// errCustomersFailed makes the process exit non-zero after printing the report
var errCustomersFailed = errors.New("some customers failed")

type options struct {
	ConfigName string
	Seed       uint64
	Workers    int
	Enqueue    bool
	Reconcile  bool
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ledger_generator: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "ledger_generator",
		Short:         "Generate loyalty ledgers for every customer",
		Long:          "Builds each customer's loyalty ledger from its fuel purchases plus synthetic activity, reconciles it to the stored points balance and writes it once.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.LoadConfig(opts.ConfigName)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if err := applyOverrides(cmd, cfg, opts); err != nil {
				return err
			}
			return run(ctx, cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.ConfigName, flagConfig, defaultConfigName, "config file name looked up in ./configs and .")
	cmd.Flags().Uint64Var(&opts.Seed, flagSeed, 0, "random seed for synthetic activity (0 picks one and logs it)")
	cmd.Flags().IntVar(&opts.Workers, flagWorkers, 0, "customers processed concurrently (overrides WORKER_POOL_SIZE)")
	cmd.Flags().BoolVar(&opts.Enqueue, flagEnqueue, false, "publish one request per customer to Kafka instead of running locally")
	cmd.Flags().BoolVar(&opts.Reconcile, flagReconcile, false, "reconcile stored ledgers instead of generating new ones")

	return cmd
}

// applyOverrides copies explicitly set flags over the loaded configuration
func applyOverrides(cmd *cobra.Command, cfg *config.Config, opts *options) error {
	if cmd.Flags().Changed(flagSeed) {
		cfg.Ledger.RandomSeed = opts.Seed
	}
	if cmd.Flags().Changed(flagWorkers) {
		if opts.Workers <= 0 {
			return fmt.Errorf("--%s must be greater than 0", flagWorkers)
		}
		cfg.WorkerPool.Size = opts.Workers
	}
	return nil
}

func operation(opts *options) shared.LedgerOperation {
	if opts.Reconcile {
		return shared.LedgerOperationReconcile
	}
	return shared.LedgerOperationGenerate
}

func run(ctx context.Context, cfg *config.Config, opts *options, out io.Writer) error {
	log := logger.NewLogger(cfg)
	op := operation(opts)

	log.Info("Starting Ledger Generator",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"operation", op,
		"enqueue", opts.Enqueue,
	)

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return fmt.Errorf("initialize postgres: %w", err)
	}
	defer postgresDB.Close()

	customerRepo := postgres.NewCustomerRepository(log, postgresDB)

	if opts.Enqueue {
		return enqueue(ctx, log, cfg, customerRepo, op, out)
	}

	mongoDB, err := persistence.NewMongoDB(ctx, log, cfg.Application.Name, &cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("initialize mongodb: %w", err)
	}
	defer func() {
		if err := mongoDB.Close(context.Background()); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}()

	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())
	if cfg.MongoDB.Transactions {
		ledgerRepo.UseTransactions(mongoDB)
	}
	if err := ledgerRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	ledgerService, err := components.CreateLedgerService(customerRepo, ledgerRepo, log, cfg)
	if err != nil {
		return err
	}
	defer ledgerService.Shutdown()

	report, err := service.NewBatchRunner(customerRepo, ledgerService, log).Run(ctx, op)
	if report != nil {
		printReport(out, report)
	}
	if err != nil {
		return err
	}
	if report.Failed() {
		return fmt.Errorf("%w: %d of %d", errCustomersFailed, len(report.Failures), report.CustomersProcessed)
	}
	return nil
}

func enqueue(ctx context.Context, log *slog.Logger, cfg *config.Config, customerRepo customer.Repository, op shared.LedgerOperation, out io.Writer) error {
	producer, err := producers.NewLedgerRequestProducer(log, &cfg.Kafka)
	if err != nil {
		return fmt.Errorf("initialize request producer: %w", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.Error("Error closing request producer", "error", err)
		}
	}()

	correlationID := uuid.NewString()
	published, err := service.NewRequestEnqueuer(customerRepo, producer, log).Enqueue(ctx, op, correlationID)
	fmt.Fprintf(out, "operation:  %s\nenqueued:   %d\ncorrelation_id: %s\n", op, published, correlationID)
	return err
}

func printReport(w io.Writer, report *service.BatchReport) {
	fmt.Fprintf(w, "operation:  %s\n", report.Operation)
	fmt.Fprintf(w, "customers:  %d\n", report.CustomersProcessed)
	fmt.Fprintf(w, "entries:    %d\n", report.EntriesWritten)
	fmt.Fprintf(w, "adjusted:   %d\n", report.Adjusted)
	fmt.Fprintf(w, "skipped:    %d\n", report.Skipped)
	fmt.Fprintf(w, "failed:     %d\n", len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  %s: %v\n", f.CustomerID, f.Err)
	}
}
