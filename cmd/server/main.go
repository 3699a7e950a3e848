package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/funds-transfer-ledger/internal/config"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/fixtures"
	interfaces "github.com/sheikh-saqib/funds-transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/ledger"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/logging"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/server"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/storage/postgres"
	"github.com/sheikh-saqib/funds-transfer-ledger/internal/transfer"
)

func main() {
	os.Exit(start(logging.New))
}

// start returns the process exit code. It returns instead of exiting so the
// deferred logger.Sync flushes buffered entries on every path.
func start(newLogger func(config.LoggingConfig) (*zap.Logger, error)) int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("load config: %v", err)
		return 1
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Printf("build logger: %v", err)
		return 1
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []ledger.Option{ledger.WithLogger(logger)}
	if cfg.Kafka.Enabled() {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, logger)
		defer publisher.Close()
		opts = append(opts, ledger.WithPublisher(publisher, cfg.Kafka.Topic))
		logger.Info("publishing transfer events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	ledgerService := ledger.NewLedger(store, opts...)

	if cfg.Storage.SeedFixtures {
		n, err := fixtures.Load(ctx, ledgerService)
		if err != nil {
			return fmt.Errorf("seed fixtures: %w", err)
		}
		logger.Info("fixtures loaded", zap.Int("accounts", n))
	}

	engine := transfer.NewEngine(ledgerService, logger)
	srv := server.New(logger, cfg.HTTP, engine, ledgerService)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (interfaces.LedgerStore, func(), error) {
	if cfg.Driver != "postgres" {
		logger.Info("using in-memory ledger store")
		return memory.NewMemoryLedgerStore(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { closeQuietly(db, logger) }

	if cfg.Migrate {
		if err := postgres.Migrate(db, logger); err != nil {
			closeDB()
			return nil, nil, err
		}
	}

	logger.Info("using postgres ledger store")
	return postgres.NewPostgresLedgerStore(db), closeDB, nil
}

func closeQuietly(db *sql.DB, logger *zap.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("close database", zap.Error(err))
	}
}
