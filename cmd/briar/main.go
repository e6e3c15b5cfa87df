package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/hotbray/briar/config"
	catalogrepo "github.com/hotbray/briar/internal/repositories/catalog"
	dealerrepo "github.com/hotbray/briar/internal/repositories/dealeraccount"
	batchrepo "github.com/hotbray/briar/internal/repositories/importbatch"
	specialrepo "github.com/hotbray/briar/internal/repositories/specialprice"
	stagedrepo "github.com/hotbray/briar/internal/repositories/stagedrow"
	superrepo "github.com/hotbray/briar/internal/repositories/supersession"
	"github.com/hotbray/briar/pkg/database"
	"github.com/hotbray/briar/pkg/events"
	"github.com/hotbray/briar/pkg/importer"
	"github.com/hotbray/briar/pkg/kafka"
	"github.com/hotbray/briar/pkg/logging"
	"github.com/hotbray/briar/pkg/processor"
	"github.com/hotbray/briar/pkg/supersession"
	"github.com/hotbray/briar/pkg/tracing"
	"github.com/hotbray/briar/pkg/tracing/exporters"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger ectologger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	setupTracing(cfg, logger)

	db, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrateDatabase(cfg, logger, db); err != nil {
		return err
	}

	dbInstance := database.NewDatabaseInstance(db, logger)

	dealers := dealerrepo.NewRepository(dbInstance, logger)
	catalog := catalogrepo.NewRepository(dbInstance, logger)
	specials := specialrepo.NewRepository(dbInstance, logger)
	links := superrepo.NewRepository(dbInstance, logger)
	batches := batchrepo.NewRepository(dbInstance, logger)
	staged := stagedrepo.NewRepository(dbInstance, logger)

	resolver := supersession.NewResolver(links, logger)
	importService := importer.NewService(batches, staged, dealers, catalog, specials, links, resolver, logger)

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	defer producer.Close()

	emitter := events.NewEmitter(producer, logger)
	proc := processor.NewProcessor(logger, importService, emitter)

	if cfg.KafkaConsumerEnabled {
		consumer := kafka.NewConsumer(*cfg, logger, proc.HandleMessage)
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		defer consumer.Stop()
	}

	logger.WithContext(ctx).Info("Service started")
	<-ctx.Done()
	logger.Info("Shutting down")
	return nil
}

func setupTracing(cfg *config.Config, logger ectologger.Logger) {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporters.NewConsoleExporter(logger)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.AppName),
		)),
	)
	tracing.SetTracer(provider.Tracer(cfg.AppName))
}

func connect(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)

	var db *sqlx.DB
	var err error
	for attempt := 1; attempt <= cfg.StartupMaxAttempts; attempt++ {
		db, err = sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
		if err == nil {
			break
		}
		logger.WithError(err).Warnf("Database connection attempt %d/%d failed", attempt, cfg.StartupMaxAttempts)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	return db, nil
}

func migrateDatabase(cfg *config.Config, logger ectologger.Logger, db *sqlx.DB) error {
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return ms.Migrate(cfg.DatabaseName, driver)
}
