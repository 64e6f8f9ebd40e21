package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/product-catalog-api/internal/config"
	"github.com/phrazzld/product-catalog-api/internal/events"
	"github.com/phrazzld/product-catalog-api/internal/health"
	"github.com/phrazzld/product-catalog-api/internal/metrics"
	"github.com/phrazzld/product-catalog-api/internal/platform/postgres"
	"github.com/phrazzld/product-catalog-api/internal/platform/rabbitmq"
	"github.com/phrazzld/product-catalog-api/internal/service"
	"github.com/phrazzld/product-catalog-api/internal/service/auth"
	"github.com/phrazzld/product-catalog-api/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	metrics        *metrics.Metrics
	productStore   store.ProductStore
	jwtService     auth.JWTService
	productService service.ProductService
	readiness      *health.Checker

	// publisher is nil when no broker URL is configured.
	publisher *rabbitmq.Publisher
	emitter   *events.AsyncEmitter
}

// newApplication creates a new application instance with all dependencies initialized.
// The database connection must already be established.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.productStore = postgres.NewPostgresProductStore(db, logger, cfg.Database.QueryTimeout)

	app.readiness, err = health.NewChecker(app.productStore, cfg.Server.ReadinessTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create readiness checker: %w", err)
	}

	sink, err := app.setupEventSink()
	if err != nil {
		return nil, err
	}
	app.emitter, err = events.NewAsyncEmitter(sink, events.AsyncEmitterConfig{
		QueueSize:      cfg.Broker.QueueSize,
		PublishTimeout: cfg.Broker.PublishTimeout,
	}, app.metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event emitter: %w", err)
	}
	app.emitter.Start()

	app.productService, err = service.NewProductService(
		service.NewProductRepositoryAdapter(app.productStore),
		app.emitter,
		app.metrics,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create product service: %w", err)
	}

	return app, nil
}

// setupEventSink returns the emitter that finally delivers product events:
// the RabbitMQ publisher when a broker is configured, otherwise an
// in-process emitter that only logs each event.
func (app *application) setupEventSink() (events.EventEmitter, error) {
	if app.config.Broker.URL == "" {
		app.logger.Warn("no broker configured; product events are only logged")
		emitter := events.NewInMemoryEventEmitter(app.logger)
		emitter.RegisterHandler(events.NewLoggingHandler(app.logger))
		return emitter, nil
	}

	publisher, err := rabbitmq.NewPublisher(app.config.Broker.URL, app.config.Broker.Exchange, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create broker publisher: %w", err)
	}
	app.publisher = publisher

	emitter, err := events.NewBrokerEmitter(publisher, 0, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create broker emitter: %w", err)
	}
	app.logger.Info("publishing product events to broker", "exchange", app.config.Broker.Exchange)
	return emitter, nil
}

// cleanup releases resources in dependency order: pending events are
// drained first, then the broker connection and the database are closed.
func (app *application) cleanup(ctx context.Context) error {
	var errs []error

	if app.emitter != nil {
		if err := app.emitter.Stop(ctx); err != nil {
			app.logger.Error("Error draining event queue", "error", err)
			errs = append(errs, err)
		}
	}
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error("Error closing broker connection", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
			errs = append(errs, err)
		}
	}

	app.logger.Info("Application shutdown completed")
	return errors.Join(errs...)
}
