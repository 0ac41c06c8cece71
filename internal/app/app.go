// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/medregs/guidance-intake/internal/config"
	"github.com/medregs/guidance-intake/internal/intake"
	publishermemory "github.com/medregs/guidance-intake/internal/publisher/memory"
	publisherpubsub "github.com/medregs/guidance-intake/internal/publisher/pubsub"
	storagememory "github.com/medregs/guidance-intake/internal/storage/memory"
	storagepostgres "github.com/medregs/guidance-intake/internal/storage/postgres"
	"github.com/medregs/guidance-intake/internal/uploader"
	uploadergcs "github.com/medregs/guidance-intake/internal/uploader/gcs"
)

// App holds the shared, long-lived services for the intake process. It is
// initialized once at startup and passed to the components that need it.
type App struct {
	logger    *zap.Logger
	cfg       config.Config
	store     intake.DocumentStore
	uploader  intake.Uploader
	publisher intake.Publisher
	closers   []func()
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger { return a.logger }

// GetConfig returns the validated configuration.
func (a *App) GetConfig() config.Config { return a.cfg }

// GetStore returns the configured document store.
func (a *App) GetStore() intake.DocumentStore { return a.store }

// GetUploader returns the configured artifact uploader.
func (a *App) GetUploader() intake.Uploader { return a.uploader }

// GetPublisher returns the configured event publisher.
func (a *App) GetPublisher() intake.Publisher { return a.publisher }

// NewApp creates and initializes an App from the given configuration. It
// instantiates the configured providers and fails fast if any critical
// service cannot be initialized.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger, cfg: cfg}

	switch cfg.Database.Provider {
	case "postgres":
		logger.Info("Connecting to PostgreSQL...")
		store, err := storagepostgres.NewDocumentStore(ctx, storagepostgres.Config{
			DSN:      cfg.Database.DSN,
			Table:    cfg.Database.Table,
			MaxConns: int32(cfg.Database.MaxConns),
			MinConns: int32(cfg.Database.MinConns),
		})
		if err != nil {
			return nil, fmt.Errorf("initialize document store: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
	case "memory":
		logger.Info("Using in-memory document store. Records will not survive the process.")
		a.store = storagememory.NewDocumentStore()
	default:
		return nil, fmt.Errorf("unknown database provider: %s", cfg.Database.Provider)
	}

	switch cfg.Uploader.Provider {
	case "gcs":
		logger.Info("Using GCS uploader", zap.String("bucket", cfg.Uploader.Bucket))
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		up, err := uploadergcs.New(client, uploadergcs.Config{Bucket: cfg.Uploader.Bucket})
		if err != nil {
			return nil, fmt.Errorf("initialize uploader: %w", err)
		}
		a.uploader = up
		a.closers = append(a.closers, func() { _ = client.Close() })
	case "noop":
		logger.Info("Using no-op uploader. Artifacts will not be copied to object storage.")
		a.uploader = uploader.NewNoOp()
	default:
		return nil, fmt.Errorf("unknown uploader provider: %s", cfg.Uploader.Provider)
	}

	switch cfg.PubSub.Provider {
	case "pubsub":
		logger.Info("Connecting to GCP Pub/Sub", zap.String("topic", cfg.PubSub.TopicName))
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create pubsub client: %w", err)
		}
		pub := publisherpubsub.New(client.Topic(cfg.PubSub.TopicName))
		a.publisher = pub
		a.closers = append(a.closers, pub.Stop, func() { _ = client.Close() })
	case "memory":
		logger.Info("Using in-memory publisher. Events will not leave the process.")
		a.publisher = publishermemory.New()
	default:
		return nil, fmt.Errorf("unknown pubsub provider: %s", cfg.PubSub.Provider)
	}

	return a, nil
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	// Best effort; stderr may not be syncable.
	_ = a.logger.Sync()
}
