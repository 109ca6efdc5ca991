// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/awbwtools/turn-sentinel/internal/checker"
	"github.com/awbwtools/turn-sentinel/internal/clock/system"
	"github.com/awbwtools/turn-sentinel/internal/config"
	"github.com/awbwtools/turn-sentinel/internal/fetch"
	"github.com/awbwtools/turn-sentinel/internal/hash/sha256"
	"github.com/awbwtools/turn-sentinel/internal/metrics"
	"github.com/awbwtools/turn-sentinel/internal/notify"
	"github.com/awbwtools/turn-sentinel/internal/parse"
	memorypublisher "github.com/awbwtools/turn-sentinel/internal/publisher/memory"
	pubsubpublisher "github.com/awbwtools/turn-sentinel/internal/publisher/pubsub"
	"github.com/awbwtools/turn-sentinel/internal/state"
	gcsstate "github.com/awbwtools/turn-sentinel/internal/state/gcs"
	memorystate "github.com/awbwtools/turn-sentinel/internal/state/memory"
	"github.com/awbwtools/turn-sentinel/internal/telemetry"
)

// App holds the shared, long-lived services for the application. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	logger  *zap.Logger
	store   state.Store
	runner  *checker.Runner
	cfg     config.Config
	closers []func() error
}

// New creates and initializes an App based on the loaded configuration.
// It fails fast if any critical service cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger.Info("Initializing application services")
	metrics.Init()

	a := &App{logger: logger, cfg: cfg}

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.closers = append(a.closers, func() error {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(flushCtx)
	})

	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create GCS client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := gcsstate.New(client, gcsstate.Config{
			Bucket: cfg.Storage.Bucket,
			Object: cfg.Storage.Object,
		})
		if err != nil {
			return nil, fmt.Errorf("init GCS state store: %w", err)
		}
		logger.Info("Using GCS state store",
			zap.String("bucket", cfg.Storage.Bucket),
			zap.String("object", cfg.Storage.Object),
		)
		a.store = store
	case "memory":
		logger.Info("Using in-memory state store; state will not survive restarts")
		a.store = memorystate.New()
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}

	var publisher checker.Publisher
	switch cfg.Events.Provider {
	case "pubsub":
		p, err := pubsubpublisher.Connect(ctx, cfg.Events.ProjectID, cfg.Events.TopicID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.closers = append(a.closers, p.Close)
		logger.Info("Publishing cycle events to Pub/Sub", zap.String("topic", cfg.Events.TopicID))
		publisher = p
	case "memory":
		publisher = memorypublisher.New()
	case "noop":
		publisher = nil
	default:
		return nil, fmt.Errorf("unknown events provider: %s", cfg.Events.Provider)
	}

	fetcher, err := fetch.NewCollyFetcher(fetch.Config{
		PageURL:     cfg.Site.PageURL,
		LoginURL:    cfg.Site.LoginURL,
		Username:    cfg.Site.Username,
		Password:    cfg.Site.Password,
		UserAgent:   cfg.Site.UserAgent,
		LoginMarker: cfg.Site.LoginMarker,
		Timeout:     cfg.Timeout(),
	}, logger.Named("fetch"))
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	notifier, err := notify.NewWebhook(notify.Config{
		WebhookURL: cfg.Notify.WebhookURL,
		BaseURL:    cfg.Site.BaseURL,
		PageURL:    cfg.Site.PageURL,
		MaxLinks:   cfg.Notify.MaxLinks,
		Timeout:    cfg.Timeout(),
	}, logger.Named("notify"))
	if err != nil {
		return nil, fmt.Errorf("init notifier: %w", err)
	}

	a.runner = checker.NewRunner(
		a.store,
		fetcher,
		parse.New(),
		notifier,
		checker.NewFingerprinter(sha256.New()),
		publisher,
		cfg.Events.TopicID,
		system.New(),
		logger.Named("checker"),
	)

	logger.Info("Application services initialized")
	return a, nil
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Runner returns the configured cycle runner.
func (a *App) Runner() *checker.Runner {
	return a.runner
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close() {
	a.logger.Info("Shutting down application services")
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("Error closing service", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		// Best effort; logging itself may be failing at this point.
		a.logger.Warn("Error syncing logger on shutdown", zap.Error(err))
	}
}
