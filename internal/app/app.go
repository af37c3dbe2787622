// Package app assembles BinBuddy's long-lived services from configuration and
// owns their startup and shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/api"
	"github.com/JakeFAU/binbuddy/internal/archive"
	"github.com/JakeFAU/binbuddy/internal/clock/system"
	"github.com/JakeFAU/binbuddy/internal/config"
	"github.com/JakeFAU/binbuddy/internal/dispatcher"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/flow"
	"github.com/JakeFAU/binbuddy/internal/id/uuid"
	"github.com/JakeFAU/binbuddy/internal/metrics"
	"github.com/JakeFAU/binbuddy/internal/openfoodfacts"
	"github.com/JakeFAU/binbuddy/internal/policy/ratelimit"
	"github.com/JakeFAU/binbuddy/internal/product"
	"github.com/JakeFAU/binbuddy/internal/profile"
	"github.com/JakeFAU/binbuddy/internal/progress"
	progresssinks "github.com/JakeFAU/binbuddy/internal/progress/sinks"
	memorypublisher "github.com/JakeFAU/binbuddy/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/binbuddy/internal/publisher/pubsub"
	queuememory "github.com/JakeFAU/binbuddy/internal/queue/memory"
	"github.com/JakeFAU/binbuddy/internal/scan"
	gcsstorage "github.com/JakeFAU/binbuddy/internal/storage/gcs"
	localstorage "github.com/JakeFAU/binbuddy/internal/storage/local"
	memorystorage "github.com/JakeFAU/binbuddy/internal/storage/memory"
	pgstore "github.com/JakeFAU/binbuddy/internal/storage/postgres"
	"github.com/JakeFAU/binbuddy/internal/store"
	"github.com/JakeFAU/binbuddy/internal/telemetry"
	"github.com/JakeFAU/binbuddy/internal/worker"
)

// Version is reported to the tracer provider.
var Version = "dev"

const connectivityTTL = 30 * time.Second

type notifier interface {
	scan.Publisher
	Close() error
}

// Option adjusts Build.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	httpClient *http.Client
}

// WithRegisterer registers scan metrics on reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithHTTPClient replaces the client used for connectivity probes.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	pg        *pgstore.Store
	repos     store.Repositories
	gcs       *gcsstorage.BlobStore
	products  *product.Repository
	hub       *progress.Hub
	publisher notifier
	queue     *queuememory.Queue
	dispatch  *dispatcher.Dispatcher
	scans     *scan.Service
	favorites *profile.Favorites
	progress  *profile.Progress
	apiServer *api.Server

	tracerShutdown func(context.Context) error
	meterShutdown  func(context.Context) error
}

// Build creates the application's dependencies. Resources opened before a
// failure are released before Build returns.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	if err := a.build(ctx, o); err != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout())
		defer cancel()
		a.closeInfrastructure(closeCtx)
		a.closeObservability(closeCtx)
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, o options) error {
	a.logger.Info("building application dependencies",
		zap.Int("port", a.cfg.Server.Port),
		zap.String("storage_backend", a.cfg.Storage.Backend),
		zap.Bool("postgres", a.cfg.DB.DSN != ""),
		zap.Bool("pubsub", a.cfg.PubSub.ProjectID != ""),
	)
	metrics.Init()

	if err := a.setupTracing(ctx); err != nil {
		return err
	}

	if err := a.setupDatabase(ctx); err != nil {
		return err
	}
	blobs, err := a.setupStorage(ctx)
	if err != nil {
		return err
	}
	if err := a.setupProducts(blobs, o.httpClient); err != nil {
		return err
	}
	if err := a.setupProgress(ctx, o.registerer); err != nil {
		return err
	}
	if err := a.setupPublisher(ctx); err != nil {
		return err
	}
	if err := a.setupScans(); err != nil {
		return err
	}
	if err := a.setupMeters(ctx, o.registerer); err != nil {
		return err
	}

	a.favorites = profile.NewFavorites(a.repos.Favorites, system.New(), a.logger)
	a.apiServer = api.NewServer(api.Deps{
		Products:   a.products,
		Scans:      a.scans,
		Favorites:  a.favorites,
		Progress:   a.progress,
		Categories: a.repos.Categories,
		Ready:      a.ready,
	}, a.cfg, a.logger)
	return nil
}

func (a *App) setupTracing(ctx context.Context) error {
	if !a.cfg.Tracing.Enabled {
		return nil
	}
	var opts []sdktrace.TracerProviderOption
	if a.cfg.Tracing.Exporter == "gcp" {
		exp, err := telemetry.NewCloudTraceExporter(a.cfg.Tracing.ProjectID)
		if err != nil {
			return fmt.Errorf("tracer init failed: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
		a.logger.Info("exporting traces to Cloud Trace", zap.String("project", a.cfg.Tracing.ProjectID))
	}
	tp, err := telemetry.InitTracerProvider(ctx, a.cfg.Tracing.ServiceName, Version, opts...)
	if err != nil {
		return fmt.Errorf("tracer init failed: %w", err)
	}
	a.tracerShutdown = tp.Shutdown
	return nil
}

// setupMeters exposes pipeline gauges through OpenTelemetry.
func (a *App) setupMeters(ctx context.Context, reg prometheus.Registerer) error {
	mp, err := telemetry.InitMeterProvider(ctx, a.cfg.Tracing.ServiceName, Version, reg)
	if err != nil {
		return fmt.Errorf("meter init failed: %w", err)
	}
	a.meterShutdown = mp.Shutdown

	meter := mp.Meter("github.com/JakeFAU/binbuddy/app")
	hub, queue := a.hub, a.queue
	if _, err := meter.Int64ObservableGauge("binbuddy.progress.unreported_drops",
		metric.WithDescription("Scan events dropped by the full progress hub since the last drop warning."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(hub.Dropped())
			return nil
		}),
	); err != nil {
		return fmt.Errorf("register dropped events gauge: %w", err)
	}
	if _, err := meter.Int64ObservableGauge("binbuddy.batch.queue_length",
		metric.WithDescription("Batch jobs waiting for a worker."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(queue.Len()))
			return nil
		}),
	); err != nil {
		return fmt.Errorf("register queue length gauge: %w", err)
	}
	return nil
}

func (a *App) setupDatabase(ctx context.Context) error {
	if a.cfg.DB.DSN == "" {
		a.logger.Warn("no database dsn configured, using in-memory stores")
		a.repos = memorystorage.Repositories()
		return nil
	}
	pg, err := pgstore.New(ctx, pgstore.Config{
		DSN:      a.cfg.DB.DSN,
		MaxConns: int32(a.cfg.DB.MaxConns), //nolint:gosec // pool sizes fit in int32
	})
	if err != nil {
		return fmt.Errorf("postgres store init failed: %w", err)
	}
	a.pg = pg
	if err := pg.Migrate(ctx); err != nil {
		return fmt.Errorf("postgres migrate failed: %w", err)
	}
	a.repos = pg.Repositories()
	a.logger.Info("postgres store initialized")
	return nil
}

func (a *App) setupStorage(ctx context.Context) (archive.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case "gcs":
		blobs, err := gcsstorage.Open(ctx, gcsstorage.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.gcs = blobs
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.GCSBucket))
		return blobs, nil
	case "local":
		blobs, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("using local storage backend", zap.String("path", a.cfg.Storage.BaseDir))
		return blobs, nil
	default:
		a.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), nil
	}
}

func (a *App) setupProducts(blobs archive.BlobStore, httpClient *http.Client) error {
	limiter := ratelimit.New(ratelimit.Config{
		DefaultPerMinute: a.cfg.OpenFoodFacts.RatePerMinute,
		Endpoints: map[string]int{
			openfoodfacts.EndpointProduct: a.cfg.OpenFoodFacts.RatePerMinute,
			openfoodfacts.EndpointSearch:  a.cfg.OpenFoodFacts.SearchRatePerMinute,
		},
	})
	client, err := openfoodfacts.New(openfoodfacts.Config{
		BaseURL:   a.cfg.OpenFoodFacts.BaseURL,
		UserAgent: a.cfg.OpenFoodFacts.UserAgent,
		Timeout:   a.cfg.CatalogTimeout(),
		Limiter:   limiter,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("openfoodfacts client init failed: %w", err)
	}

	var checker product.Checker
	if a.cfg.OpenFoodFacts.Offline {
		a.logger.Warn("offline mode enabled, serving stored products only")
		checker = product.Static(false)
	} else {
		checker = product.NewHTTPChecker(product.HTTPCheckerConfig{
			URL:    a.cfg.OpenFoodFacts.ConnectivityURL,
			TTL:    connectivityTTL,
			Client: httpClient,
			Logger: a.logger,
		})
	}

	a.products, err = product.New(product.Config{
		Store:        a.repos.Products,
		Catalog:      client,
		Archive:      archive.New(blobs, a.cfg.Storage.Prefix, a.logger),
		Connectivity: checker,
		CacheEntries: a.cfg.Scans.CacheEntries,
		Logger:       a.logger,
	})
	if err != nil {
		return fmt.Errorf("product repository init failed: %w", err)
	}
	return nil
}

func (a *App) setupProgress(ctx context.Context, reg prometheus.Registerer) error {
	promSink, err := progresssinks.NewPrometheusSink(reg)
	if err != nil {
		return fmt.Errorf("scan metrics init failed: %w", err)
	}
	rewards := progresssinks.Rewards{
		CoinsPerScan: int64(a.cfg.Rewards.CoinsPerScan),
		XPPerScan:    int64(a.cfg.Rewards.XPPerScan),
		PfandBonus:   int64(a.cfg.Rewards.PfandBonus),
	}
	hubCfg := progress.Config{
		BufferSize:     a.cfg.Progress.BufferSize,
		MaxBatchEvents: a.cfg.Progress.MaxBatchEvents,
		MaxBatchWait:   a.cfg.BatchWait(),
		BaseContext:    context.WithoutCancel(ctx),
		Logger:         a.logger,
	}
	a.progress = profile.NewProgress(a.repos.Progress)
	a.hub = progress.NewHub(hubCfg,
		promSink,
		progresssinks.NewLogSink(a.logger),
		progresssinks.NewRewardSink(a.progress, rewards, a.logger),
	)
	a.logger.Info("progress hub initialized",
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Int("max_batch_events", hubCfg.MaxBatchEvents),
		zap.Duration("max_batch_wait", hubCfg.MaxBatchWait),
	)
	return nil
}

func (a *App) setupPublisher(ctx context.Context) error {
	if a.cfg.PubSub.ProjectID == "" {
		a.logger.Warn("no Pub/Sub project configured, using in-memory publisher")
		a.publisher = memorypublisher.New()
		return nil
	}
	pub, err := gcppublisher.Open(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName, a.logger)
	if err != nil {
		return fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.publisher = pub
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return nil
}

func (a *App) setupScans() error {
	a.queue = queuememory.NewQueue(a.cfg.Scans.QueueDepth)
	a.dispatch = dispatcher.New(a.queue, nil)

	var err error
	a.scans, err = scan.NewService(scan.Config{
		Products:    a.products,
		Scans:       a.repos.Scans,
		Catalog:     a.repos.Products,
		Events:      a.hub,
		Publisher:   a.publisher,
		Queue:       a.dispatch,
		IDs:         uuid.New(),
		Clock:       system.New(),
		RecentLimit: a.cfg.Scans.RecentLimit,
		Logger:      a.logger,
	})
	if err != nil {
		return fmt.Errorf("scan service init failed: %w", err)
	}

	for i := 0; i < a.cfg.Scans.Workers; i++ {
		a.dispatch.Add(worker.New(a.queue, a.scans, worker.Config{}, a.logger.With(zap.Int("worker", i))))
	}
	a.logger.Info("batch workers configured",
		zap.Int("workers", a.cfg.Scans.Workers),
		zap.Int("queue_depth", a.cfg.Scans.QueueDepth),
	)
	return nil
}

func (a *App) ready(ctx context.Context) error {
	if a.pg == nil {
		return nil
	}
	return a.pg.Ping(ctx)
}

// Handler exposes the HTTP API.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Lookup streams the lookup results for barcode.
func (a *App) Lookup(barcode string) flow.Stream[domain.Result[domain.Product]] {
	return a.products.Lookup(barcode)
}

// Scans exposes the scan service.
func (a *App) Scans() *scan.Service {
	return a.scans
}

// Run starts the batch workers and the HTTP server and blocks until ctx ends
// or SIGINT/SIGTERM arrives, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		a.logger.Info("dispatcher started")
		a.dispatch.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.queue.Close()
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		a.logger.Warn("workers did not stop before the shutdown deadline")
	}

	closeErr := a.Close(shutdownCtx)
	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return closeErr
	}
}

// Close releases every resource. It is safe to call on a partially built App.
func (a *App) Close(ctx context.Context) error {
	a.closeInfrastructure(ctx)
	a.closeObservability(ctx)
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure(ctx context.Context) {
	if a.queue != nil {
		a.queue.Close()
	}
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close failed", zap.Error(err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pg != nil {
		a.pg.Close()
	}
	a.queue, a.hub, a.publisher, a.gcs, a.pg = nil, nil, nil, nil, nil
}

func (a *App) closeObservability(ctx context.Context) {
	if a.meterShutdown != nil {
		if err := a.meterShutdown(ctx); err != nil {
			a.logger.Warn("meter shutdown failed", zap.Error(err))
		}
		a.meterShutdown = nil
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
		a.tracerShutdown = nil
	}
}
