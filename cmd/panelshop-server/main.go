// panelshop-server is the main HTTP server binary. It wires together
// the configured database, storage backend, cache and services, serves
// the API and runs the periodic ledger maintenance.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/cache/memory"
	"github.com/sonartis/panelshop/internal/cache/redis"
	"github.com/sonartis/panelshop/internal/config"
	"github.com/sonartis/panelshop/internal/handler"
	"github.com/sonartis/panelshop/internal/lock"
	"github.com/sonartis/panelshop/internal/repository"
	"github.com/sonartis/panelshop/internal/repository/postgres"
	"github.com/sonartis/panelshop/internal/repository/sqlite"
	"github.com/sonartis/panelshop/internal/service"
	"github.com/sonartis/panelshop/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "panelshop-server: %v\n", err)
		os.Exit(1)
	}
}

// repos bundles the persistence layer regardless of driver.
type repos struct {
	ledger     repository.UploadLedger
	products   repository.ProductRepository
	blogPosts  repository.BlogPostRepository
	topics     repository.TopicRepository
	categories repository.CategoryRepository
	pinger     handler.Pinger
	close      func() error
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	logger.Info().Str("driver", cfg.Database.Driver).Str("storage", cfg.Storage.Backend).Msg("starting panelshop-server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := openRepos(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer r.close()

	backend, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	// Session scope and distributed locking: Redis when configured,
	// in-process fallbacks otherwise.
	var sessionCache repository.Cache
	var locker lock.Locker
	if cfg.Redis.Enabled() {
		redisCache, err := redis.NewCache(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		sessionCache = redisCache
		locker = lock.NewRedisLocker(redis.NewDistributedLock(redisCache.Client()))
	} else {
		memCache := memory.NewCache(time.Minute)
		defer memCache.Close()
		sessionCache = memCache
		memLocker := lock.NewMemoryLocker()
		defer memLocker.Close()
		locker = memLocker
	}

	sources := []repository.ContentSource{r.products, r.blogPosts, r.topics, r.categories}
	reconciler := service.NewReconciler(r.ledger, backend, sources, locker, service.ReconcilerConfig{
		GracePeriod:   cfg.Cleanup.GracePeriod,
		UsedRetention: cfg.Cleanup.UsedRetention,
	}, logger)

	uploads := service.NewUploadService(backend, r.ledger, sessionCache, logger)
	catalog := service.NewCatalogService(r.products, r.categories, reconciler, logger)
	blog := service.NewBlogService(r.blogPosts, r.topics, reconciler, logger)

	maintenance := service.NewMaintenanceService(r.ledger, locker, service.MaintenanceConfig{
		Retention: cfg.Cleanup.UsedRetention,
		Interval:  cfg.Cleanup.PurgeInterval,
		LockTTL:   5 * time.Minute,
	}, logger)

	// Startup hygiene run, then the periodic scheduler.
	if _, err := maintenance.RunPurge(ctx); err != nil {
		logger.Warn().Err(err).Msg("startup ledger purge failed")
	}
	maintenance.Start(ctx)
	defer maintenance.Stop()

	router := handler.NewRouter(handler.RouterConfig{
		Upload:         handler.NewUploadHandler(uploads, cfg.Server.MaxUploadSize, logger),
		Media:          handler.NewMediaHandler(backend, logger),
		Catalog:        handler.NewCatalogHandler(catalog, uploads, logger),
		Blog:           handler.NewBlogHandler(blog, uploads, logger),
		DB:             r.pinger,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func openRepos(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repos, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &repos{
			ledger:     sqlite.NewUploadLedger(db),
			products:   sqlite.NewProductRepository(db),
			blogPosts:  sqlite.NewBlogPostRepository(db),
			topics:     sqlite.NewTopicRepository(db),
			categories: sqlite.NewCategoryRepository(db),
			pinger:     db,
			close:      db.Close,
		}, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &repos{
			ledger:     postgres.NewUploadLedger(db),
			products:   postgres.NewProductRepository(db),
			blogPosts:  postgres.NewBlogPostRepository(db),
			topics:     postgres.NewTopicRepository(db),
			categories: postgres.NewCategoryRepository(db),
			pinger:     db,
			close:      db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Database.Driver)
	}
}

func openStorage(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.Backend, error) {
	switch cfg.Backend {
	case "filesystem":
		return storage.NewLocalBackend(cfg.DataDir, logger)
	case "s3":
		return storage.NewS3Backend(ctx, storage.S3Config{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			Bucket:          cfg.Bucket,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			KeyPrefix:       cfg.KeyPrefix,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.Backend)
	}
}

func newLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}
