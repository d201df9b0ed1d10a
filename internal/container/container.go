package container

import (
	"context"
	"fmt"

	"photocache/downloader/internal/client"
	"photocache/downloader/internal/config"
	"photocache/downloader/internal/dispatcher"
	"photocache/downloader/internal/domain"
	"photocache/downloader/internal/downloader"
	"photocache/downloader/internal/proxy"
	"photocache/downloader/internal/queue"
	"photocache/downloader/internal/repository"
	"photocache/downloader/internal/service"
	"photocache/downloader/internal/state"
	"photocache/downloader/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Client       client.CatalogClient
	Dispatcher   *dispatcher.Dispatcher
	Repository   repository.DownloadRepository
	Queue        queue.Queue
	StateManager state.StateManager

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	proxySupplier := proxy.NewProxySupplier(ctx, cfg.Download.Proxies, cfg.Catalog.BaseURL)

	if cfg.Database.Enabled {
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		container.db = db

		repo := repository.NewDownloadRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			container.Close()
			return nil, err
		}
		container.Repository = repo
		log.Info("✅ Connected to database successfully")
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		container.redis = rdb

		if _, err := rdb.Ping(ctx).Result(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		redisQueue, err := queue.NewRedisQueue(ctx, rdb, cfg.Redis)
		if err != nil {
			container.Close()
			return nil, err
		}
		container.Queue = redisQueue
		container.StateManager = state.NewRedisStateManager(rdb)
	}

	fs := afero.NewOsFs()
	directories := storage.NewDirectoryManager(fs, cfg.Download.CacheRoot)
	fetcher := downloader.NewFetcher(cfg.Download, fs, proxySupplier)

	container.Client = client.NewCatalogClient(cfg.Catalog, proxySupplier)
	container.Dispatcher = dispatcher.New(directories, fetcher,
		dispatcher.WithScope(dispatcher.BoundedScope(cfg.Download.MaxInFlight)))

	if cfg.Download.MaxInFlight > 0 {
		log.Infof("🔧 Downloads limited to %d in flight", cfg.Download.MaxInFlight)
	}

	container.Service = service.NewService(
		container.Client,
		container.Dispatcher,
		container.Queue,
		container.Repository,
		container.StateManager,
		cfg.Redis.LockTTLDuration(),
	)

	return container, nil
}

// Run executes a single catalog pass
func (c *Container) Run(ctx context.Context) (*domain.PassSummary, error) {
	return c.Service.RunPass(ctx)
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Debug("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			return fmt.Errorf("failed to close Redis client: %w", err)
		}
	}

	log.Debug("Container shut down successfully")
	return nil
}
