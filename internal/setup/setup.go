package setup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/redis/rueidis"
	"github.com/robalyx/presencewatch/internal/database"
	"github.com/robalyx/presencewatch/internal/database/migrations"
	"github.com/robalyx/presencewatch/internal/redis"
	"github.com/robalyx/presencewatch/internal/roblox/api"
	"github.com/robalyx/presencewatch/internal/roblox/cache"
	"github.com/robalyx/presencewatch/internal/roblox/fetcher"
	"github.com/robalyx/presencewatch/internal/setup/config"
	"github.com/robalyx/presencewatch/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// ErrPendingMigrations is returned when the schema is behind and auto migration is off.
var ErrPendingMigrations = errors.New("database migrations are pending, run the db tool first")

// App bundles all core dependencies and services needed by the application.
type App struct {
	Config       *config.Config         // Application configuration
	Logger       *zap.Logger            // Main application logger
	DBLogger     *zap.Logger            // Database-specific logger
	DB           database.Client        // Tracking store
	RedisManager *redis.Manager         // Redis connection manager
	StatusClient rueidis.Client         // Redis client for worker status reporting, nil when disabled
	Roblox       *api.Client            // Roblox web API client
	Cache        *cache.Cache           // Upstream response cache
	Statuses     *fetcher.StatusFetcher // Profile and presence lookups
	LogManager   *telemetry.Manager     // Log management system
}

// InitializeApp bootstraps all application dependencies in the correct order.
func InitializeApp(ctx context.Context, logDir string, autoMigrate bool) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(logDir, &cfg.Common.Debug, &cfg.Common.Loggable)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	var statusClient rueidis.Client
	if redisManager.Enabled() {
		statusClient, err = redisManager.GetClient(redis.WorkerStatusDBIndex)
		if err != nil {
			redisManager.Close()
			return nil, err
		}
	} else {
		logger.Info("Redis not configured, worker heartbeats disabled")
	}

	db, err := checkAndRunMigrations(ctx, &cfg.Common.Storage, dbLogger, autoMigrate)
	if err != nil {
		redisManager.Close()
		return nil, err
	}

	robloxClient, err := api.New(api.OptionsFromConfig(&cfg.Common), logger.Named("roblox"))
	if err != nil {
		_ = db.Close()
		redisManager.Close()
		return nil, err
	}

	responseCache := cache.New(cache.OptionsFromConfig(&cfg.Common.Cache))
	statuses := fetcher.NewStatusFetcher(robloxClient, responseCache, logger.Named("fetcher"))

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		RedisManager: redisManager,
		StatusClient: statusClient,
		Roblox:       robloxClient,
		Cache:        responseCache,
		Statuses:     statuses,
		LogManager:   logManager,
	}, nil
}

// Cleanup shuts components down in reverse initialization order.
// Errors are logged so every component gets a cleanup attempt.
func (s *App) Cleanup(_ context.Context) {
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	s.Roblox.Close()

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}

// checkAndRunMigrations opens the store and makes sure its schema is current.
func checkAndRunMigrations(
	ctx context.Context, cfg *config.Storage, dbLogger *zap.Logger, autoMigrate bool,
) (database.Client, error) {
	db, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(db.DB(), migrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	unapplied := ms.Unapplied()
	if len(unapplied) == 0 {
		return db, nil
	}

	if !autoMigrate {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %d unapplied", ErrPendingMigrations, len(unapplied))
	}

	if err := database.Migrate(ctx, db.DB(), dbLogger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
