// Package server assembles storage, services and the HTTP router from configuration.
package server

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-enrollment/internal/handler"
	"github.com/noah-isme/sma-enrollment/internal/models"
	"github.com/noah-isme/sma-enrollment/internal/recordstore"
	"github.com/noah-isme/sma-enrollment/internal/repository"
	"github.com/noah-isme/sma-enrollment/internal/service"
	"github.com/noah-isme/sma-enrollment/pkg/cache"
	"github.com/noah-isme/sma-enrollment/pkg/config"
	"github.com/noah-isme/sma-enrollment/pkg/database"
	"github.com/noah-isme/sma-enrollment/pkg/storage"
)

// UserStore is the credential store used by login and seeding.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *models.User) error
}

// App holds the wired components of one process.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sqlx.DB
	Redis     *redis.Client
	Files     *storage.LocalStorage
	Store     recordstore.Store
	Users     UserStore
	Metrics   *service.MetricsService
	CacheRepo *repository.CacheRepository
	Cache     *service.CacheService
	Auth      *service.AuthService
	Seed      *service.SeedService
	Students  *service.StudentService
}

// Build opens the configured backend and constructs every service.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Config: cfg, Logger: logger, Metrics: service.NewMetricsService()}

	files, err := storage.NewLocalStorage(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}
	app.Files = files

	switch cfg.Store.Backend {
	case config.BackendSQL:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.DB = db
		app.Store = repository.NewStudentRepository(db, logger)
		app.Users = repository.NewUserRepository(db)
	case config.BackendJSON, "":
		app.Store = repository.NewStudentFileRepository(files, cfg.Store.StudentsFile, logger)
		app.Users = repository.NewUserFileRepository(files, cfg.Store.UsersFile, logger)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			app.Redis = client
		}
	}
	app.CacheRepo = repository.NewCacheRepository(app.Redis, logger)
	app.Cache = service.NewCacheService(app.CacheRepo, app.Metrics, cfg.Cache.TTL, logger, app.Redis != nil)

	validate := validator.New()
	app.Auth = service.NewAuthService(app.Users, validate, logger, app.Metrics, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	app.Seed = service.NewSeedService(app.Users, service.DefaultAccounts(cfg.Seed.AdminPassword, cfg.Seed.StaffPassword), logger)
	app.Students = service.NewStudentService(app.Store, app.Cache, app.Metrics, validate, logger)

	return app, nil
}

// RouterOptions describes the HTTP surface of the app.
func (a *App) RouterOptions() RouterOptions {
	checks := map[string]handler.ReadinessCheck{}
	if a.DB != nil {
		checks["database"] = a.DB.PingContext
	}
	if a.Redis != nil {
		checks["redis"] = a.CacheRepo.Ping
	}
	return RouterOptions{
		Config:   a.Config,
		Logger:   a.Logger,
		Metrics:  a.Metrics,
		Auth:     a.Auth,
		Students: a.Students,
		Checks:   checks,
	}
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var firstErr error
	if a.CacheRepo != nil {
		if err := a.CacheRepo.Close(); err != nil {
			firstErr = err
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
