package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sundayezeilo/shortlink/internal/cache"
	"github.com/sundayezeilo/shortlink/internal/config"
	"github.com/sundayezeilo/shortlink/internal/db/migrations"
	db "github.com/sundayezeilo/shortlink/internal/db/sqlc"
	"github.com/sundayezeilo/shortlink/internal/identity"
	"github.com/sundayezeilo/shortlink/internal/server"
	"github.com/sundayezeilo/shortlink/internal/shortener"
	"github.com/sundayezeilo/shortlink/internal/sweeper"
)

// App holds the application dependencies and configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DBPool  *pgxpool.Pool
	Redis   *redis.Client // nil when the in-process cache is used
	Repo    shortener.Repository
	Service shortener.Service
	Server  *server.Server
	Sweeper *sweeper.Sweeper // nil when disabled
	Handler *shortener.Handler
}

// Bootstrap loads the environment and configuration and builds the logger.
// Commands that need only part of the application start here.
func Bootstrap() (*config.Config, *slog.Logger, error) {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, NewLogger(cfg.App.LogLevel), nil
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("starting application",
		"env", cfg.App.Environment,
		"version", cfg.Observability.ServiceVersion,
	)

	dbPool, err := ConnectDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, DBPool: dbPool}

	if cfg.Database.MigrateOnStart {
		if err := Migrate(dbPool, logger, true); err != nil {
			a.Shutdown()
			return nil, err
		}
	}

	linkCache, err := a.setupCache(ctx)
	if err != nil {
		a.Shutdown()
		return nil, err
	}

	a.Repo = NewRepository(dbPool)
	a.Service = shortener.NewService(a.Repo, &shortener.ServiceConfig{
		Cache:         linkCache,
		CodeLength:    cfg.Shortener.CodeLength,
		MaxRetries:    cfg.Shortener.MaxRetries,
		WarmThreshold: cfg.Shortener.WarmThreshold,
		StoreTimeout:  cfg.Shortener.StoreTimeout,
		Logger:        logger,
	})
	a.Handler = shortener.NewHandler(shortener.HandlerConfig{
		Service: a.Service,
		Logger:  logger,
		BaseURL: cfg.Server.BaseURL,
	})

	a.Server = server.New(cfg, logger, a.Handler, server.Options{
		Identity: identity.NewStatic(cfg.Auth.Tokens),
		Checks:   a.readinessChecks(),
	})

	if cfg.Sweeper.Enabled {
		a.Sweeper = sweeper.New(a.Repo, sweeper.Config{
			Interval: cfg.Sweeper.Interval,
			Logger:   logger,
		})
	}

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"redis", a.Redis != nil,
		"sweeper", a.Sweeper != nil,
	)

	return a, nil
}

// Start runs the sweeper and blocks in the HTTP server until shutdown.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if a.Sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Sweeper.Run(ctx)
		}()
	}

	err := a.Server.Start(ctx)
	cancel()
	wg.Wait()

	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown releases the cache and database connections.
func (a *App) Shutdown() {
	a.Logger.Info("shutting down application")

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", "error", err.Error())
		} else {
			a.Logger.Info("redis connection closed")
		}
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}
}

// setupCache connects to Redis when enabled and otherwise returns an
// in-process cache.
func (a *App) setupCache(ctx context.Context) (shortener.Cache, error) {
	rc := a.Config.Redis
	if !rc.Enabled {
		a.Logger.Info("using in-process redirect cache")
		return cache.NewMemory(cache.MemoryConfig{SafetyTTL: rc.SafetyTTL}), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	})

	a.Logger.Info("connecting to redis", "addr", rc.Addr, "db", rc.DB)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	a.Redis = client

	return cache.NewRedis(client, cache.RedisConfig{
		KeyPrefix: rc.KeyPrefix,
		SafetyTTL: rc.SafetyTTL,
	}), nil
}

func (a *App) readinessChecks() map[string]server.Check {
	checks := map[string]server.Check{
		"postgres": a.DBPool.Ping,
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// NewRepository builds the Postgres link repository over pool.
func NewRepository(pool *pgxpool.Pool) shortener.Repository {
	return shortener.NewRepository(db.New(pool), nil)
}

// Migrate applies (up) or rolls back one step of (down) the embedded schema.
func Migrate(pool *pgxpool.Pool, logger *slog.Logger, up bool) (err error) {
	m, err := migrations.New(pool, logger)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	defer func() {
		err = errors.Join(err, m.Close())
	}()

	if up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file found")
		}
	}
}

// NewLogger creates a structured logger based on the log level.
func NewLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

// ConnectDatabase establishes a connection to the PostgreSQL database.
func ConnectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")

	return pool, nil
}
