package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"taskhub/configs"
	"taskhub/internal/auth"
	"taskhub/internal/repository"
	"taskhub/internal/repository/cache"
	"taskhub/internal/repository/memstore"
	"taskhub/internal/repository/mongostore"
	"taskhub/internal/repository/pgstore"
	"taskhub/internal/validation"
	"taskhub/internal/websocket"
	"taskhub/pkg/crypto"
	"taskhub/pkg/database"
	"taskhub/pkg/logger"
)

// Dependencies is built once at startup and handed to every handler.
type Dependencies struct {
	Config   configs.Config
	Users    repository.UserRepository
	Tasks    repository.TaskRepository
	Tokens   *auth.TokenService
	Validate *validator.Validate
	Hub      *websocket.Hub
}

// New assembles dependencies around already-open gateways.
func New(cfg configs.Config, users repository.UserRepository, tasks repository.TaskRepository) *Dependencies {
	return &Dependencies{
		Config:   cfg,
		Users:    users,
		Tasks:    tasks,
		Tokens:   auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL),
		Validate: validation.New(),
		Hub:      websocket.NewHub(),
	}
}

// Build connects the configured store (and cache, if any) and returns the
// dependencies plus a func releasing every connection.
func Build(ctx context.Context, cfg configs.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var users repository.UserRepository
	var tasks repository.TaskRepository

	switch cfg.StoreDriver {
	case configs.StoreMongo:
		client, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Disconnect(context.Background()) })
		store := mongostore.New(client.Database(cfg.MongoDatabase))
		if err := store.EnsureIndexes(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		users, tasks = store.Users(), store.Tasks()
	case configs.StorePostgres:
		db, err := database.ConnectDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { db.Close() })
		store := pgstore.New(db)
		if err := store.CreateTablesIfNotExists(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		users, tasks = store.Users(), store.Tasks()
	case configs.StoreMemory:
		store := memstore.New()
		users, tasks = store.Users(), store.Tasks()
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	logger.SystemLogger.Info("Store connected", zap.String("driver", cfg.StoreDriver))

	if cfg.CacheEnabled() {
		if cfg.CacheEncryptionKey == "" {
			cleanup()
			return nil, nil, errors.New("CACHE_ENCRYPTION_KEY is required when REDIS_HOST is set")
		}
		client, err := database.ConnectRedis(ctx, cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { client.Close() })
		sealer, err := crypto.NewSealer(cfg.CacheEncryptionKey)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		tasks = cache.NewTaskCache(tasks, client, sealer, cfg.CacheTTL)
		logger.SystemLogger.Info("Task cache enabled", zap.String("redis_host", cfg.RedisHost))
	}

	return New(cfg, users, tasks), cleanup, nil
}
