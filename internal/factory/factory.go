package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/wordduel/internal/config"
	"github.com/mcoot/wordduel/internal/dependencies/clock"
	"github.com/mcoot/wordduel/internal/dependencies/random"
	"github.com/mcoot/wordduel/internal/services/secrets"
	"github.com/mcoot/wordduel/internal/services/session"
	"github.com/mcoot/wordduel/internal/storage"
	"github.com/mcoot/wordduel/internal/storage/memory"
	redisstorage "github.com/mcoot/wordduel/internal/storage/redis"
	sqlitestorage "github.com/mcoot/wordduel/internal/storage/sqlite"
	"github.com/mcoot/wordduel/internal/web/sse"
)

// Storage type constants
const (
	StorageTypeMemory = config.StorageMemory
	StorageTypeRedis  = config.StorageRedis
	StorageTypeSQLite = config.StorageSQLite
)

// generatedKeySize is the size of the root key used when none is configured
const generatedKeySize = 32

// App contains all wired application components
type App struct {
	// Storage
	Storage     storage.Storage
	StorageType string

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Sealer            *secrets.Sealer
	SessionController *session.Controller
	HubManager        *sse.HubManager
	Broadcaster       *sse.Broadcaster
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// SecretKey is the root key for sealing secrets (optional)
	// If empty, a random key is generated for this process
	SecretKey []byte
	// Session holds game rules and the retry policy
	// If zero value, defaults to session.DefaultConfig()
	Session session.Config
}

// FromEnv converts loaded environment settings into a factory Config
func FromEnv(cfg config.Config, logger *slog.Logger) Config {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = cfg.RedisURL
	redisCfg.SessionTTL = cfg.RedisSessionTTL

	sessionCfg := session.DefaultConfig()
	sessionCfg.WordLength = cfg.WordLength
	sessionCfg.MaxAttempts = cfg.MaxAttempts

	var secretKey []byte
	if cfg.SecretKey != "" {
		secretKey = []byte(cfg.SecretKey)
	}

	return Config{
		Logger:      logger,
		StorageType: cfg.StorageType,
		RedisConfig: &redisCfg,
		SQLitePath:  cfg.SQLitePath,
		SecretKey:   secretKey,
		Session:     sessionCfg,
	}
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		sqliteStore, err := sqlitestorage.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	secretKey := cfg.SecretKey
	if len(secretKey) == 0 {
		generated, err := rnd.Bytes(generatedKeySize)
		if err != nil {
			closeStorage(store)
			return nil, fmt.Errorf("generate secret key: %w", err)
		}
		secretKey = generated
		logger.Warn("no secret key configured; sealed secrets will not survive a restart")
	}
	sealer, err := secrets.New(secretKey)
	if err != nil {
		closeStorage(store)
		return nil, err
	}

	// Unset rules and retry settings fall back to the defaults one by one
	sessionCfg := cfg.Session.WithDefaults()

	app := newWithDependencies(store, clk, rnd, sealer, sessionCfg, logger)
	app.StorageType = storageType
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	sealer *secrets.Sealer,
	sessionCfg session.Config,
	logger *slog.Logger,
) *App {
	hubManager := sse.NewHubManager(logger)
	broadcaster := sse.NewBroadcaster(hubManager, logger)
	controller := session.NewController(store, sealer, clk, rnd, logger, sessionCfg,
		session.WithNotifier(broadcaster))

	return &App{
		Storage:           store,
		StorageType:       StorageTypeMemory,
		Clock:             clk,
		Random:            rnd,
		Sealer:            sealer,
		SessionController: controller,
		HubManager:        hubManager,
		Broadcaster:       broadcaster,
	}
}

// Close stops all hubs and releases the storage backend
func (a *App) Close() error {
	a.HubManager.Close()
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func closeStorage(store storage.Storage) {
	if closer, ok := store.(io.Closer); ok {
		_ = closer.Close()
	}
}
