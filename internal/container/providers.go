package container

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/application/dispatcher"
	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/application/service"
	"github.com/garyjia/perdin/internal/application/workflow"
	"github.com/garyjia/perdin/internal/domain/access"
	"github.com/garyjia/perdin/internal/domain/event"
	"github.com/garyjia/perdin/internal/domain/perdiem"
	"github.com/garyjia/perdin/internal/infrastructure/auth"
	"github.com/garyjia/perdin/internal/infrastructure/cache"
	infraLark "github.com/garyjia/perdin/internal/infrastructure/external/lark"
	"github.com/garyjia/perdin/internal/infrastructure/messaging"
	"github.com/garyjia/perdin/internal/infrastructure/metrics"
	"github.com/garyjia/perdin/internal/infrastructure/persistence/repository"
	"github.com/garyjia/perdin/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/perdin/internal/infrastructure/report"
	"github.com/garyjia/perdin/migrations"
	"github.com/garyjia/perdin/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and applies pending migrations, from
// cfg.MigrationsDir when set and from the embedded files otherwise.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if cfg.MigrationsDir != "" {
		err = migrator.RunMigrations(cfg.MigrationsDir)
	} else {
		err = migrator.RunMigrationsFS(migrations.FS, "embedded")
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
// When cityCache is non-nil, city reads go through it.
func ProvideRepositories(db *database.DB, cityCache port.CityCache, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	var cities port.CityRepository = repository.NewCityRepository(db.DB, logger)
	if cityCache != nil {
		cities = cache.NewCityRepository(cities, cityCache)
	}

	return &RepositoryBundle{
		City:    cities,
		Trip:    repository.NewTripRepository(db.DB, logger),
		User:    repository.NewUserRepository(db.DB, logger),
		History: repository.NewHistoryRepository(db.DB, logger),
	}, nil
}

// ProvideRedis connects the city cache. A nil client with a nil error means
// the cache is disabled.
func ProvideRedis(ctx context.Context, cfg *RedisConfig, logger *zap.Logger) (*redis.Client, port.CityCache, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil, nil
	}

	client, err := cache.Connect(ctx, cache.RedisConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Redis city cache enabled", zap.String("addr", cfg.Addr))
	return client, cache.NewRedisCityCache(client, cfg.Prefix, cfg.TTL, logger), nil
}

// ProvidePolicy builds the capability policy from the configured roles.
func ProvidePolicy(roles map[string][]access.Capability) (*access.Policy, error) {
	policy, err := access.NewPolicy(roles)
	if err != nil {
		return nil, fmt.Errorf("failed to build access policy: %w", err)
	}
	return policy, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *EventsConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	}
	if cfg != nil && cfg.AsyncTimeout > 0 {
		opts = append(opts, dispatcher.WithAsyncTimeout(cfg.AsyncTimeout))
	}

	return dispatcher.NewDispatcher(opts...), nil
}

// WorkflowDeps holds dependencies required for creating the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
}

// ProvideWorkflowEngine creates the review workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.WorkflowEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	return workflow.NewEngine(
		deps.Repos.Trip,
		deps.Repos.History,
		deps.TxManager,
		workflow.WithDispatcher(deps.Dispatcher),
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Engine     workflow.WorkflowEngine
	Dispatcher dispatcher.Dispatcher
	Policy     *access.Policy
	Allowance  perdiem.Config
	Auth       *AuthConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil || deps.TxManager == nil || deps.Engine == nil || deps.Policy == nil {
		return nil, fmt.Errorf("repositories, transaction manager, engine and policy are required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth config is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	tokens, err := auth.NewJWTIssuer(deps.Auth.JWTSecret, deps.Auth.Issuer, deps.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	tripOpts := []service.TripServiceOption{
		service.WithReportWriter(report.NewXLSXWriter(deps.Logger)),
	}
	if deps.Dispatcher != nil {
		tripOpts = append(tripOpts, service.WithTripDispatcher(deps.Dispatcher))
	}

	return &ServiceBundle{
		Auth: service.NewAuthService(
			deps.Repos.User,
			auth.NewBcryptHasher(deps.Auth.BcryptCost),
			tokens,
			deps.Policy,
			serviceLogger,
		),
		Trip: service.NewTripService(
			deps.Repos.Trip,
			deps.Repos.City,
			deps.Repos.History,
			deps.TxManager,
			deps.Engine,
			perdiem.NewCalculator(deps.Allowance),
			deps.Policy,
			serviceLogger,
			tripOpts...,
		),
		City: service.NewCityService(deps.Repos.City, deps.Policy, serviceLogger),
		User: service.NewUserService(deps.Repos.User, deps.Policy, serviceLogger),
	}, nil
}

// SubscriberDeps holds the optional event consumers.
type SubscriberDeps struct {
	Dispatcher dispatcher.Dispatcher
	Metrics    *metrics.Metrics
	Notifier   service.NotificationService
	Publisher  port.EventPublisher
}

// RegisterSubscribers attaches every configured consumer to all trip events.
func RegisterSubscribers(deps *SubscriberDeps) error {
	if deps == nil || deps.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}

	for _, t := range event.All() {
		if deps.Metrics != nil {
			deps.Dispatcher.SubscribeNamed(t, "metrics", deps.Metrics.HandleTripEvent)
		}
		if deps.Notifier != nil {
			deps.Dispatcher.SubscribeNamed(t, "lark_notifier", deps.Notifier.NotifyTripEvent)
		}
		if deps.Publisher != nil {
			deps.Dispatcher.SubscribeNamed(t, "rabbitmq_publisher", deps.Publisher.Publish)
		}
	}
	return nil
}

// ProvideLarkNotifier creates the review chat notifier, or nil when disabled.
func ProvideLarkNotifier(cfg *LarkConfig, users port.UserRepository, logger *zap.Logger) (service.NotificationService, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	sdk := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		BaseURL:   cfg.BaseURL,
	}, logger)

	messenger, err := infraLark.NewMessenger(sdk, cfg.ReceiveIDType, cfg.ReceiveID, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create lark messenger: %w", err)
	}

	logger.Info("Lark review notifications enabled", zap.String("receive_id_type", cfg.ReceiveIDType))
	return service.NewNotificationService(users, messenger, &zapLoggerAdapter{logger: logger}), nil
}

// ProvidePublisher creates the RabbitMQ publisher, or nil when disabled.
// The broker is dialed on first publish.
func ProvidePublisher(cfg *RabbitMQConfig, logger *zap.Logger) *messaging.RabbitMQPublisher {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	logger.Info("RabbitMQ event publishing enabled", zap.String("queue", cfg.Queue))
	return messaging.NewRabbitMQPublisher(cfg.URL, cfg.Queue, logger)
}

// ProvideMetrics creates the prometheus metrics, or nil when disabled.
func ProvideMetrics(cfg *MetricsConfig) *metrics.Metrics {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return metrics.NewMetrics(cfg.Namespace)
}
