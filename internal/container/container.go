package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/application/dispatcher"
	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/application/service"
	"github.com/garyjia/perdin/internal/application/workflow"
	"github.com/garyjia/perdin/internal/domain/access"
	"github.com/garyjia/perdin/internal/infrastructure/messaging"
	"github.com/garyjia/perdin/internal/infrastructure/metrics"
	"github.com/garyjia/perdin/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/perdin/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database     *database.DB
	db           *sqlite.DB
	redis        *redis.Client
	repositories *RepositoryBundle

	// Infrastructure - Outbound
	publisher *messaging.RabbitMQPublisher
	notifier  service.NotificationService
	metrics   *metrics.Metrics

	// Application
	policy     *access.Policy
	dispatcher dispatcher.Dispatcher
	workflow   workflow.WorkflowEngine
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	City    port.CityRepository
	Trip    port.TripRepository
	User    port.UserRepository
	History port.HistoryRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Auth service.AuthService
	Trip service.TripService
	City service.CityService
	User service.UserService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database, cache and repositories
// 2. Access policy
// 3. Event dispatcher and workflow engine
// 4. Application services
// 5. Event subscribers (metrics, Lark, RabbitMQ)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(ctx); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	policy, err := ProvidePolicy(c.config.Roles)
	if err != nil {
		c.teardown()
		return err
	}
	c.policy = policy

	if err := c.initDispatcherAndWorkflow(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize dispatcher and workflow: %w", err)
	}
	c.logger.Info("Dispatcher and workflow engine initialized")

	if err := c.initServices(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.initSubscribers(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize subscribers: %w", err)
	}
	c.logger.Info("Event subscribers registered")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever has been initialized. Callers hold c.mu.
func (c *Container) teardown() []error {
	var errs []error

	// Dispatcher first so in-flight handlers finish before their targets close
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ publisher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
		c.publisher = nil
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Error("Failed to close redis", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		c.redis = nil
	}

	if c.database != nil {
		if err := c.database.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.database = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.database != nil {
		if err := c.database.PingContext(ctx); err != nil {
			status.set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			status.set("database", true, "")
		}
	} else {
		status.set("database", false, "not initialized")
	}

	if c.redis != nil {
		if err := c.redis.Ping(ctx).Err(); err != nil {
			// reads fall back to the database, so this does not fail the check
			status.Components["redis"] = ComponentHealth{Healthy: false, Message: err.Error()}
		} else {
			status.Components["redis"] = ComponentHealth{Healthy: true}
		}
	}

	if c.dispatcher != nil {
		status.set("dispatcher", true, "")
	} else {
		status.set("dispatcher", false, "not initialized")
	}

	return status
}

func (s *HealthStatus) set(name string, healthy bool, msg string) {
	s.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
	if !healthy {
		s.Overall = false
	}
}

// HealthCheck reports an error when any required component is unhealthy.
func (c *Container) HealthCheck(ctx context.Context) error {
	status := c.Health(ctx)
	if status.Overall {
		return nil
	}
	for name, comp := range status.Components {
		if !comp.Healthy && name != "redis" {
			return fmt.Errorf("%s: %s", name, comp.Message)
		}
	}
	return fmt.Errorf("unhealthy")
}

// initDatabase opens the database, the optional city cache and the repositories.
func (c *Container) initDatabase(ctx context.Context) error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = dbBundle.DB
	c.db = dbBundle.TransactionMgr

	client, cityCache, err := ProvideRedis(ctx, &c.config.Redis, c.logger)
	if err != nil {
		// the cache is optional; serve from the database alone
		c.logger.Error("Redis unavailable, city cache disabled", zap.Error(err))
		client, cityCache = nil, nil
	}
	c.redis = client

	repos, err := ProvideRepositories(c.database, cityCache, c.logger)
	if err != nil {
		return err
	}
	c.repositories = repos
	return nil
}

// initDispatcherAndWorkflow initializes the event dispatcher and workflow engine.
func (c *Container) initDispatcherAndWorkflow() error {
	disp, err := ProvideDispatcher(&c.config.Events, c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Dispatcher: c.dispatcher,
	})
	if err != nil {
		return err
	}
	c.workflow = engine
	return nil
}

// initServices initializes all application services.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Engine:     c.workflow,
		Dispatcher: c.dispatcher,
		Policy:     c.policy,
		Allowance:  c.config.Allowance,
		Auth:       &c.config.Auth,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// initSubscribers creates the optional outbound integrations and subscribes them.
func (c *Container) initSubscribers() error {
	c.metrics = ProvideMetrics(&c.config.Metrics)

	notifier, err := ProvideLarkNotifier(&c.config.Lark, c.repositories.User, c.logger)
	if err != nil {
		return err
	}
	c.notifier = notifier

	c.publisher = ProvidePublisher(&c.config.RabbitMQ, c.logger)

	deps := &SubscriberDeps{
		Dispatcher: c.dispatcher,
		Metrics:    c.metrics,
		Notifier:   c.notifier,
	}
	if c.publisher != nil {
		deps.Publisher = c.publisher
	}
	return RegisterSubscribers(deps)
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Policy returns the capability policy.
func (c *Container) Policy() *access.Policy {
	return c.policy
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// WorkflowEngine returns the workflow engine.
func (c *Container) WorkflowEngine() workflow.WorkflowEngine {
	return c.workflow
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Metrics returns the prometheus metrics, nil when disabled.
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces of
// the application and interface layers.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

// NewLoggerAdapter wraps logger for packages that log with key-value pairs.
func NewLoggerAdapter(logger *zap.Logger) *zapLoggerAdapter {
	return &zapLoggerAdapter{logger: logger}
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
