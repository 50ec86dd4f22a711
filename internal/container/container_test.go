package container

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/application/dispatcher"
	"github.com/garyjia/perdin/internal/application/service"
	"github.com/garyjia/perdin/internal/domain/entity"
	"github.com/garyjia/perdin/internal/domain/event"
	"github.com/garyjia/perdin/internal/infrastructure/metrics"
)

func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "container.db")
	cfg.Auth.JWTSecret = "container-test-secret"
	cfg.Auth.BcryptCost = 4
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"lark without receiver", func(c *Config) {
			c.Lark.Enabled = true
			c.Lark.AppID = "cli_x"
			c.Lark.AppSecret = "s"
		}, "lark.receive_id"},
		{"redis without addr", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}, "redis.addr"},
		{"empty roles", func(c *Config) { c.Roles = nil }, "authorization"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, c.Ready())

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx))

	services := c.Services()
	require.NotNil(t, services)
	user, created, err := services.Auth.EnsureUser(ctx, service.RegisterInput{
		Name: "Admin", Username: "admin", Email: "admin@example.com", Password: "password123",
	}, entity.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, entity.RoleAdmin, user.Role)

	health := c.Health(ctx)
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.NoError(t, c.HealthCheck(ctx))

	// metrics are on by default and subscribed to every trip event
	require.NotNil(t, c.Metrics())
	for _, tp := range event.All() {
		handlers := c.Dispatcher().ListHandlers(tp)
		require.Len(t, handlers, 1)
		assert.Equal(t, "metrics", handlers[0].Name)
	}

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(ctx))
	assert.False(t, c.Health(ctx).Overall)
}

func TestNewContainer_RejectsInvalidConfig(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Auth.JWTSecret = ""
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

type recordingPublisher struct{ events []*event.Event }

func (p *recordingPublisher) Publish(_ context.Context, evt *event.Event) error {
	p.events = append(p.events, evt)
	return nil
}

func TestRegisterSubscribers(t *testing.T) {
	disp := dispatcher.NewDispatcher()
	pub := &recordingPublisher{}

	require.NoError(t, RegisterSubscribers(&SubscriberDeps{
		Dispatcher: disp,
		Metrics:    metrics.NewMetrics("test"),
		Publisher:  pub,
	}))

	handlers := disp.ListHandlers(event.TypeTripApproved)
	require.Len(t, handlers, 2)
	assert.Equal(t, "metrics", handlers[0].Name)
	assert.Equal(t, "rabbitmq_publisher", handlers[1].Name)

	evt := event.NewEvent(event.TypeTripApproved, 1, 2, nil)
	require.NoError(t, disp.Dispatch(context.Background(), evt))
	require.Len(t, pub.events, 1)
	assert.Equal(t, evt.ID, pub.events[0].ID)

	assert.Error(t, RegisterSubscribers(&SubscriberDeps{}))
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("a", 1, 2, "skipped", "b")
	require.Len(t, fields, 1)
	assert.Equal(t, "a", fields[0].Key)
}
