package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/container"
	"github.com/garyjia/perdin/internal/domain/entity"
)

func TestReferenceCities(t *testing.T) {
	cities := ReferenceCities()
	require.Len(t, cities, 15)

	foreign := 0
	names := make(map[string]bool)
	for _, c := range cities {
		require.NotNil(t, c.Latitude)
		require.NotNil(t, c.Longitude)
		assert.False(t, names[c.Name], "duplicate %s", c.Name)
		names[c.Name] = true
		if c.Foreign {
			foreign++
		}
	}
	assert.Equal(t, 7, foreign)
}

func TestRun_Idempotent(t *testing.T) {
	cfg := container.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "seed.db")
	cfg.Auth.JWTSecret = "seed-test-secret-value"
	cfg.Auth.BcryptCost = 4
	cfg.Metrics.Enabled = false

	c, err := container.NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	services := c.Services()
	admin := Admin{Name: "Admin User", Username: "admin", Email: "admin@example.com", Password: "password123"}

	first, err := Run(ctx, services.Auth, services.City, admin, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, first.AdminCreated)
	assert.Equal(t, 15, first.CitiesCreated)

	second, err := Run(ctx, services.Auth, services.City, admin, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, second.AdminCreated)
	assert.Equal(t, 0, second.CitiesCreated)
	assert.Equal(t, 15, second.CitiesSkipped)

	login, err := services.Auth.Login(ctx, "admin@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, login.User.Role)
}
