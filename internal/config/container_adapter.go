package config

import (
	"errors"
	"io/fs"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/garyjia/perdin/internal/container"
	"github.com/garyjia/perdin/internal/domain/access"
	"github.com/garyjia/perdin/internal/domain/perdiem"
	"github.com/garyjia/perdin/internal/interfaces/http"
)

// ToContainerConfig converts the application Config to a container.Config.
// It expects a validated Config.
func (c *Config) ToContainerConfig() *container.Config {
	roles := make(map[string][]access.Capability, len(c.Authorization.Roles))
	for _, r := range c.Authorization.Roles {
		caps := make([]access.Capability, 0, len(r.Capabilities))
		for _, name := range r.Capabilities {
			caps = append(caps, access.Capability(name))
		}
		roles[r.Name] = caps
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Auth: container.AuthConfig{
			JWTSecret:  c.Auth.JWTSecret,
			Issuer:     c.Auth.Issuer,
			TokenTTL:   c.Auth.TokenTTL,
			BcryptCost: c.Auth.BcryptCost,
		},
		Allowance: c.Allowance.toPerdiem(),
		Roles:     roles,
		Redis: container.RedisConfig{
			Enabled:  c.Redis.Enabled,
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
			TTL:      c.Redis.TTL,
		},
		RabbitMQ: container.RabbitMQConfig{
			Enabled: c.RabbitMQ.Enabled,
			URL:     c.RabbitMQ.URL,
			Queue:   c.RabbitMQ.Queue,
		},
		Lark: container.LarkConfig{
			Enabled:       c.Lark.Enabled,
			AppID:         c.Lark.AppID,
			AppSecret:     c.Lark.AppSecret,
			BaseURL:       c.Lark.BaseURL,
			ReceiveIDType: c.Lark.ReceiveIDType,
			ReceiveID:     c.Lark.ReceiveID,
		},
		Metrics: container.MetricsConfig{
			Enabled:   c.Metrics.Enabled,
			Namespace: c.Metrics.Namespace,
		},
		Events: container.EventsConfig{
			AsyncTimeout: c.Events.AsyncTimeout,
		},
	}
}

// ToServerConfig converts the server section for the HTTP adapter.
func (c *Config) ToServerConfig(version string) http.ServerConfig {
	return http.ServerConfig{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
		Version:         version,
	}
}

func (a AllowanceConfig) toPerdiem() perdiem.Config {
	return perdiem.Config{
		USDToLocalRate:     parseAmount(a.USDToLocalRate),
		RateVersion:        a.RateVersion,
		ForeignUSDPerDay:   parseAmount(a.ForeignUSDPerDay),
		DayTripMaxKm:       a.DayTripMaxKm,
		SameProvincePerDay: parseAmount(a.SameProvincePerDay),
		SameIslandPerDay:   parseAmount(a.SameIslandPerDay),
		InterIslandPerDay:  parseAmount(a.InterIslandPerDay),
	}
}

// parseAmount returns zero for malformed input; Validate reports those first
func parseAmount(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if errors.As(err, target) {
		return true
	}
	// SetConfigFile reports a missing explicit path as a filesystem error
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}
