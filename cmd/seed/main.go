package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/config"
	"github.com/garyjia/perdin/internal/container"
	"github.com/garyjia/perdin/internal/seed"
	"github.com/garyjia/perdin/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	admin := seed.Admin{
		Name:     envOr("ADMIN_NAME", "Admin User"),
		Username: envOr("ADMIN_USERNAME", "admin"),
		Email:    os.Getenv("ADMIN_EMAIL"),
		Password: os.Getenv("ADMIN_PASSWORD"),
	}
	if admin.Email == "" || admin.Password == "" {
		logger.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	// outbound integrations are not needed for seeding
	cc := cfg.ToContainerConfig()
	cc.Lark.Enabled = false
	cc.RabbitMQ.Enabled = false
	cc.Metrics.Enabled = false

	ctx := context.Background()
	c, err := container.NewContainer(cc, logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer c.Close()

	services := c.Services()
	result, err := seed.Run(ctx, services.Auth, services.City, admin, logger)
	if err != nil {
		logger.Error("Seeding failed", zap.Error(err))
		return
	}

	fmt.Printf("admin created: %t, cities created: %d, cities skipped: %d\n",
		result.AdminCreated, result.CitiesCreated, result.CitiesSkipped)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
