package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"step26/internal/api"
	"step26/internal/auth"
	"step26/internal/config"
	"step26/internal/database"
	"step26/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg, err := config.Load(os.Getenv("STEP26_CONFIG"))
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.LogPath(),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}); err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}
	if err := auth.Configure(cfg.Auth); err != nil {
		logger.Fatal("Failed to configure auth", "error", err)
	}

	db, err := database.Initialize(cfg.DBPath, cfg.DBEncryptionKey)
	if err != nil {
		logger.Fatal("Failed to initialize database", "path", cfg.DBPath, "error", err)
	}
	defer db.Close()

	// Run migrations only if explicitly enabled (opt-in for safety)
	if cfg.RunMigrations {
		logger.Info("Running database migrations")
		if err := api.RunMigrations(db); err != nil {
			logger.Error("Migration failed", "error", err)
		}
	} else {
		logger.Info("Migrations skipped (set RUN_MIGRATIONS=true to enable)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workersDone := make(chan struct{})
	if cfg.EnableWorkers {
		go func() {
			defer close(workersDone)
			if err := api.RunWorkers(ctx, db, cfg); err != nil {
				logger.Error("Background workers exited", "error", err)
			}
		}()
	} else {
		close(workersDone)
		logger.Info("Background workers disabled (set ENABLE_WORKERS=true to enable)")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler,
		BodyLimit:    (cfg.MaxUploadMB + 1) * 1024 * 1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: logger.Output}))

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	logger.Info("CORS configured", "origins", allowedOrigins)
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		// Credentials (the refresh cookie) cannot be combined with a wildcard origin.
		AllowCredentials: allowedOrigins != "*",
	}))

	api.SetupRoutes(app, db, cfg)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}()

	logger.Info("Server starting", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped", "error", err)
	}
	stop()
	<-workersDone
}
