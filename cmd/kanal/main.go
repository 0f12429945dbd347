package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rx3lixir/kanal/internal/config"
	"github.com/rx3lixir/kanal/internal/db"
	"github.com/rx3lixir/kanal/internal/email"
	"github.com/rx3lixir/kanal/internal/httpserver"
	"github.com/rx3lixir/kanal/internal/presence"
	"github.com/rx3lixir/kanal/pkg/jwt"
	"github.com/rx3lixir/kanal/pkg/s3storage"
)

const tokenTTL = 60 * time.Minute

func main() {
	// Setting up logger
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
		Level:           log.DebugLevel,
	})

	// Initializing global context instance
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initializing config manager
	cm, err := config.NewConfigManager("internal/config/config.yaml")
	if err != nil {
		logger.Error("Error getting config file", "error", err)
		os.Exit(1)
	}

	c := cm.GetConfig()

	// Validating configuration
	if err := c.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info(
		"Configuration loaded",
		"env", c.GeneralParams.Env,
		"http_addr", c.GeneralParams.HTTPaddress,
		"database", c.MainDBParams.Name,
		"cache", c.CacheParams.Host,
	)

	// Creating database connection pool
	pool, err := db.CreatePostgresPool(ctx, c.MainDBParams.GetDSN())
	if err != nil {
		logger.Error(
			"Failed to create postgres pool",
			"error", err,
			"db", c.MainDBParams.Name,
		)
		os.Exit(1)
	}
	defer pool.Close()

	// Applying schema migrations
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}

	logger.Info("Database connection established", "db", c.MainDBParams.Name)

	// Creates database store
	store := db.NewPostgresStore(pool)

	// Initializing JWT service
	jwtService := jwt.NewService(c.GeneralParams.SecretKey, tokenTTL)

	logger.Info("JWT service initialized")

	// Initialize presence cache
	presenceManager, err := presence.NewManager(
		c.CacheParams.Host,
		c.CacheParams.Password,
	)
	if err != nil {
		logger.Error("Failed to create presence manager", "error", err)
		os.Exit(1)
	}
	defer presenceManager.Close()

	logger.Info("Presence cache initialized")

	// Initialize mail sender
	mailSender := email.NewSender(
		c.SMTPParams.Host,
		c.SMTPParams.Port,
		c.SMTPParams.Username,
		c.SMTPParams.Password,
		c.SMTPParams.From,
		c.GeneralParams.BaseURL,
		logger,
	)

	// Initialize S3 client for attachments
	s3Client, err := s3storage.NewMinIOClient(
		c.S3Params.Endpoint,
		c.S3Params.AccessKeyID,
		c.S3Params.SecretAccessKey,
		c.S3Params.BucketName,
		c.S3Params.UseSSL,
	)
	if err != nil {
		logger.Error("Failed to create S3 client", "error", err)
		os.Exit(1)
	}

	logger.Info("S3 storage client initialized", "bucket", c.S3Params.BucketName)

	// Creates HTTP server
	server := httpserver.New(
		c.GeneralParams.HTTPaddress,
		store,
		jwtService,
		presenceManager,
		mailSender,
		s3Client,
		logger,
	)

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the HTTP server in a goroutine
	go func() {
		serverErrors <- server.Start()
	}()

	logger.Info("Server started successfully", "addr", c.GeneralParams.HTTPaddress)

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or error
	select {
	case err := <-serverErrors:
		logger.Error("Server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig)

		// Give outstanding requests 10s to complete
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("Shutting down HTTP server...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}

		logger.Info("Server stopped gracefully")
	}
}
