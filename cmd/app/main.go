package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nextflow/internal/auth"
	"nextflow/internal/cache"
	"nextflow/internal/config"
	"nextflow/internal/httpserver"
	"nextflow/internal/logging"
	"nextflow/internal/messaging"
	"nextflow/internal/metrics"
	"nextflow/internal/panel"
	"nextflow/internal/repo"
	"nextflow/internal/wa"
	"nextflow/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting nextflow", "env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	store, err := repo.Open(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, logger, metricRegistry)
	if err != nil {
		return fmt.Errorf("init record store: %w", err)
	}
	defer store.Close()

	if err := store.RunMigrations(ctx, migrations.Files); err != nil {
		return err
	}
	logger.Info("database migrated")

	authService := auth.New(store.Users(), logger)
	if cfg.SeedAdmin {
		if _, err := authService.EnsureAdmin(ctx, auth.Admin{
			Name:     cfg.AdminName,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		}); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	var panelCache panel.JSONCache
	if cfg.RedisAddr != "" {
		redisClient := cache.New(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			UseTLS:   cfg.RedisTLS,
			Prefix:   cfg.MetricsNamespace + ":",
		}, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed closing redis", "error", err)
			}
		}()
		if err := redisClient.Ping(ctx); err != nil {
			logger.Warn("redis ping failed, panel cache disabled", "error", err)
		} else {
			panelCache = redisClient
		}
	}

	panelClient := panel.New(panel.Config{
		BaseURL:   cfg.PanelBaseURL,
		Token:     cfg.PanelToken,
		Secret:    cfg.PanelSecret,
		Timeout:   cfg.PanelTimeout,
		CacheTTL:  cfg.PanelCacheTTL,
		RateLimit: cfg.PanelRateLimit,
	}, logger, metricRegistry, panelCache)

	var sender messaging.Sender
	if cfg.WhatsAppStorePath != "" {
		waClient, err := wa.New(ctx, wa.Config{
			StorePath: cfg.WhatsAppStorePath,
			LogLevel:  cfg.WhatsAppLogLevel,
			Metrics:   metricRegistry,
		}, logger)
		if err != nil {
			return fmt.Errorf("init whatsapp client: %w", err)
		}
		defer waClient.Close()

		waCtx, waCancel := context.WithCancel(ctx)
		defer waCancel()
		go func() {
			if err := waClient.Start(waCtx); err != nil {
				logger.Error("whatsapp client stopped", "error", err)
			}
		}()
		sender = waClient
	} else {
		logger.Info("whatsapp disabled, messages are recorded without delivery")
	}

	httpSrv := httpserver.New(cfg.HTTPListenAddr, cfg.APIBasePath, logger, metricRegistry, httpserver.Dependencies{
		Store:     store,
		Auth:      authService,
		Messaging: messaging.New(store, sender, logger, metricRegistry),
		Panel:     panelClient,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}
