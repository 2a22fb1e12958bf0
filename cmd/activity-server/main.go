// cmd/activity-server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"activity-signups/internal/api"
	awsclient "activity-signups/internal/common/aws"
	"activity-signups/internal/common/config"
	"activity-signups/internal/common/database"
	"activity-signups/internal/common/logger"
	"activity-signups/internal/common/observability"
	"activity-signups/internal/notify"
	"activity-signups/internal/registry"
	"activity-signups/internal/service"
	"activity-signups/pkg/catalog"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

func main() {
	configPath := flag.String("config", "", "Path to a config file (defaults to configs/config.yaml)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting activity server...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		TracingEnabled: cfg.Observability.Tracing.Enabled,
		JaegerEndpoint: cfg.Observability.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Observability.Tracing.SampleRatio,
	})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	// --- Registry ---
	cat, err := loadCatalog(cfg.Registry.CatalogPath)
	if err != nil {
		zapLog.Fatal("catalog load failed", zap.String("path", cfg.Registry.CatalogPath), zap.Error(err))
	}
	reg, err := registry.New(cat, registry.Options{EnforceCapacity: cfg.Registry.EnforceCapacity})
	if err != nil {
		zapLog.Fatal("registry init failed", zap.Error(err))
	}
	zapLog.Info("Activity registry loaded",
		zap.Int("activities", len(cat.Activities)),
		zap.Bool("enforceCapacity", cfg.Registry.EnforceCapacity),
	)

	ctx := context.Background()
	checks := map[string]api.ReadinessCheck{}
	var notifiers []notify.Notifier

	// --- Redis roster channel ---
	if cfg.Notifications.Redis.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = rdb.Ping
		notifiers = append(notifiers, notify.NewRedisPublisher(rdb.Client, cfg.Notifications.Redis.Channel))
		zapLog.Info("Redis connected successfully")
	}

	// --- PostgreSQL audit trail ---
	if cfg.Notifications.Audit.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		audit, err := notify.NewAuditLog(pg.DB, cfg.Notifications.Audit.Table)
		if err != nil {
			zapLog.Fatal("audit log init failed", zap.Error(err))
		}
		if err := audit.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("audit schema init failed", zap.Error(err))
		}
		checks["postgres"] = pg.Ping
		notifiers = append(notifiers, audit)
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Elasticsearch roster index ---
	if cfg.Notifications.Search.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return esClient.Ping(pingCtx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		checks["elasticsearch"] = esClient.Ping
		notifiers = append(notifiers, notify.NewSearchIndexer(esClient.Client, cfg.Notifications.Search.Index))
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- AWS SES / SNS ---
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SNS.Enabled {
		awsCfg, err := awsclient.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		if cfg.Notifications.Email.Enabled {
			notifiers = append(notifiers, notify.NewEmailConfirmer(awsclient.NewSESClient(awsCfg), cfg.Notifications.Email.FromEmail))
		}
		if cfg.Notifications.SNS.Enabled {
			notifiers = append(notifiers, notify.NewTopicPublisher(awsclient.NewSNSClient(awsCfg), cfg.Notifications.SNS.TopicARN))
		}
		zapLog.Info("AWS clients initialized", zap.String("region", cfg.Notifications.AWS.Region))
	}

	fanout := notify.NewFanout(log, config.GetDuration(cfg.Notifications.Timeout), notifiers...)
	zapLog.Info("Roster notifiers registered", zap.Int("count", fanout.Len()))

	svc := service.New(service.Dependencies{
		Registry:      reg,
		Dispatcher:    fanout,
		Observability: obs,
		Logger:        log,
	})

	// --- HTTP Server ---
	srv := &http.Server{
		Addr: cfg.Server.Address,
		Handler: api.NewRouter(api.Dependencies{
			Service:       svc,
			Logger:        log,
			Observability: obs,
			Checks:        checks,
			StaticDir:     cfg.Server.StaticDir,
		}),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	serverErr := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLog.Info("Shutdown signal received, draining requests...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		zapLog.Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down observability", zap.Error(err))
	}

	zapLog.Info("Activity server stopped gracefully")
}
