package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avelazco/labstock-backend/internal/components"
	"github.com/avelazco/labstock-backend/internal/cron"
	"github.com/avelazco/labstock-backend/internal/notifications"
	"github.com/avelazco/labstock-backend/internal/scanner"
	"github.com/avelazco/labstock-backend/internal/users"
	"github.com/avelazco/labstock-backend/pkg/config"
	"github.com/avelazco/labstock-backend/pkg/db"
	"github.com/avelazco/labstock-backend/pkg/logger"
	"github.com/avelazco/labstock-backend/pkg/mailer"
	"github.com/avelazco/labstock-backend/pkg/metrics"
	"github.com/avelazco/labstock-backend/pkg/migrate"
	"github.com/avelazco/labstock-backend/pkg/redis"
)

const (
	scanLockKeyFormat    = "ls:scanner-worker:lock:%s"
	cleanupLockKeyFormat = "ls:scanner-worker:cleanup-lock:%s"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "scanner-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "scanner-worker"

	logg = logger.New(logger.Options{
		ServiceName: "scanner-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	location, err := time.LoadLocation(cfg.Scanner.Timezone)
	if err != nil {
		logg.Error(context.Background(), "invalid scanner timezone", err)
		os.Exit(1)
	}

	componentsRepo := components.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	stockScanner, err := scanner.New(scanner.Params{
		Logger:        logg,
		Components:    componentsRepo,
		Notifications: notificationsRepo,
		Admins:        usersRepo,
		Mailer:        mailer.New(cfg.SMTP, logg),
		StaleAfter:    time.Duration(cfg.Scanner.StaleAfterDays) * 24 * time.Hour,
		DedupWindow:   cfg.Scanner.LowStockDedup,
		Location:      location,
		DisableEmail:  cfg.Scanner.DisableEmail || !cfg.SMTP.Enabled(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock scanner", err)
		os.Exit(1)
	}

	lowStockJob, err := cron.NewLowStockScanJob(stockScanner)
	if err != nil {
		logg.Error(context.Background(), "failed to create low stock job", err)
		os.Exit(1)
	}
	staleStockJob, err := cron.NewStaleStockScanJob(stockScanner)
	if err != nil {
		logg.Error(context.Background(), "failed to create stale stock job", err)
		os.Exit(1)
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	scanLock, err := cron.NewRedisLock(redisClient, lockKey(scanLockKeyFormat, cfg.App.Env), cfg.Scanner.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create scan lock", err)
		os.Exit(1)
	}
	cleanupLock, err := cron.NewRedisLock(redisClient, lockKey(cleanupLockKeyFormat, cfg.App.Env), cfg.Scanner.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup lock", err)
		os.Exit(1)
	}

	scanService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(lowStockJob, staleStockJob),
		Lock:     scanLock,
		Metrics:  metricsCollector,
		Interval: cfg.Scanner.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scan service", err)
		os.Exit(1)
	}
	cleanupService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(cleanupJob),
		Lock:     cleanupLock,
		Metrics:  metricsCollector,
		Interval: cfg.Scanner.CleanupInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting scanner worker")

	errCh := make(chan error, 2)
	go func() { errCh <- scanService.Run(ctx) }()
	go func() { errCh <- cleanupService.Run(ctx) }()

	failed := false
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "scanner worker loop stopped unexpectedly", err)
			failed = true
			stop()
		}
	}
	if failed {
		os.Exit(1)
	}

	logg.Info(ctx, "scanner worker shutting down gracefully")
}

func lockKey(format, env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(format, env)
}
