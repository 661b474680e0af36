package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/avelazco/labstock-backend/api/routes"
	"github.com/avelazco/labstock-backend/internal/analytics"
	"github.com/avelazco/labstock-backend/internal/components"
	"github.com/avelazco/labstock-backend/internal/export"
	"github.com/avelazco/labstock-backend/internal/notifications"
	"github.com/avelazco/labstock-backend/internal/scanner"
	"github.com/avelazco/labstock-backend/internal/stocklog"
	"github.com/avelazco/labstock-backend/internal/users"
	"github.com/avelazco/labstock-backend/pkg/config"
	"github.com/avelazco/labstock-backend/pkg/db"
	"github.com/avelazco/labstock-backend/pkg/logger"
	"github.com/avelazco/labstock-backend/pkg/mailer"
	"github.com/avelazco/labstock-backend/pkg/migrate"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	location, err := time.LoadLocation(cfg.Scanner.Timezone)
	if err != nil {
		logg.Error(context.Background(), "invalid scanner timezone", err)
		os.Exit(1)
	}

	componentsRepo := components.NewRepository(dbClient.DB())
	logsRepo := stocklog.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	componentsService, err := components.NewService(dbClient, componentsRepo, logsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create components service", err)
		os.Exit(1)
	}
	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}
	analyticsService, err := analytics.NewService(analytics.NewRepository(dbClient.DB()), componentsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}
	exportService, err := export.NewService(componentsRepo, logsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create export service", err)
		os.Exit(1)
	}

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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Users:         usersRepo,
			Components:    componentsService,
			Notifications: notificationsService,
			Analytics:     analyticsService,
			Export:        exportService,
			Scanner:       stockScanner,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
