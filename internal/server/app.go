// Package server wires the application together: configuration, database,
// migrations, services, the HTTP API, and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lexify-app/lexify-server/internal/logging"
	"github.com/lexify-app/lexify-server/internal/notify"
	"github.com/lexify-app/lexify-server/internal/server/activity"
	"github.com/lexify-app/lexify-server/internal/server/config"
	"github.com/lexify-app/lexify-server/internal/server/repositories/repomanager"
	"github.com/lexify-app/lexify-server/internal/server/rest"
	"github.com/lexify-app/lexify-server/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	tracker *activity.Tracker
	prefs   *services.PreferenceService
	api     *rest.API
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewDefault()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	// Activity tracking is optional: without Redis the server runs, the
	// admin dashboard just shows zero DAU/MAU.
	tracker, err := activity.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn(ctx, "activity tracking disabled", "error", err)
		tracker = nil
	}

	var notifier services.WelcomeNotifier
	if cfg.MailAPIKey != "" {
		mailer := notify.NewHTTPMailer(cfg.MailEndpoint, cfg.MailAPIKey, cfg.MailSender)
		notifier = notify.NewDispatcher(mailer, logger)
	}

	historySvc := services.NewHistoryService(db, rm, cfg, logger)
	userSvc := services.NewUserService(db, rm, cfg, notifier, logger)
	prefSvc := services.NewPreferenceService(db, rm)
	exportSvc := services.NewExportService(db, rm, cfg)

	var reader services.ActivityReader
	var toucher *activity.Tracker
	if tracker != nil {
		reader = tracker
		toucher = tracker
	}
	adminSvc := services.NewAdminService(db, rm, reader, logger)

	deps := rest.Deps{
		History:     historySvc,
		Users:       userSvc,
		Preferences: prefSvc,
		Admin:       adminSvc,
		Export:      exportSvc,
		JWTSecret:   []byte(cfg.SecretKey),
		Logger:      logger,
	}
	if toucher != nil {
		deps.Activity = toucher
	}

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		tracker: tracker,
		prefs:   prefSvc,
		api:     rest.NewAPI(deps),
	}, nil
}

// Run serves HTTP until the context is cancelled or a termination signal
// arrives, then drains in-flight requests.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigs)

	go func() {
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.api,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}

	app.close()
	return nil
}

func (app *App) close() {
	app.prefs.Close()
	if app.tracker != nil {
		if err := app.tracker.Close(); err != nil {
			app.logger.Error(context.Background(), "closing redis", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "closing db", "error", err)
	}
}
