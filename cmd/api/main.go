package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vasheegaran/ExpenseTrack/internal/config"
	"github.com/Vasheegaran/ExpenseTrack/internal/database"
	"github.com/Vasheegaran/ExpenseTrack/internal/logger"
	"github.com/Vasheegaran/ExpenseTrack/internal/middleware"
	"github.com/Vasheegaran/ExpenseTrack/internal/router"
	"github.com/Vasheegaran/ExpenseTrack/internal/validator"
)

const shutdownTimeout = 10 * time.Second

// @title           ExpenseTrack API
// @version         1.0
// @description     ExpenseTrack records personal expenses per user, summarises spending by category and exports the ledger.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	svc := router.NewServices(dbManager.DB(), appConfig.SessionTTL)
	tokens := middleware.NewSessionTokens(appConfig.SessionSecret, appConfig.SessionCookie, appConfig.CookieSecure)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router.New(svc, tokens, dbManager),
		ReadTimeout:       appConfig.ReadTimeout,
		ReadHeaderTimeout: appConfig.ReadTimeout,
		WriteTimeout:      appConfig.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Starting ExpenseTrack server on port %s (db driver %s)", appConfig.Port, appConfig.DBDriver)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
