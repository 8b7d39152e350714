package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/homefind/usersvc/internal/app"
	"github.com/homefind/usersvc/internal/auth"
	"github.com/homefind/usersvc/internal/events"
	"github.com/homefind/usersvc/internal/platform/db"
	"github.com/homefind/usersvc/internal/token"
	"github.com/homefind/usersvc/internal/users"
	"github.com/homefind/usersvc/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	publisher := events.NewAsyncPublisher(events.AsyncPublisherConfig{
		Enqueuer:  jobsClient,
		Logger:    logger,
		QueueSize: cfg.EventsQueueSize,
		Timeout:   cfg.EventsPublishTimeout,
	})
	defer publisher.Close()

	verifier := token.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.GoogleAudience)
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, publisher, logger, cfg.AllowSelfRegister)
	usersHandler := users.NewHandler(logger, usersService,
		token.RequireAuth(verifier, logger), token.OptionalAuth(verifier, logger))

	authService := auth.NewService(usersRepo, issuer)
	authHandler := auth.NewHandler(logger, authService)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  authHandler,
		UsersHandler: usersHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
