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

	"github.com/districthq/districthq/internal/app"
	"github.com/districthq/districthq/internal/audit"
	audithttp "github.com/districthq/districthq/internal/audit/http"
	"github.com/districthq/districthq/internal/auth"
	"github.com/districthq/districthq/internal/authz"
	"github.com/districthq/districthq/internal/fieldacl"
	"github.com/districthq/districthq/internal/observability"
	"github.com/districthq/districthq/internal/platform/cache"
	"github.com/districthq/districthq/internal/platform/db"
	"github.com/districthq/districthq/internal/rbac"
	"github.com/districthq/districthq/internal/shared"
	"github.com/districthq/districthq/internal/users"
	"github.com/districthq/districthq/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()

	roleStore := rbac.NewPGStore(pool)
	registry, err := rbac.NewRegistry(ctx, roleStore, logger)
	if err != nil {
		logger.Error("load role snapshot", slog.Any("error", err))
		os.Exit(1)
	}
	evaluator := rbac.NewEvaluator(registry, logger)

	auditStore := audit.NewPGStore(pool)
	failureWindow := audit.NewFailureWindow(redisClient, cfg.AuditFailureWindow)
	recorder := audit.NewRecorder(auditStore, failureWindow, logger, metrics.Registerer(), audit.RecorderOptions{
		QueueSize:    cfg.AuditQueueSize,
		WriteTimeout: cfg.AuditWriteTimeout,
	})
	defer recorder.Close()
	auditService := audit.NewService(auditStore)

	usersRepo := users.NewPGRepository(pool)
	gate := authz.NewGate(evaluator, usersRepo, recorder, logger)

	controller := fieldacl.NewController(fieldacl.DefaultRuleset(), evaluator)
	usersService := users.NewService(usersRepo, controller, logger)
	usersHandler := users.NewHandler(logger, usersService, recorder)

	authRepo := auth.NewPGRepository(pool)
	authService := auth.NewService(authRepo, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager, recorder)

	rolesHandler := rbac.NewHandler(logger, registry, roleStore, recorder)
	auditHandler := audithttp.NewHandler(logger, auditService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		Metrics:        metrics,
		Gate:           gate,
		AuthHandler:    authHandler,
		UsersHandler:   usersHandler,
		RolesHandler:   rolesHandler,
		AuditHandler:   auditHandler,
		JobsHandler:    jobsHandler,
		Pool:           pool,
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
