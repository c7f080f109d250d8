package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"portfolio-cms/internal/auth"
	"portfolio-cms/internal/config"
	"portfolio-cms/internal/database"
	"portfolio-cms/internal/entity"
	"portfolio-cms/internal/event"
	"portfolio-cms/internal/handler"
	"portfolio-cms/internal/lock"
	"portfolio-cms/internal/metrics"
	"portfolio-cms/internal/middleware"
	"portfolio-cms/internal/model"
	"portfolio-cms/internal/repository"
	"portfolio-cms/internal/router"
	"portfolio-cms/internal/service"
	"portfolio-cms/internal/websocket"
)

type App struct {
	server       *http.Server
	stop         context.CancelFunc
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{stop: cancel}

	if err := a.build(ctx, cfg); err != nil {
		a.cleanup()
		return nil, err
	}

	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config) error {
	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	registry, err := entity.NewPostgresRegistry(pool)
	if err != nil {
		return fmt.Errorf("failed to build entity registry: %w", err)
	}
	trashRepo := repository.NewTrashRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	sweepRepo := repository.NewSweepRepository(pool)
	txManager := database.NewTxManager(pool)
	slog.Info("database ready", "entity_types", len(registry.Tags()))

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize token verifier: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	locker, err := a.newLocker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize sweep lock: %w", err)
	}

	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.New()
	}

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go hub.Run(ctx)

	auditService := service.NewAuditService(auditRepo)
	trashService := service.NewTrashService(trashRepo, txManager, registry, bus, auditService, recorder, cfg.TrashRetention)
	entityService := service.NewEntityService(registry)
	sweeper := service.NewSweeper(trashService, sweepRepo, locker, cfg.SweepLockTTL, cfg.SweepInterval, bus, auditService, recorder)

	if cfg.SweepEnabled {
		go sweeper.Start(ctx)
	} else {
		slog.Warn("expiry sweeper disabled; expired trash is only purged via POST /api/v1/trash/cleanup")
	}

	wsHandler := websocket.NewHandler(hub, cfg.CORSOrigins, func(r *http.Request) string {
		if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
			return claims.UserID
		}
		return ""
	})

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Health: handler.NewHealthHandler(db),
		Trash:  handler.NewTrashHandler(trashService, sweeper),
		Entity: handler.NewEntityHandler(entityService, trashService),
		Audit:  handler.NewAuditHandler(auditService),
		Docs:   handler.NewDocsHandler(),
	}, wsHandler, recorder)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return nil
}

type tokenVerifier interface {
	ValidateToken(tokenString string) (*model.AuthClaims, error)
}

func newVerifier(ctx context.Context, cfg *config.Config) (tokenVerifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeHMAC:
		slog.Warn("using shared-secret token verification; do not run this mode in production")
		return auth.NewHMACVerifier(cfg.AuthHMACSecret, auth.LocalIssuer)
	default:
		slog.Info("using Cognito token verification", "jwks_url", cfg.CognitoJWKSURL)
		return auth.NewCognitoVerifier(ctx, cfg.CognitoJWKSURL, cfg.CognitoIssuer(), cfg.CognitoClientID)
	}
}

// newLocker returns a Redis lock when REDIS_URL is set so only one replica
// sweeps at a time; a single instance falls back to an in-process lock.
func (a *App) newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, error) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set; sweep lock is process-local")
		return lock.NewLocalLock(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	a.cleanupFuncs = append(a.cleanupFuncs, func() {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	slog.Info("redis ready; sweep lock is distributed")
	return lock.NewRedisLock(client), nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

// cleanup stops the sweeper and hub, then releases clients in reverse
// registration order.
func (a *App) cleanup() {
	a.stop()
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
}
