package main

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

	"expiring-cache-api/internal/accounts"
	"expiring-cache-api/internal/auth"
	"expiring-cache-api/internal/cache"
	"expiring-cache-api/internal/config"
	"expiring-cache-api/internal/database"
	"expiring-cache-api/internal/handlers"
	"expiring-cache-api/internal/logging"
	"expiring-cache-api/internal/ratelimit"
	"expiring-cache-api/internal/realtime"
	"expiring-cache-api/internal/routes"
	"expiring-cache-api/internal/session"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func loadConfig(path, addr string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	return cfg, nil
}

func run(ctx context.Context, configPath, addr string) error {
	cfg, err := loadConfig(configPath, addr)
	if err != nil {
		return err
	}

	logger, level, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)
	if level.Level() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	scheduler := cache.NewDelayedScheduler(cache.SchedulerOptions{
		Workers:   cfg.Scheduler.Workers,
		QueueSize: cfg.Scheduler.QueueSize,
		Logger:    logger,
	})
	defer scheduler.Stop()

	db, err := database.InitDB(cfg.Database.Path)
	if err != nil {
		return err
	}

	directory, err := accounts.NewDirectory(db, accounts.Options{
		CacheTTL:     cfg.Accounts.CacheTTL,
		LoadAttempts: cfg.Accounts.LoadAttempts,
		Scheduler:    scheduler,
	})
	if err != nil {
		return err
	}
	sessions, err := session.NewStore(session.Options{TTL: cfg.Session.TTL, Scheduler: scheduler, Logger: logger})
	if err != nil {
		return err
	}
	limiter, err := ratelimit.NewCounterStore(cfg.RateLimit.Window, scheduler)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.MaxLifetime)
	if err != nil {
		return err
	}
	hub := realtime.GetHub()

	router := routes.SetupRoutes(routes.Deps{
		Handler: &handlers.Handler{
			Accounts: directory,
			Sessions: sessions,
			Tokens:   tokens,
			Hub:      hub,
			Logger:   logger,
		},
		RateLimiter: limiter,
		RateLimit:   cfg.RateLimit.Limit,
		Admins:      cfg.Auth.Admins,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var watcher *config.Watcher
	if configPath != "" {
		watcher, err = config.Watch(configPath, 0, onReload(logger, level, hub))
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if watcher != nil {
		g.Go(func() error {
			watcher.Run()
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return watcher.Stop()
		})
	}

	return g.Wait()
}

// onReload applies a changed configuration file. The log level changes in
// place; everything cached so far is dropped so that no entry outlives the
// settings it was produced under. Other settings take effect on restart.
func onReload(logger *slog.Logger, level *slog.LevelVar, hub *realtime.Hub) config.ReloadFunc {
	return func(cfg config.Config, err error) {
		if err != nil {
			logger.Warn("configuration reload failed", slog.String("error", err.Error()))
			return
		}
		if l, err := logging.ParseLevel(cfg.Log.Level); err == nil {
			level.Set(l)
		}
		epoch := cache.BumpGlobalEpoch()
		hub.BroadcastAll(realtime.Event{Type: realtime.EventCachesFlushed, Epoch: epoch, At: time.Now().UTC()}.Encode())
		logger.Info("configuration reloaded", slog.Uint64("epoch", epoch), slog.String("log_level", level.Level().String()))
	}
}
