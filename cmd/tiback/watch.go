package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	httpAdapter "github.com/tiback/tiback-client/internal/adapters/primary/http"
	mw "github.com/tiback/tiback-client/internal/adapters/primary/http/middleware"
	"github.com/tiback/tiback-client/internal/config"
	"github.com/tiback/tiback-client/internal/core/store"
)

// runWatch keeps the WebSocket session and caches current until the context
// is cancelled by SIGINT or SIGTERM.
func runWatch(ctx context.Context, a *app, _ []string) error {
	ctx, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	logger := a.logger.With("component", "watch")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Stop once the session is gone, whether by a failed refresh or logout.
	unsubscribe := a.store.Subscribe(func(_, next *store.State, _ store.Action) {
		if !next.Auth.IsAuthenticated {
			cancel()
		}
	})
	defer unsubscribe()

	if err := a.sync.ManualSync(ctx); err != nil {
		logger.Warn("real-time connection unavailable, polling", "error", err)
	}

	go a.sync.RunPolling(ctx)
	go keepTokenFresh(ctx, a)

	var srv *http.Server
	var limiter *mw.RateLimiter
	if a.cfg.Status.Enabled {
		limiter = mw.NewRateLimiter(syncLimiterConfig(a.cfg.Status))
		defer limiter.Stop()

		errorHandler := httpAdapter.NewErrorHandler(a.logger)
		router := httpAdapter.NewRouter(
			httpAdapter.RouterConfig{Logger: a.logger, AllowedOrigins: a.cfg.Status.AllowedOrigins},
			httpAdapter.NewHealthHandler(a.api, a.store, a.cfg.App.Version),
			httpAdapter.NewStatusHandler(a.store, a.sync, limiter, errorHandler, a.logger),
		)

		srv = &http.Server{
			Addr:         a.cfg.Status.Addr,
			Handler:      router,
			ReadTimeout:  a.cfg.Status.ReadTimeout,
			WriteTimeout: a.cfg.Status.WriteTimeout,
			BaseContext:  func(net.Listener) context.Context { return ctx },
		}

		go func() {
			logger.Info("status server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server error", "error", err)
				cancel()
			}
		}()
	}

	a.out.line("watching as %s; press Ctrl+C to stop", a.store.State().Auth.CurrentRole())
	<-ctx.Done()
	logger.Info("shutting down")

	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), a.cfg.Status.ShutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("status server shutdown error", "error", err)
		}
	}

	if !a.store.State().Auth.IsAuthenticated {
		return errors.New("session ended")
	}
	return nil
}

// syncLimiterConfig applies the configured POST /sync limits on top of the
// middleware defaults.
func syncLimiterConfig(status config.StatusConfig) mw.RateLimiterConfig {
	cfg := mw.SyncRateLimiterConfig()
	if status.SyncRPS > 0 {
		cfg.RequestsPerSecond = status.SyncRPS
	}
	if status.SyncBurst > 0 {
		cfg.BurstSize = status.SyncBurst
	}
	return cfg
}

// keepTokenFresh renews the access token ahead of expiry.
func keepTokenFresh(ctx context.Context, a *app) {
	window := a.cfg.Sync.RefreshWindow
	if window <= 0 {
		return
	}
	ticker := time.NewTicker(window / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.auth.RefreshIfExpiring(ctx, window)
		}
	}
}
