// cmd/gateway-service/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portalgate/internal/gateway"
	"portalgate/pkg/config"
	"portalgate/pkg/db"
	"portalgate/pkg/logger"
	"portalgate/pkg/middleware"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		cancel()
		log.Fatalw("postgres", "err", err)
	}
	if pool != nil {
		defer pool.Close()
	}
	rdb, err := db.ConnectRedis(ctx, cfg, log)
	if err != nil {
		cancel()
		log.Fatalw("redis", "err", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	app, err := gateway.New(ctx, cfg, log, pool, rdb)
	cancel()
	if err != nil {
		log.Fatalw("startup", "err", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("gateway-service listening", "addr", cfg.HTTPAddr, "env", cfg.Env, "portal", cfg.PortalAuthServer)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
	_ = middleware.ShutdownTracing(shutdownCtx)
	log.Infow("gateway-service stopped")
}
