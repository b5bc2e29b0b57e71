package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/cache"
	"github.com/TharinduDesh/incidenthub/internal/config"
	"github.com/TharinduDesh/incidenthub/internal/db"
	httpx "github.com/TharinduDesh/incidenthub/internal/http"
	"github.com/TharinduDesh/incidenthub/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	// .env is a dev convenience, absence is fine
	_ = godotenv.Load()

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "incidenthub-api", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		cctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(cctx)
	}()

	if err := db.RunMigrations(ctx, cfg.DBURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.EnsureAdminUser(ctx, pool, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	var cacheStore cache.Store
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCache.Close()

		pingCtx, cancel := config.WithTimeout(2 * time.Second)
		err := redisCache.Ping(pingCtx)
		cancel()

		if err != nil {
			log.Error("redis connect failed", "addr", cfg.RedisAddr, "err", err)
			os.Exit(1)
		}

		cacheStore = redisCache
		log.Info("dashboard cache: redis", "addr", cfg.RedisAddr)
	} else {
		cacheStore = cache.NewMemory()
		log.Info("dashboard cache: in-process memory")
	}

	prom := observability.NewProm()
	router := httpx.NewRouter(cfg, log, pool, cacheStore, prom)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)

		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return
	}

	log.Info("shutdown complete")
}
