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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meritboard/internal/api"
	"meritboard/internal/auth"
	"meritboard/internal/config"
	"meritboard/internal/httpmiddleware"
	"meritboard/internal/merit"
	"meritboard/internal/seed"
	"meritboard/internal/store"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Error("http server failed", "err", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.App) (store.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemory(), nil
	case "postgres", "":
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx, pg.DB()); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func runHTTP(cfg config.App, log *slog.Logger) error {
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	st, err := openStore(startCtx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("store close failed", "err", err)
		}
	}()
	log.Info("store ready", "backend", cfg.StoreBackend)

	hasher := auth.Hasher{Cost: cfg.BcryptCost}
	issuer := auth.Issuer{Name: cfg.JWTIssuer, Key: cfg.JWTSigningKey, TTL: cfg.TokenTTL}

	if cfg.SeedOnStart {
		opts := seed.Options{
			AdminUsername:  cfg.SeedAdminUser,
			AdminPassword:  cfg.SeedAdminPass,
			SampleStudents: cfg.StoreBackend == "memory",
		}
		if err := seed.Run(startCtx, st, hasher, opts, log); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := api.Deps{
		Service:        merit.NewService(st, hasher, issuer, merit.NewMetrics(reg)),
		Issuer:         issuer,
		Store:          st,
		Logger:         log,
		RateLimiter:    httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		RequestMetrics: httpmiddleware.NewRequestMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	if cfg.LoginGuard {
		redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()
		if !redisClient.Healthy(startCtx) {
			log.Warn("redis not reachable, login lockout disabled until it is", "addr", cfg.RedisAddr)
		}
		deps.Redis = redisClient
		deps.LoginGuard = httpmiddleware.NewLoginGuard(redisClient.Client, log)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", "err", err)
	}

	log.Info("server exited")
	return nil
}
