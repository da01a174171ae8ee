package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/hostgate/domain-proxy/internal/breaker"
	"github.com/hostgate/domain-proxy/internal/cache"
	"github.com/hostgate/domain-proxy/internal/config"
	"github.com/hostgate/domain-proxy/internal/discovery"
	"github.com/hostgate/domain-proxy/internal/handler"
	"github.com/hostgate/domain-proxy/internal/ledger"
	"github.com/hostgate/domain-proxy/internal/middleware"
	"github.com/hostgate/domain-proxy/internal/proxy"
	"github.com/hostgate/domain-proxy/internal/ratelimit"
	"github.com/hostgate/domain-proxy/internal/store"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

const version = "1.0.0"

// loadConfig reads the config file named by CONFIG_FILE, falling back
// to environment variables over defaults.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.LoadFromEnv()
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"version": version,
		"port":    cfg.Server.Port,
	}).Info("Starting domain proxy")

	// Persistent store: Redis when configured, in-memory otherwise.
	var kv store.KV
	if cfg.Redis.Addr != "" {
		redisStore, err := store.NewRedis(context.Background(), cfg.Redis, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to redis")
		}
		defer redisStore.Close()
		kv = redisStore
		log.WithField("addr", cfg.Redis.Addr).Info("Using redis persistent store")
	} else {
		kv = store.NewMemory()
		log.Warn("No redis address configured, running on in-memory store")
	}

	writer := ratelimit.NewWriter(kv, cfg.Writer, log)

	routes := cache.NewRoutes(cache.NewLayered(kv, writer, cfg.Cache.Routes, "route", log))
	snapshots := cache.NewLayered(kv, writer, cfg.Cache.Snapshots, "snapshot", log)
	hashes := cache.NewLayered(kv, writer, cfg.Cache.Hashes, "hash", log)

	brk := breaker.New(cfg.Breaker, log)
	ldg := ledger.New(hashes, log)

	engine, err := discovery.NewEngine(cfg.Probe, discovery.NewProber(cfg.Probe.Timeout, log), brk, ldg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize discovery engine")
	}

	router := proxy.NewRouter(engine, brk, snapshots, cfg.Index, cfg.Server.WriteTimeout, log)

	proxyHandler := handler.NewProxyHandler(routes, engine, router, log)
	healthHandler := handler.NewHealthHandler(version, brk, routes, writer)
	adminHandler := handler.NewAdminHandler(routes, log)

	r := mux.NewRouter()
	r.Handle("/healthz", healthHandler).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.NewAdminAuth(cfg.Admin, log).Middleware)
	admin.HandleFunc("/cache/clear", adminHandler.Clear).Methods(http.MethodPost)
	admin.HandleFunc("/cache/clear-all", adminHandler.ClearAll).Methods(http.MethodPost)

	r.PathPrefix("/").Handler(proxyHandler)

	var root http.Handler = r
	if cfg.RateLimit.Enabled {
		root = middleware.NewClientRateLimiter(cfg.RateLimit, log).Middleware(root)
		log.Info("Client rate limiting enabled")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}

	log.Info("Domain proxy stopped gracefully")
}
