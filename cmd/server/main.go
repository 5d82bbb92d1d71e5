package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sndwiz/veriscase-backend/internal/api/middleware"
	"github.com/sndwiz/veriscase-backend/internal/api/rest"
	"github.com/sndwiz/veriscase-backend/internal/api/websocket"
	"github.com/sndwiz/veriscase-backend/internal/audit"
	"github.com/sndwiz/veriscase-backend/internal/config"
	"github.com/sndwiz/veriscase-backend/internal/pkg/logger"
	"github.com/sndwiz/veriscase-backend/internal/pkg/tracing"
	"github.com/sndwiz/veriscase-backend/internal/repository"
	"github.com/sndwiz/veriscase-backend/internal/security"
	"github.com/sndwiz/veriscase-backend/migrations"
)

func main() {
	log := logger.StdLogger()
	log.Info("VeriCase backend starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("configuration loaded", "port", cfg.Port, "driver", cfg.DatabaseDriver)

	// Tracing
	if cfg.OTLPEndpoint != "" {
		shutdown, err := tracing.Init("veriscase-backend", cfg.OTLPEndpoint, 1.0)
		if err != nil {
			log.Warn("tracing init failed, continuing without traces", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	store, err := repository.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	migrationSQL, err := migrations.FS.ReadFile("001_initial_schema.sql")
	if err != nil {
		log.Error("failed to read migration", "error", err)
		os.Exit(1)
	}
	if err := store.RunMigrations(string(migrationSQL)); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("database ready")

	// WebSocket hub for the live event stream
	wsHub := websocket.NewHub(ctx, log)
	go wsHub.Run()

	// Security components
	events := security.NewEventRecorder(store, log, wsHub)
	killSwitch := security.NewKillSwitch(events)
	sessions, err := security.NewSessionMonitor(cfg.SessionMonitorCapacity, events)
	if err != nil {
		log.Error("failed to create session monitor", "error", err)
		os.Exit(1)
	}
	auditRecorder := audit.NewRecorder(store, log)
	auditPolicy := audit.DefaultPolicy()

	rateBank := middleware.NewRateLimiterBank(bankConfig(cfg), events)

	// HTTP router
	router := mux.NewRouter()

	healthz := rest.NewHealthzHandler(store)
	router.HandleFunc("/health", healthz.Live).Methods("GET")
	router.HandleFunc("/healthz/live", healthz.Live).Methods("GET")
	router.HandleFunc("/healthz/ready", healthz.Ready).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	handler := rest.NewHandler(events, killSwitch, sessions, store)
	rest.SetupRoutes(apiRouter, handler)

	wsHandler := websocket.NewHandler(ctx, wsHub, cfg.AllowedOrigins)
	apiRouter.HandleFunc("/security/events/stream", wsHandler.ServeWS).Methods("GET")

	// Middleware chain, innermost first. Wrapped around the router rather
	// than registered on it so the tripwire and rate limiters also see
	// requests that match no route.
	var rootHandler http.Handler = router
	rootHandler = middleware.AuditLog(auditPolicy, auditRecorder)(rootHandler)
	rootHandler = middleware.SessionGuard(sessions)(rootHandler)
	rootHandler = middleware.Auth(cfg.JWTSecret)(rootHandler)
	rootHandler = rateBank.Middleware()(rootHandler)
	rootHandler = middleware.Tripwire(nil, events)(rootHandler)
	rootHandler = middleware.MaxBodySize(int64(cfg.MaxBodyBytes))(rootHandler)
	rootHandler = middleware.SecureHeaders(rootHandler)
	rootHandler = middleware.StructuredLog(rootHandler)
	rootHandler = middleware.RequestID(rootHandler)

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	rootHandler = c.Handler(rootHandler)
	rootHandler = otelhttp.NewHandler(rootHandler, "http.server")

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      rootHandler,
		ReadTimeout:  time.Duration(cfg.RequestTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", "error", err)
	}

	// Stop accepting events, flush the queue, then drop the stream.
	events.Close()
	wsHub.Stop()

	log.Info("server exited gracefully")
}

func bankConfig(cfg *config.Config) middleware.BankConfig {
	bank := middleware.DefaultBankConfig()
	if cfg.GlobalRateThreshold > 0 && cfg.GlobalRateWindowSec > 0 {
		bank.Global = middleware.LimiterConfig{
			Window:    time.Duration(cfg.GlobalRateWindowSec) * time.Second,
			Threshold: cfg.GlobalRateThreshold,
		}
	}
	if cfg.AuthRateThreshold > 0 && cfg.AuthRateWindowSec > 0 {
		bank.Auth = middleware.LimiterConfig{
			Window:    time.Duration(cfg.AuthRateWindowSec) * time.Second,
			Threshold: cfg.AuthRateThreshold,
		}
	}
	if cfg.SensitiveRateThreshold > 0 && cfg.SensitiveRateWindowSec > 0 {
		bank.Sensitive = middleware.LimiterConfig{
			Window:    time.Duration(cfg.SensitiveRateWindowSec) * time.Second,
			Threshold: cfg.SensitiveRateThreshold,
		}
	}
	return bank
}
