// Package main is the entry point for the CasaOps sync server.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/casaops/backend/internal/api"
	"github.com/casaops/backend/internal/cleaning"
	"github.com/casaops/backend/internal/config"
	"github.com/casaops/backend/internal/dedupe"
	"github.com/casaops/backend/internal/feed"
	"github.com/casaops/backend/internal/inventory"
	"github.com/casaops/backend/internal/laundry"
	"github.com/casaops/backend/internal/linen"
	"github.com/casaops/backend/internal/logging"
	"github.com/casaops/backend/internal/storage"
	syncengine "github.com/casaops/backend/internal/sync"
	"github.com/casaops/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Init("info", "console")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Server.Addr); err != nil {
			log.Fatal().Err(err).Msg("Health check failed")
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}
	log.Info().Str("version", version).Msg("Starting CasaOps sync server")

	// Initialize database
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to create data directory")
	}
	db, err := storage.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()
	broadcaster := websocket.NewBroadcaster(hub)

	// Initialize repositories
	propertyRepo := storage.NewPropertyRepository(db)
	bookingRepo := storage.NewBookingRepository(db)
	cleaningRepo := storage.NewCleaningRepository(db)
	orderRepo := storage.NewOrderRepository(db)
	inventoryRepo := storage.NewInventoryRepository(db)
	exclusionRepo := storage.NewExclusionRepository(db)

	// Initialize services
	defaultLoc := cfg.Sync.DefaultLocation()
	inventoryService := inventory.NewService(inventoryRepo)
	pricing := cleaning.NewBasePricing(decimal.NewFromInt(20))
	generator := cleaning.NewGenerator(cleaningRepo, bookingRepo, exclusionRepo, pricing, defaultLoc)
	orderService := laundry.NewOrderService(orderRepo, cleaningRepo, linen.DefaultRules())
	resolver := dedupe.NewResolver(bookingRepo, cleaningRepo, orderRepo, propertyRepo, defaultLoc)

	fetcher := feed.NewFetcher(cfg.Sync.FeedTimeout)
	parser := feed.NewParser()
	reconciler := syncengine.NewReconciler(bookingRepo, cleaningRepo, exclusionRepo, defaultLoc)

	orchestrator := syncengine.NewOrchestrator(
		propertyRepo,
		bookingRepo,
		fetcher,
		parser,
		reconciler,
		generator,
		orderService,
		inventoryService,
		broadcaster,
		cfg.Sync,
	)

	// System inventory items must exist before the first cascade.
	if repaired, err := inventoryService.EnsureSystemItems(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed system inventory")
	} else if repaired > 0 {
		log.Info().Int("repaired", repaired).Msg("Seeded system inventory items")
	}

	// Start the sync scheduler
	scheduler := syncengine.NewScheduler(orchestrator, exclusionRepo, cfg.Sync.Interval, cfg.Exclusions.RetentionDays)
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start sync scheduler")
	}

	// Initialize HTTP router with services
	router := api.NewRouter(api.Services{
		DB:            db,
		Exclusions:    exclusionRepo,
		Orchestrator:  orchestrator,
		Resolver:      resolver,
		Orders:        orderService,
		Inventory:     inventoryService,
		Hub:           hub,
		TriggerSecret: cfg.Security.TriggerSecret,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
