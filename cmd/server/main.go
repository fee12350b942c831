package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stockfolio/performance-backend/internal/api"
	"github.com/stockfolio/performance-backend/internal/apperrors"
	"github.com/stockfolio/performance-backend/internal/config"
	"github.com/stockfolio/performance-backend/internal/database"
	"github.com/stockfolio/performance-backend/internal/marketdata"
	"github.com/stockfolio/performance-backend/internal/repository"
	"github.com/stockfolio/performance-backend/internal/scheduler"
	"github.com/stockfolio/performance-backend/internal/secret"
	"github.com/stockfolio/performance-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Create repositories
	transactionRepo := repository.NewTransactionRepository(db)
	cashStateRepo := repository.NewCashStateRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	cacheRepo := repository.NewCacheRepository(db)
	providerRepo := repository.NewProviderRepository(db)

	marketClient := marketdata.NewClient(
		cfg.Market.BaseURL,
		loadProviderToken(providerRepo, cfg.Market.FernetKey),
		cfg.Market.Timeout,
		cfg.Market.RatePerSecond,
	)

	// Create services
	systemService := service.NewSystemService(db)
	ledgerService := service.NewLedgerService(transactionRepo, cashStateRepo, holdingRepo)
	valuationService := service.NewValuationService(ledgerService, priceRepo, marketClient)
	returnService := service.NewReturnService(snapshotRepo)
	benchmarkService := service.NewBenchmarkService(priceRepo, marketClient, cfg.Market.BenchmarkTicker)
	snapshotService := service.NewSnapshotService(snapshotRepo, valuationService, ledgerService)
	cacheService := service.NewCacheService(cacheRepo, snapshotRepo, returnService, benchmarkService, ledgerService)

	// Start background jobs
	jobs := scheduler.New(snapshotService, cacheService, cfg.Scheduler)
	if err := jobs.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Create router
	router := api.NewRouter(systemService, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	jobs.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// loadProviderToken decrypts the stored provider API token. Missing config or
// an empty fernet key means unauthenticated provider access, which is fine
// for public endpoints.
func loadProviderToken(providerRepo *repository.ProviderRepository, fernetKey string) string {
	if fernetKey == "" {
		return ""
	}

	encrypted, err := providerRepo.GetEncryptedToken()
	if errors.Is(err, apperrors.ErrProviderConfigNotFound) {
		return ""
	}
	if err != nil {
		log.Printf("Failed to load provider token, continuing unauthenticated: %v", err)
		return ""
	}

	token, err := secret.DecryptToken(fernetKey, encrypted)
	if err != nil {
		log.Printf("Failed to decrypt provider token, continuing unauthenticated: %v", err)
		return ""
	}
	return token
}
