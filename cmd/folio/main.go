package main

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/folioapp/folio/internal/api"
	"github.com/folioapp/folio/internal/config"
	"github.com/folioapp/folio/internal/database"
	"github.com/folioapp/folio/internal/domain"
	"github.com/folioapp/folio/internal/export"
	"github.com/folioapp/folio/internal/ledger"
	"github.com/folioapp/folio/internal/portfolio"
	"github.com/folioapp/folio/internal/quickentry"
	"github.com/folioapp/folio/internal/quote"
	"github.com/folioapp/folio/internal/snapshot"
	"github.com/folioapp/folio/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	// Connect to database
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Run migrations
	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		log.Fatalf("Failed to create migrations sub-fs: %v", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Core services
	policy := domain.Policy{
		AllowOverdraft:      cfg.AllowOverdraft,
		MaxConcentrationPct: cfg.MaxConcentrationPct,
	}
	portfolioSvc := portfolio.NewService(portfolio.NewPgRepository(pool))
	ledgerSvc := ledger.NewService(ledger.NewPgRepository(pool), policy)

	// Quote plumbing
	provider := quote.NewHTTPProvider(cfg.QuoteURL, cfg.QuoteRetryBaseDelay, cfg.QuoteRetryMax)
	quoteSvc := quote.NewService(provider, quote.NewPgRepository(pool), cfg.QuoteCacheTTL)

	// Snapshot engine
	snapshotSvc := snapshot.NewService(ledgerSvc, quoteSvc, snapshot.NewPgRepository(pool))

	// Optional snapshot export hook
	var hook worker.AfterSnapshotHook
	var writers []export.SheetWriter
	if cfg.ExportXLSXDir != "" {
		writers = append(writers, export.NewXLSXWriter(cfg.ExportXLSXDir))
	}
	if cfg.SheetsSpreadsheetID != "" && cfg.SheetsCredentialsJSON != "" {
		sheetsWriter, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsJSON)
		if err != nil {
			log.Fatalf("Failed to create sheets writer: %v", err)
		}
		writers = append(writers, sheetsWriter)
	}
	if len(writers) > 0 {
		hook = export.NewService(writers...)
	}

	// Start workers
	quoteWorker := worker.NewQuoteWorker(portfolioSvc, quoteSvc, cfg.QuoteWorkerInterval)
	go quoteWorker.Run(ctx)

	snapshotWorker := worker.NewSnapshotWorker(portfolioSvc, snapshotSvc, cfg.SnapshotWorkerInterval, hook)
	go snapshotWorker.Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, destructive endpoints are unprotected")
	}

	// Start HTTP server
	parser := quickentry.NewParser(cfg.QuickEntryFutureGrace)
	handler := api.NewHandler(portfolioSvc, ledgerSvc, snapshotSvc, parser)
	srv := api.NewServer(cfg.HTTPPort, handler, cfg.AdminAPIKey)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
