package worker

import (
	"context"
	"log/slog"
	"time"
)

// SymbolSource lists the symbols whose quotes are worth keeping fresh.
type SymbolSource interface {
	ActiveSymbols(ctx context.Context) ([]string, error)
}

// QuoteFetcher fetches and stores quotes for a symbol set.
type QuoteFetcher interface {
	FetchAndStoreQuotes(ctx context.Context, symbols []string) error
}

// QuoteWorker periodically refreshes stored quotes for all held
// symbols, so snapshot stale fallbacks stay recent.
type QuoteWorker struct {
	symbols  SymbolSource
	fetcher  QuoteFetcher
	interval time.Duration
}

// NewQuoteWorker creates a new QuoteWorker.
func NewQuoteWorker(symbols SymbolSource, fetcher QuoteFetcher, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		symbols:  symbols,
		fetcher:  fetcher,
		interval: interval,
	}
}

// Run starts the quote worker loop. It blocks until the context is
// cancelled.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("QuoteWorker: starting")

	// Refresh immediately on startup
	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("QuoteWorker: shutting down")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *QuoteWorker) refresh(ctx context.Context) {
	symbols, err := w.symbols.ActiveSymbols(ctx)
	if err != nil {
		slog.Error("QuoteWorker: listing symbols failed", "error", err)
		return
	}
	if len(symbols) == 0 {
		return
	}
	if err := w.fetcher.FetchAndStoreQuotes(ctx, symbols); err != nil {
		slog.Error("QuoteWorker: refresh failed", "error", err)
		return
	}
	slog.Info("QuoteWorker: refresh completed", "symbols", len(symbols))
}
