package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/folioapp/folio/internal/domain"
	"github.com/folioapp/folio/internal/snapshot"
)

// PortfolioLister enumerates the portfolios to snapshot.
type PortfolioLister interface {
	ListAll(ctx context.Context) ([]domain.Portfolio, error)
}

// SnapshotBuilder builds and persists one portfolio valuation.
type SnapshotBuilder interface {
	Build(ctx context.Context, portfolioID uuid.UUID, asOf time.Time) (snapshot.PortfolioSnapshot, error)
}

// AfterSnapshotHook is called after each run with the snapshots built
// in that run.
type AfterSnapshotHook interface {
	Export(ctx context.Context, snaps []snapshot.PortfolioSnapshot) error
}

// SnapshotWorker periodically values every portfolio.
type SnapshotWorker struct {
	portfolios PortfolioLister
	builder    SnapshotBuilder
	interval   time.Duration
	hook       AfterSnapshotHook // optional
}

// NewSnapshotWorker creates a SnapshotWorker with an optional
// post-generation hook.
func NewSnapshotWorker(portfolios PortfolioLister, builder SnapshotBuilder, interval time.Duration, hook AfterSnapshotHook) *SnapshotWorker {
	return &SnapshotWorker{
		portfolios: portfolios,
		builder:    builder,
		interval:   interval,
		hook:       hook,
	}
}

// Run starts the snapshot worker loop. It blocks until the context is
// cancelled.
func (w *SnapshotWorker) Run(ctx context.Context) {
	slog.Info("SnapshotWorker: starting")

	// Generate immediately on startup
	w.generate(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("SnapshotWorker: shutting down")
			return
		case <-ticker.C:
			w.generate(ctx)
		}
	}
}

func (w *SnapshotWorker) generate(ctx context.Context) {
	portfolios, err := w.portfolios.ListAll(ctx)
	if err != nil {
		slog.Error("SnapshotWorker: listing portfolios failed", "error", err)
		return
	}

	asOf := time.Now().UTC()
	var built []snapshot.PortfolioSnapshot
	for _, p := range portfolios {
		snap, err := w.builder.Build(ctx, p.ID, asOf)
		if err != nil {
			slog.Error("SnapshotWorker: build failed", "portfolio", p.ID, "error", err)
			continue
		}
		built = append(built, snap)
	}
	slog.Info("SnapshotWorker: run completed", "portfolios", len(portfolios), "built", len(built))

	w.runHook(ctx, built)
}

func (w *SnapshotWorker) runHook(ctx context.Context, snaps []snapshot.PortfolioSnapshot) {
	if w.hook == nil || len(snaps) == 0 {
		return
	}
	if err := w.hook.Export(ctx, snaps); err != nil {
		slog.Error("SnapshotWorker: export hook failed", "error", err)
	} else {
		slog.Info("SnapshotWorker: export hook completed")
	}
}
