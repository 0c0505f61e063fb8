package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/folioapp/folio/internal/snapshot"
)

// SheetWriter writes valuation rows to a spreadsheet destination.
type SheetWriter interface {
	Write(ctx context.Context, summaries [][]any, positions [][]any) error
}

// Service flattens freshly built snapshots into spreadsheet rows and
// delegates writing to the configured destinations. Implements
// worker.AfterSnapshotHook.
type Service struct {
	writers []SheetWriter
}

// NewService creates an export Service over one or more writers.
func NewService(writers ...SheetWriter) *Service {
	return &Service{writers: writers}
}

// Export writes the snapshots from one worker run to every destination.
// A failing destination does not block the others.
func (s *Service) Export(ctx context.Context, snaps []snapshot.PortfolioSnapshot) error {
	summaries := buildSummaryRows(snaps)
	positions := buildPositionRows(snaps)

	var lastErr error
	for _, w := range s.writers {
		if err := w.Write(ctx, summaries, positions); err != nil {
			slog.Error("export destination failed", "error", err)
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("exporting snapshots: %w", lastErr)
	}
	return nil
}

// buildSummaryRows renders one row per snapshot.
// Columns: Date | Portfolio | Cash | Total Value | Positions | Stale
func buildSummaryRows(snaps []snapshot.PortfolioSnapshot) [][]any {
	rows := make([][]any, 0, len(snaps)+1)
	rows = append(rows, []any{"Date", "Portfolio", "Cash", "Total Value", "Positions", "Stale"})

	for _, snap := range snaps {
		rows = append(rows, []any{
			snap.AsOf.Format("2006-01-02 15:04"),
			snap.PortfolioID.String(),
			snap.Cash.String(),
			snap.TotalValue.String(),
			len(snap.Positions),
			snap.Stale,
		})
	}
	return rows
}

// buildPositionRows renders one row per valued position.
// Columns: Date | Portfolio | Symbol | Quantity | Avg Cost | Price | Market Value | Status
func buildPositionRows(snaps []snapshot.PortfolioSnapshot) [][]any {
	rows := [][]any{
		{"Date", "Portfolio", "Symbol", "Quantity", "Avg Cost", "Price", "Market Value", "Status"},
	}

	for _, snap := range snaps {
		for _, pos := range snap.Positions {
			rows = append(rows, []any{
				snap.AsOf.Format("2006-01-02 15:04"),
				snap.PortfolioID.String(),
				pos.Symbol,
				pos.Quantity.String(),
				pos.AverageCost.String(),
				formatOptional(pos.Price),
				formatOptional(pos.MarketValue),
				positionStatus(pos),
			})
		}
	}
	return rows
}

func positionStatus(pos snapshot.PositionValuation) string {
	switch {
	case pos.Unavailable:
		return "unavailable"
	case pos.Stale:
		return "stale"
	default:
		return "live"
	}
}

func formatOptional[T fmt.Stringer](v *T) string {
	if v == nil {
		return ""
	}
	return (*v).String()
}
