package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/folioapp/folio/internal/domain"
	"github.com/folioapp/folio/internal/quote"
)

// PositionValuation is one symbol's contribution to a snapshot.
// Unavailable marks a symbol with no quote ever observed; its market
// value is excluded from the total rather than silently zero.
type PositionValuation struct {
	Symbol      string          `json:"symbol"`
	Quantity    domain.Quantity `json:"quantity"`
	AverageCost domain.Amount   `json:"averageCost"`
	Price       *domain.Amount  `json:"price,omitempty"`
	MarketValue *domain.Amount  `json:"marketValue,omitempty"`
	ObservedAt  *time.Time      `json:"observedAt,omitempty"`
	Stale       bool            `json:"stale,omitempty"`
	Unavailable bool            `json:"unavailable,omitempty"`
}

// PortfolioSnapshot is an immutable valuation of a projection at one
// point in time. Rebuilding for the same portfolio and timestamp
// produces a new, distinctly identified snapshot; stored rows are never
// mutated.
type PortfolioSnapshot struct {
	ID          uuid.UUID           `json:"id"`
	PortfolioID uuid.UUID           `json:"portfolioId"`
	AsOf        time.Time           `json:"asOf"`
	Positions   []PositionValuation `json:"positions"`
	Cash        domain.Amount       `json:"cash"`
	TotalValue  domain.Amount       `json:"totalValue"`
	Stale       bool                `json:"stale"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// Projector derives the holdings + cash state for a ledger prefix.
type Projector interface {
	Project(ctx context.Context, portfolioID uuid.UUID, asOf time.Time) (domain.Projection, error)
}

// QuoteSource resolves quotes with stale fallback. Symbols it cannot
// serve at all are absent from the result.
type QuoteSource interface {
	Lookup(ctx context.Context, symbols []string) (map[string]quote.Result, error)
}

// Service builds and stores portfolio valuation snapshots.
type Service struct {
	projector Projector
	quotes    QuoteSource
	repo      Repository
}

// NewService creates a snapshot Service.
func NewService(projector Projector, quotes QuoteSource, repo Repository) *Service {
	return &Service{projector: projector, quotes: quotes, repo: repo}
}

// Build computes and persists a snapshot of the portfolio as of the
// given time. Quote failures degrade the snapshot (stale or unavailable
// positions); they never fail the build.
func (s *Service) Build(ctx context.Context, portfolioID uuid.UUID, asOf time.Time) (PortfolioSnapshot, error) {
	proj, err := s.projector.Project(ctx, portfolioID, asOf)
	if err != nil {
		return PortfolioSnapshot{}, fmt.Errorf("projecting portfolio: %w", err)
	}

	symbols := lo.Keys(proj.Holdings)
	sort.Strings(symbols)

	resolved, err := s.quotes.Lookup(ctx, symbols)
	if err != nil {
		slog.Warn("quote lookup failed, all positions marked unavailable",
			"portfolio", portfolioID, "error", err)
		resolved = map[string]quote.Result{}
	}

	snap := PortfolioSnapshot{
		ID:          uuid.New(),
		PortfolioID: portfolioID,
		AsOf:        asOf,
		Cash:        proj.Cash,
		TotalValue:  proj.Cash,
		CreatedAt:   time.Now().UTC(),
	}

	for _, symbol := range symbols {
		holding := proj.Holdings[symbol]
		pos := PositionValuation{
			Symbol:      symbol,
			Quantity:    holding.Quantity,
			AverageCost: holding.AverageCost,
		}

		res, ok := resolved[symbol]
		if !ok {
			pos.Unavailable = true
			snap.Stale = true
			snap.Positions = append(snap.Positions, pos)
			continue
		}

		price := res.Quote.Price
		value := holding.Quantity.MulPrice(price)
		observedAt := res.Quote.ObservedAt
		pos.Price = &price
		pos.MarketValue = &value
		pos.ObservedAt = &observedAt
		pos.Stale = res.Stale

		snap.TotalValue = snap.TotalValue.Add(value)
		if res.Stale {
			snap.Stale = true
		}
		snap.Positions = append(snap.Positions, pos)
	}

	if err := s.repo.Save(ctx, snap); err != nil {
		return PortfolioSnapshot{}, fmt.Errorf("saving snapshot: %w", err)
	}

	slog.Info("snapshot built",
		"portfolio", portfolioID, "asOf", asOf,
		"total", snap.TotalValue, "stale", snap.Stale)
	return snap, nil
}

// GetLatest retrieves the most recent snapshot for the portfolio.
func (s *Service) GetLatest(ctx context.Context, portfolioID uuid.UUID) (PortfolioSnapshot, error) {
	return s.repo.GetLatest(ctx, portfolioID)
}

// List retrieves recent snapshots, newest first.
func (s *Service) List(ctx context.Context, portfolioID uuid.UUID, limit int) ([]PortfolioSnapshot, error) {
	return s.repo.List(ctx, portfolioID, limit)
}
