package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/folioapp/folio/internal/domain"
)

// Service manages the tenant-scoped portfolio registry.
type Service struct {
	repo Repository
}

// NewService creates a portfolio Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new portfolio for the tenant. The base currency
// defaults to USD.
func (s *Service) Create(ctx context.Context, tenantID, name, baseCurrency string) (domain.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Portfolio{}, fmt.Errorf("portfolio name is required")
	}
	if baseCurrency == "" {
		baseCurrency = "USD"
	}

	p := domain.Portfolio{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         name,
		BaseCurrency: strings.ToUpper(baseCurrency),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return domain.Portfolio{}, err
	}

	slog.Info("portfolio created", "portfolio", p.ID, "tenant", tenantID)
	return p, nil
}

// Get fetches one portfolio owned by the tenant.
func (s *Service) Get(ctx context.Context, tenantID string, id uuid.UUID) (domain.Portfolio, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns the tenant's portfolios.
func (s *Service) List(ctx context.Context, tenantID string) ([]domain.Portfolio, error) {
	return s.repo.List(ctx, tenantID)
}

// Delete removes a portfolio; its ledger entries and snapshots go with
// it by cascade.
func (s *Service) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	slog.Info("portfolio deleted", "portfolio", id, "tenant", tenantID)
	return nil
}

// ListAll returns every portfolio across tenants.
func (s *Service) ListAll(ctx context.Context) ([]domain.Portfolio, error) {
	return s.repo.ListAll(ctx)
}

// ActiveSymbols lists every symbol currently referenced by a committed
// transaction.
func (s *Service) ActiveSymbols(ctx context.Context) ([]string, error) {
	return s.repo.ListActiveSymbols(ctx)
}
