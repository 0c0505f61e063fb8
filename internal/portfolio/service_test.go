package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/folioapp/folio/internal/domain"
)

type mockRepository struct {
	created []domain.Portfolio
	err     error
}

func (m *mockRepository) Create(_ context.Context, p domain.Portfolio) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, p)
	return nil
}

func (m *mockRepository) Get(_ context.Context, tenantID string, id uuid.UUID) (domain.Portfolio, error) {
	for _, p := range m.created {
		if p.TenantID == tenantID && p.ID == id {
			return p, nil
		}
	}
	return domain.Portfolio{}, ErrNotFound
}

func (m *mockRepository) List(_ context.Context, tenantID string) ([]domain.Portfolio, error) {
	var out []domain.Portfolio
	for _, p := range m.created {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepository) Delete(_ context.Context, tenantID string, id uuid.UUID) error {
	for i, p := range m.created {
		if p.TenantID == tenantID && p.ID == id {
			m.created = append(m.created[:i], m.created[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockRepository) ListAll(_ context.Context) ([]domain.Portfolio, error) {
	return m.created, nil
}

func (m *mockRepository) ListActiveSymbols(_ context.Context) ([]string, error) {
	return []string{"ABC"}, nil
}

func TestCreatePortfolio(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), "tenant-a", "  Main  ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Main" {
		t.Errorf("name = %q, want trimmed Main", p.Name)
	}
	if p.BaseCurrency != "USD" {
		t.Errorf("currency = %s, want USD default", p.BaseCurrency)
	}
	if p.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if len(repo.created) != 1 {
		t.Errorf("created = %d, want 1", len(repo.created))
	}
}

func TestCreatePortfolioValidation(t *testing.T) {
	svc := NewService(&mockRepository{})

	if _, err := svc.Create(context.Background(), "tenant-a", "   ", "USD"); err == nil {
		t.Error("blank name must be rejected")
	}

	p, err := svc.Create(context.Background(), "tenant-a", "Main", "eur")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BaseCurrency != "EUR" {
		t.Errorf("currency = %s, want uppercased EUR", p.BaseCurrency)
	}
}

func TestGetScopedByTenant(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.Create(ctx, "tenant-a", "Main", "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Get(ctx, "tenant-a", p.ID); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
	if _, err := svc.Get(ctx, "tenant-b", p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant lookup = %v, want ErrNotFound", err)
	}
}
