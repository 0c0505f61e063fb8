package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/folioapp/folio/internal/domain"
)

// ErrNotFound indicates that the portfolio does not exist or belongs to
// another tenant.
var ErrNotFound = errors.New("portfolio not found")

// Repository defines persistent storage for portfolios. All lookups are
// tenant-scoped; the tenant id arrives already authenticated and is
// trusted as-is.
type Repository interface {
	Create(ctx context.Context, p domain.Portfolio) error
	Get(ctx context.Context, tenantID string, id uuid.UUID) (domain.Portfolio, error)
	List(ctx context.Context, tenantID string) ([]domain.Portfolio, error)
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
	ListAll(ctx context.Context) ([]domain.Portfolio, error)
	ListActiveSymbols(ctx context.Context) ([]string, error)
}

// PgRepository implements Repository with PostgreSQL. Ledger rows and
// snapshots are removed by FK cascade when a portfolio is deleted.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL portfolio repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Create(ctx context.Context, p domain.Portfolio) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO portfolios (id, tenant_id, name, base_currency, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.TenantID, p.Name, p.BaseCurrency, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating portfolio: %w", err)
	}
	return nil
}

func (r *PgRepository) Get(ctx context.Context, tenantID string, id uuid.UUID) (domain.Portfolio, error) {
	var p domain.Portfolio
	var createdAt time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, base_currency, created_at
		 FROM portfolios WHERE tenant_id = $1 AND id = $2`, tenantID, id).
		Scan(&p.ID, &p.TenantID, &p.Name, &p.BaseCurrency, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Portfolio{}, ErrNotFound
		}
		return domain.Portfolio{}, fmt.Errorf("getting portfolio %s: %w", id, err)
	}
	p.CreatedAt = createdAt
	return p, nil
}

func (r *PgRepository) List(ctx context.Context, tenantID string) ([]domain.Portfolio, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, name, base_currency, created_at
		 FROM portfolios WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []domain.Portfolio
	for rows.Next() {
		var p domain.Portfolio
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.BaseCurrency, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

func (r *PgRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM portfolios WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("deleting portfolio %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every portfolio across tenants, for the background
// snapshot worker.
func (r *PgRepository) ListAll(ctx context.Context) ([]domain.Portfolio, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, name, base_currency, created_at FROM portfolios ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing all portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []domain.Portfolio
	for rows.Next() {
		var p domain.Portfolio
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.BaseCurrency, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// ListActiveSymbols returns every symbol with at least one committed
// transaction, across all tenants. The quote worker refreshes these.
func (r *PgRepository) ListActiveSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT symbol FROM transactions
		 WHERE status = $1 AND symbol <> '' ORDER BY symbol`, domain.StatusCommitted)
	if err != nil {
		return nil, fmt.Errorf("listing active symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}
