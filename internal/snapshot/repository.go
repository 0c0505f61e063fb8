package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/folioapp/folio/internal/domain"
)

// ErrNotFound indicates that the requested snapshot was not found.
var ErrNotFound = errors.New("snapshot not found")

// Repository defines persistent storage for snapshots. Save is
// insert-only: snapshots are write-once and never updated in place.
type Repository interface {
	Save(ctx context.Context, snap PortfolioSnapshot) error
	GetLatest(ctx context.Context, portfolioID uuid.UUID) (PortfolioSnapshot, error)
	List(ctx context.Context, portfolioID uuid.UUID, limit int) ([]PortfolioSnapshot, error)
}

// PgRepository implements Repository with PostgreSQL. Positions are
// stored as a jsonb payload next to the scalar totals.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL snapshot repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, snap PortfolioSnapshot) error {
	positions, err := json.Marshal(snap.Positions)
	if err != nil {
		return fmt.Errorf("marshaling positions: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO portfolio_snapshots (id, portfolio_id, as_of, cash, total_value, stale, positions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)`,
		snap.ID, snap.PortfolioID, snap.AsOf,
		snap.Cash.Decimal(), snap.TotalValue.Decimal(), snap.Stale, positions, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (r *PgRepository) GetLatest(ctx context.Context, portfolioID uuid.UUID) (PortfolioSnapshot, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, portfolio_id, as_of, cash, total_value, stale, positions, created_at
		 FROM portfolio_snapshots
		 WHERE portfolio_id = $1
		 ORDER BY as_of DESC, created_at DESC
		 LIMIT 1`, portfolioID)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PortfolioSnapshot{}, ErrNotFound
		}
		return PortfolioSnapshot{}, fmt.Errorf("getting latest snapshot: %w", err)
	}
	return snap, nil
}

func (r *PgRepository) List(ctx context.Context, portfolioID uuid.UUID, limit int) ([]PortfolioSnapshot, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, portfolio_id, as_of, cash, total_value, stale, positions, created_at
		 FROM portfolio_snapshots
		 WHERE portfolio_id = $1
		 ORDER BY as_of DESC, created_at DESC
		 LIMIT $2`, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []PortfolioSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snaps, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (PortfolioSnapshot, error) {
	var snap PortfolioSnapshot
	var cash, total decimal.Decimal
	var positions []byte
	var asOf, createdAt time.Time

	if err := row.Scan(&snap.ID, &snap.PortfolioID, &asOf, &cash, &total, &snap.Stale, &positions, &createdAt); err != nil {
		return PortfolioSnapshot{}, err
	}

	var err error
	if snap.Cash, err = domain.AmountFromDecimal(cash); err != nil {
		return PortfolioSnapshot{}, fmt.Errorf("snapshot %s cash: %w", snap.ID, err)
	}
	if snap.TotalValue, err = domain.AmountFromDecimal(total); err != nil {
		return PortfolioSnapshot{}, fmt.Errorf("snapshot %s total: %w", snap.ID, err)
	}
	if err := json.Unmarshal(positions, &snap.Positions); err != nil {
		return PortfolioSnapshot{}, fmt.Errorf("snapshot %s positions: %w", snap.ID, err)
	}
	snap.AsOf = asOf
	snap.CreatedAt = createdAt
	return snap, nil
}
