package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/folioapp/folio/internal/domain"
)

// ErrNotFound indicates that no quote has ever been observed for the
// symbol.
var ErrNotFound = errors.New("quote not found")

// Repository defines persistent storage for observed quotes. The stored
// quote is the fallback when the live provider omits a symbol or fails.
type Repository interface {
	SaveQuote(ctx context.Context, q Quote) error
	GetQuote(ctx context.Context, symbol string) (Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL quote repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) SaveQuote(ctx context.Context, q Quote) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO stock_prices (symbol, price, observed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (symbol) DO UPDATE SET price = $2, observed_at = $3`,
		q.Symbol, q.Price.Decimal(), q.ObservedAt)
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", q.Symbol, err)
	}
	return nil
}

func (r *PgRepository) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	var q Quote
	var price decimal.Decimal
	var observedAt time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT symbol, price, observed_at FROM stock_prices WHERE symbol = $1`,
		symbol).Scan(&q.Symbol, &price, &observedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, fmt.Errorf("getting quote for %s: %w", symbol, err)
	}
	if q.Price, err = domain.AmountFromDecimal(price); err != nil {
		return Quote{}, fmt.Errorf("quote for %s: %w", symbol, err)
	}
	q.ObservedAt = observedAt
	return q, nil
}

func (r *PgRepository) GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT symbol, price, observed_at FROM stock_prices WHERE symbol = ANY($1)`, symbols)
	if err != nil {
		return nil, fmt.Errorf("getting quotes: %w", err)
	}
	defer rows.Close()

	quotes := make(map[string]Quote)
	for rows.Next() {
		var q Quote
		var price decimal.Decimal
		if err := rows.Scan(&q.Symbol, &price, &q.ObservedAt); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		if q.Price, err = domain.AmountFromDecimal(price); err != nil {
			return nil, fmt.Errorf("quote for %s: %w", q.Symbol, err)
		}
		quotes[q.Symbol] = q
	}
	return quotes, rows.Err()
}
