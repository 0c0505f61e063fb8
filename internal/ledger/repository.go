package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/folioapp/folio/internal/domain"
)

// ErrNotFound indicates that the requested ledger entry was not found.
var ErrNotFound = errors.New("ledger entry not found")

// Repository defines persistent storage for a portfolio's ledger.
type Repository interface {
	ListEntries(ctx context.Context, portfolioID uuid.UUID) ([]domain.Transaction, []domain.Transfer, error)
	NextSequence(ctx context.Context, portfolioID uuid.UUID) (int64, error)
	InsertTransaction(ctx context.Context, tx domain.Transaction) error
	InsertTransfer(ctx context.Context, tr domain.Transfer) error
	VoidTransaction(ctx context.Context, portfolioID, id uuid.UUID) error
	VoidTransfer(ctx context.Context, portfolioID, id uuid.UUID) error
}

// PgRepository implements Repository with PostgreSQL. Money and
// quantity columns are NUMERIC; the shopspring decimal codec registered
// at connect time keeps the text representation exact both ways.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL ledger repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) ListEntries(ctx context.Context, portfolioID uuid.UUID) ([]domain.Transaction, []domain.Transfer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, portfolio_id, symbol, type, quantity, unit_price, fee, total_amount, occurred_at, sequence, status
		 FROM transactions
		 WHERE portfolio_id = $1
		 ORDER BY occurred_at, sequence`, portfolioID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var qty, price, fee, total decimal.Decimal
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.Symbol, &t.Type, &qty, &price, &fee, &total,
			&t.OccurredAt, &t.Sequence, &t.Status); err != nil {
			return nil, nil, fmt.Errorf("scanning transaction: %w", err)
		}
		if t.Quantity, err = domain.QuantityFromDecimal(qty); err != nil {
			return nil, nil, fmt.Errorf("transaction %s quantity: %w", t.ID, err)
		}
		if t.UnitPrice, err = domain.AmountFromDecimal(price); err != nil {
			return nil, nil, fmt.Errorf("transaction %s unit price: %w", t.ID, err)
		}
		if t.Fee, err = domain.AmountFromDecimal(fee); err != nil {
			return nil, nil, fmt.Errorf("transaction %s fee: %w", t.ID, err)
		}
		if t.TotalAmount, err = domain.AmountFromDecimal(total); err != nil {
			return nil, nil, fmt.Errorf("transaction %s total: %w", t.ID, err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating transactions: %w", err)
	}

	trRows, err := r.pool.Query(ctx,
		`SELECT id, portfolio_id, type, amount, occurred_at, sequence, status
		 FROM transfers
		 WHERE portfolio_id = $1
		 ORDER BY occurred_at, sequence`, portfolioID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer trRows.Close()

	var transfers []domain.Transfer
	for trRows.Next() {
		var t domain.Transfer
		var amount decimal.Decimal
		if err := trRows.Scan(&t.ID, &t.PortfolioID, &t.Type, &amount, &t.OccurredAt, &t.Sequence, &t.Status); err != nil {
			return nil, nil, fmt.Errorf("scanning transfer: %w", err)
		}
		if t.Amount, err = domain.AmountFromDecimal(amount); err != nil {
			return nil, nil, fmt.Errorf("transfer %s amount: %w", t.ID, err)
		}
		transfers = append(transfers, t)
	}
	if err := trRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating transfers: %w", err)
	}

	return txs, transfers, nil
}

// NextSequence returns the next replay sequence for the portfolio.
// Transactions and transfers share one monotonic sequence so same-
// timestamp entries replay in commit order.
func (r *PgRepository) NextSequence(ctx context.Context, portfolioID uuid.UUID) (int64, error) {
	var next int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(
		   GREATEST(
		     (SELECT MAX(sequence) FROM transactions WHERE portfolio_id = $1),
		     (SELECT MAX(sequence) FROM transfers    WHERE portfolio_id = $1)
		   ), 0) + 1`, portfolioID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("computing next sequence: %w", err)
	}
	return next, nil
}

func (r *PgRepository) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transactions (id, portfolio_id, symbol, type, quantity, unit_price, fee, total_amount, occurred_at, sequence, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tx.ID, tx.PortfolioID, tx.Symbol, tx.Type,
		tx.Quantity.Decimal(), tx.UnitPrice.Decimal(), tx.Fee.Decimal(), tx.TotalAmount.Decimal(),
		tx.OccurredAt, tx.Sequence, tx.Status)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

func (r *PgRepository) InsertTransfer(ctx context.Context, tr domain.Transfer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transfers (id, portfolio_id, type, amount, occurred_at, sequence, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tr.ID, tr.PortfolioID, tr.Type, tr.Amount.Decimal(), tr.OccurredAt, tr.Sequence, tr.Status)
	if err != nil {
		return fmt.Errorf("inserting transfer: %w", err)
	}
	return nil
}

func (r *PgRepository) VoidTransaction(ctx context.Context, portfolioID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions SET status = $1
		 WHERE id = $2 AND portfolio_id = $3 AND status = $4`,
		domain.StatusVoided, id, portfolioID, domain.StatusCommitted)
	if err != nil {
		return fmt.Errorf("voiding transaction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) VoidTransfer(ctx context.Context, portfolioID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transfers SET status = $1
		 WHERE id = $2 AND portfolio_id = $3 AND status = $4`,
		domain.StatusVoided, id, portfolioID, domain.StatusCommitted)
	if err != nil {
		return fmt.Errorf("voiding transfer %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
