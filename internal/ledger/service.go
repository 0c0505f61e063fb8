package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/folioapp/folio/internal/domain"
)

// Service owns the commit discipline for a portfolio's ledger:
// validate against the live projection, assign the next sequence, and
// append — serialized per portfolio. Reads (Project) take no lock.
type Service struct {
	repo   Repository
	policy domain.Policy
	locks  *keyedMutex
}

// NewService creates a ledger Service with the given portfolio policy.
func NewService(repo Repository, policy domain.Policy) *Service {
	return &Service{repo: repo, policy: policy, locks: newKeyedMutex()}
}

// CommitResult reports the outcome of one commit attempt. ID is set
// only when Validation.Valid is true and the entry was appended.
type CommitResult struct {
	ID         uuid.UUID               `json:"id,omitempty"`
	Validation domain.ValidationResult `json:"validation"`
}

// CommitTransaction validates a transaction draft against the current
// projection and appends it when valid. The draft's TotalAmount is
// derived during validation; ID, sequence, and status are assigned
// here.
func (s *Service) CommitTransaction(ctx context.Context, draft domain.Transaction) (CommitResult, error) {
	unlock := s.locks.Lock(draft.PortfolioID)
	defer unlock()

	txs, transfers, err := s.repo.ListEntries(ctx, draft.PortfolioID)
	if err != nil {
		return CommitResult{}, fmt.Errorf("loading ledger: %w", err)
	}
	proj, err := Project(draft.PortfolioID, txs, transfers, time.Now().UTC())
	if err != nil {
		return CommitResult{}, err
	}

	res := ValidateTransaction(&draft, proj, s.policy)
	if res.Valid {
		if conc := CheckConcentration(&draft, proj, s.policy); !conc.Valid {
			res = conc
		}
	}
	if !res.Valid {
		return CommitResult{Validation: res}, nil
	}

	seq, err := s.repo.NextSequence(ctx, draft.PortfolioID)
	if err != nil {
		return CommitResult{}, err
	}

	draft.ID = uuid.New()
	draft.Sequence = seq
	draft.Status = domain.StatusCommitted
	if draft.OccurredAt.IsZero() {
		draft.OccurredAt = time.Now().UTC()
	}

	// Validation above saw the projection as of now. A draft dated into
	// the past rewrites every later prefix, so replay the whole ledger
	// with the draft in place before appending it.
	if reason := replayCheck(append(txs, draft), transfers, s.policy); reason != "" {
		return CommitResult{Validation: replayReject(reason)}, nil
	}

	if err := s.repo.InsertTransaction(ctx, draft); err != nil {
		return CommitResult{}, err
	}

	slog.Info("transaction committed",
		"portfolio", draft.PortfolioID, "type", draft.Type,
		"symbol", draft.Symbol, "sequence", draft.Sequence)
	return CommitResult{ID: draft.ID, Validation: res}, nil
}

// CommitTransfer validates a cash transfer against the current
// projection and appends it when valid.
func (s *Service) CommitTransfer(ctx context.Context, draft domain.Transfer) (CommitResult, error) {
	unlock := s.locks.Lock(draft.PortfolioID)
	defer unlock()

	txs, transfers, err := s.repo.ListEntries(ctx, draft.PortfolioID)
	if err != nil {
		return CommitResult{}, fmt.Errorf("loading ledger: %w", err)
	}
	proj, err := Project(draft.PortfolioID, txs, transfers, time.Now().UTC())
	if err != nil {
		return CommitResult{}, err
	}

	res := ValidatePortfolio(&draft, proj, s.policy)
	if !res.Valid {
		return CommitResult{Validation: res}, nil
	}

	seq, err := s.repo.NextSequence(ctx, draft.PortfolioID)
	if err != nil {
		return CommitResult{}, err
	}

	draft.ID = uuid.New()
	draft.Sequence = seq
	draft.Status = domain.StatusCommitted
	if draft.OccurredAt.IsZero() {
		draft.OccurredAt = time.Now().UTC()
	}

	// A backdated withdrawal can overdraw a prefix that looked funded
	// as of now; replay the candidate ledger before appending.
	if reason := replayCheck(txs, append(transfers, draft), s.policy); reason != "" {
		return CommitResult{Validation: replayReject(reason)}, nil
	}

	if err := s.repo.InsertTransfer(ctx, draft); err != nil {
		return CommitResult{}, err
	}

	slog.Info("transfer committed",
		"portfolio", draft.PortfolioID, "type", draft.Type, "sequence", draft.Sequence)
	return CommitResult{ID: draft.ID, Validation: res}, nil
}

// Project derives the holdings and cash state from the committed ledger
// prefix up to asOf. It holds no lock: the fold is pure and any
// concurrent commit is simply not part of the observed prefix.
func (s *Service) Project(ctx context.Context, portfolioID uuid.UUID, asOf time.Time) (domain.Projection, error) {
	txs, transfers, err := s.repo.ListEntries(ctx, portfolioID)
	if err != nil {
		return domain.Projection{}, err
	}
	proj, err := Project(portfolioID, txs, transfers, asOf)
	if err != nil {
		slog.Error("ledger replay failed", "portfolio", portfolioID, "error", err)
		return domain.Projection{}, err
	}
	return proj, nil
}

// VoidTransaction retracts a committed transaction. History is never
// rewritten; the entry stays for audit and is skipped on replay.
func (s *Service) VoidTransaction(ctx context.Context, portfolioID, id uuid.UUID) error {
	unlock := s.locks.Lock(portfolioID)
	defer unlock()
	if err := s.repo.VoidTransaction(ctx, portfolioID, id); err != nil {
		return err
	}
	slog.Info("transaction voided", "portfolio", portfolioID, "transaction", id)
	return nil
}

// VoidTransfer retracts a committed transfer.
func (s *Service) VoidTransfer(ctx context.Context, portfolioID, id uuid.UUID) error {
	unlock := s.locks.Lock(portfolioID)
	defer unlock()
	if err := s.repo.VoidTransfer(ctx, portfolioID, id); err != nil {
		return err
	}
	slog.Info("transfer voided", "portfolio", portfolioID, "transfer", id)
	return nil
}

// replayReject reports a draft whose full-ledger replay failed. The
// entry's position in time is what breaks the later prefix, so the
// rejection points at occurredAt.
func replayReject(reason string) domain.ValidationResult {
	res := domain.OK()
	res.Reject("occurredAt", reason)
	return res
}
