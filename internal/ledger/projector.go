package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/folioapp/folio/internal/domain"
)

// entry is the unified replay view of a transaction or transfer.
type entry struct {
	occurredAt time.Time
	sequence   int64
	tx         *domain.Transaction
	transfer   *domain.Transfer
}

// Project replays the committed ledger prefix up to and including asOf,
// in (timestamp, sequence) order, and returns the derived holdings and
// cash. It is a pure function of its input: replaying the same prefix
// twice yields identical results. VOIDED entries are skipped as if
// never committed.
//
// A sell that would drive a holding negative means commit-time
// validation let an impossible entry through; that surfaces as
// domain.ErrLedgerInconsistency and is never repaired here.
func Project(portfolioID uuid.UUID, txs []domain.Transaction, transfers []domain.Transfer, asOf time.Time) (domain.Projection, error) {
	proj := domain.Projection{
		PortfolioID: portfolioID,
		AsOf:        asOf,
		Holdings:    make(map[string]domain.Holding),
	}

	for _, e := range committedEntries(txs, transfers, asOf) {
		if e.transfer != nil {
			proj.Cash = proj.Cash.Add(e.transfer.CashEffect())
			continue
		}
		if err := applyTransaction(&proj, e.tx); err != nil {
			return domain.Projection{}, err
		}
	}

	// Drop fully-closed positions so callers iterate live holdings only.
	for sym, h := range proj.Holdings {
		if h.Quantity.IsZero() {
			delete(proj.Holdings, sym)
		}
	}

	return proj, nil
}

// committedEntries merges both ledger tables into replay order. A zero
// asOf means no time bound.
func committedEntries(txs []domain.Transaction, transfers []domain.Transfer, asOf time.Time) []entry {
	entries := make([]entry, 0, len(txs)+len(transfers))
	for i := range txs {
		t := &txs[i]
		if t.Status != domain.StatusCommitted || (!asOf.IsZero() && t.OccurredAt.After(asOf)) {
			continue
		}
		entries = append(entries, entry{occurredAt: t.OccurredAt, sequence: t.Sequence, tx: t})
	}
	for i := range transfers {
		t := &transfers[i]
		if t.Status != domain.StatusCommitted || (!asOf.IsZero() && t.OccurredAt.After(asOf)) {
			continue
		}
		entries = append(entries, entry{occurredAt: t.OccurredAt, sequence: t.Sequence, transfer: t})
	}

	// Sequence numbers are assigned monotonically at commit time, so the
	// sort is a total order and replay is unambiguous.
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].occurredAt.Equal(entries[j].occurredAt) {
			return entries[i].occurredAt.Before(entries[j].occurredAt)
		}
		return entries[i].sequence < entries[j].sequence
	})
	return entries
}

// replayCheck folds the entire candidate ledger, the committed entries
// plus one draft already slotted at its assigned position, and names
// the invariant the fold would break, or "" when the ledger stays
// projectable. Commit validation sees the projection as of now; an
// entry dated into the past changes every later prefix, so only a full
// replay proves the suffix after it still holds.
func replayCheck(txs []domain.Transaction, transfers []domain.Transfer, policy domain.Policy) string {
	proj := domain.Projection{Holdings: make(map[string]domain.Holding)}

	for _, e := range committedEntries(txs, transfers, time.Time{}) {
		if e.transfer != nil {
			proj.Cash = proj.Cash.Add(e.transfer.CashEffect())
		} else if applyTransaction(&proj, e.tx) != nil {
			return ReasonInsufficientHoldings
		}
		if !policy.AllowOverdraft && proj.Cash.IsNegative() {
			return ReasonInsufficientFunds
		}
		if !proj.Cash.InRange() {
			return ReasonValueOutOfRange
		}
	}

	for _, h := range proj.Holdings {
		if !h.Quantity.InRange() || !h.AverageCost.InRange() {
			return ReasonValueOutOfRange
		}
	}
	return ""
}

func applyTransaction(proj *domain.Projection, tx *domain.Transaction) error {
	switch tx.Type {
	case domain.TransactionBuy:
		h := proj.Holdings[tx.Symbol]
		h.Symbol = tx.Symbol
		if h.Quantity.IsZero() {
			h.AverageCost = tx.UnitPrice
		} else {
			h.AverageCost = domain.WeightedAverageCost(h.Quantity, h.AverageCost, tx.Quantity, tx.UnitPrice)
		}
		h.Quantity = h.Quantity.Add(tx.Quantity)
		proj.Holdings[tx.Symbol] = h

	case domain.TransactionSell:
		h, ok := proj.Holdings[tx.Symbol]
		if !ok || h.Quantity.LessThan(tx.Quantity) {
			return fmt.Errorf("sell of %s %s exceeds held %s at seq %d: %w",
				tx.Quantity, tx.Symbol, h.Quantity, tx.Sequence, domain.ErrLedgerInconsistency)
		}
		// Average cost is unchanged by a sell.
		h.Quantity = h.Quantity.Sub(tx.Quantity)
		proj.Holdings[tx.Symbol] = h

	case domain.TransactionDividend, domain.TransactionFee:
		// Cash only; holdings unaffected.

	default:
		return fmt.Errorf("unknown transaction type %q at seq %d: %w",
			tx.Type, tx.Sequence, domain.ErrLedgerInconsistency)
	}

	proj.Cash = proj.Cash.Add(tx.CashEffect())
	return nil
}
