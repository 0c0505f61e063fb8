package ledger

import (
	"github.com/folioapp/folio/internal/domain"
)

// Validation rejection reasons surfaced to callers by name.
const (
	ReasonInsufficientFunds    = "insufficient funds"
	ReasonInsufficientHoldings = "insufficient holdings"
	ReasonConcentrationLimit   = "concentration limit exceeded"
	ReasonValueOutOfRange      = "value out of range"
)

// ValidateTransaction decides whether a transaction draft may be
// committed against the given projected state. It is a pure decision
// function: it never mutates the ledger, and commit is a separate step
// taken only when the result is valid. On success the draft's derived
// TotalAmount is populated.
func ValidateTransaction(draft *domain.Transaction, proj domain.Projection, policy domain.Policy) domain.ValidationResult {
	res := domain.OK()

	// Structural checks are guaranteed upstream; re-assert them so a
	// caller bypassing quick entry cannot corrupt the ledger.
	switch draft.Type {
	case domain.TransactionBuy, domain.TransactionSell, domain.TransactionDividend:
		if draft.Symbol == "" {
			res.Reject("symbol", "symbol is required")
		}
		if !draft.Quantity.IsPositive() {
			res.Reject("quantity", "quantity must be positive")
		}
		if draft.UnitPrice.IsNegative() {
			res.Reject("unitPrice", "unit price must not be negative")
		}
	case domain.TransactionFee:
		if !draft.Fee.IsPositive() {
			res.Reject("fee", "fee amount must be positive")
		}
	default:
		res.Reject("type", "unknown transaction type")
	}
	if draft.Fee.IsNegative() {
		res.Reject("fee", "fee must not be negative")
	}
	if !res.Valid {
		return res
	}

	switch draft.Type {
	case domain.TransactionSell:
		held := proj.Holdings[draft.Symbol].Quantity
		if held.LessThan(draft.Quantity) {
			res.Reject("quantity", ReasonInsufficientHoldings)
		}
	case domain.TransactionBuy:
		cost := draft.GrossAmount().Add(draft.Fee)
		if !policy.AllowOverdraft && proj.Cash.LessThan(cost) {
			res.Reject("unitPrice", ReasonInsufficientFunds)
		}
	}

	if res.Valid {
		draft.TotalAmount = draft.CashEffect()
	}
	return res
}

// ValidatePortfolio checks transfer and cross-holding invariants that
// single-transaction validation cannot see. Like ValidateTransaction it
// only decides; it neither orders nor commits.
func ValidatePortfolio(draft *domain.Transfer, proj domain.Projection, policy domain.Policy) domain.ValidationResult {
	res := domain.OK()

	if !draft.Amount.IsPositive() {
		res.Reject("amount", "amount must be positive")
	}
	switch draft.Type {
	case domain.TransferDeposit, domain.TransferWithdrawal:
	default:
		res.Reject("type", "unknown transfer type")
	}
	if !res.Valid {
		return res
	}

	if draft.Type == domain.TransferWithdrawal && !policy.AllowOverdraft && proj.Cash.LessThan(draft.Amount) {
		res.Reject("amount", ReasonInsufficientFunds)
	}
	return res
}

// CheckConcentration rejects a buy whose post-trade cost share of the
// portfolio exceeds policy.MaxConcentrationPct. Disabled when the limit
// is zero.
func CheckConcentration(draft *domain.Transaction, proj domain.Projection, policy domain.Policy) domain.ValidationResult {
	res := domain.OK()
	if policy.MaxConcentrationPct <= 0 || draft.Type != domain.TransactionBuy {
		return res
	}

	tradeCost := draft.GrossAmount()
	symbolCost := tradeCost
	totalCost := tradeCost
	for sym, h := range proj.Holdings {
		cost := h.Quantity.MulPrice(h.AverageCost)
		totalCost = totalCost.Add(cost)
		if sym == draft.Symbol {
			symbolCost = symbolCost.Add(cost)
		}
	}
	if totalCost.IsZero() {
		return res
	}

	limit := totalCost.Div(domain.AmountFromInt(100))
	threshold := domain.QuantityFromInt(int64(policy.MaxConcentrationPct)).MulPrice(limit)
	if symbolCost.GreaterThan(threshold) {
		res.Reject("symbol", ReasonConcentrationLimit)
	}
	return res
}
