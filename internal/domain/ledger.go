package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionType identifies a security transaction kind.
type TransactionType string

const (
	TransactionBuy      TransactionType = "BUY"
	TransactionSell     TransactionType = "SELL"
	TransactionDividend TransactionType = "DIVIDEND"
	TransactionFee      TransactionType = "FEE"
)

// TransferType identifies a cash transfer kind.
type TransferType string

const (
	TransferDeposit    TransferType = "DEPOSIT"
	TransferWithdrawal TransferType = "WITHDRAWAL"
)

// EntryStatus is the lifecycle state of a ledger entry.
// DRAFT → COMMITTED → VOIDED; COMMITTED is otherwise immutable and
// voiding is the only supported retraction.
type EntryStatus string

const (
	StatusDraft     EntryStatus = "DRAFT"
	StatusCommitted EntryStatus = "COMMITTED"
	StatusVoided    EntryStatus = "VOIDED"
)

// ErrLedgerInconsistency reports an impossible state observed while
// replaying a committed ledger, such as a sell exceeding the held
// quantity. It indicates a commit-time validation or ordering bug and
// is never recovered silently.
var ErrLedgerInconsistency = errors.New("ledger inconsistency")

// Transaction is a buy/sell/dividend/fee event against one symbol.
// Quantity and UnitPrice are zero for FEE entries, whose whole charge
// is carried in Fee. DIVIDEND entries use UnitPrice as the per-share
// payout.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	PortfolioID uuid.UUID       `json:"portfolioId"`
	Symbol      string          `json:"symbol"`
	Type        TransactionType `json:"type"`
	Quantity    Quantity        `json:"quantity"`
	UnitPrice   Amount          `json:"unitPrice"`
	Fee         Amount          `json:"fee"`
	TotalAmount Amount          `json:"totalAmount"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Sequence    int64           `json:"sequence"`
	Status      EntryStatus     `json:"status"`
}

// Transfer is a cash deposit or withdrawal.
type Transfer struct {
	ID          uuid.UUID    `json:"id"`
	PortfolioID uuid.UUID    `json:"portfolioId"`
	Type        TransferType `json:"type"`
	Amount      Amount       `json:"amount"`
	OccurredAt  time.Time    `json:"occurredAt"`
	Sequence    int64        `json:"sequence"`
	Status      EntryStatus  `json:"status"`
}

// GrossAmount is quantity × unit price before fees.
func (t Transaction) GrossAmount() Amount {
	return t.Quantity.MulPrice(t.UnitPrice)
}

// CashEffect is the signed cash movement the transaction causes:
// negative for BUY and FEE, positive for SELL and DIVIDEND.
func (t Transaction) CashEffect() Amount {
	switch t.Type {
	case TransactionBuy:
		return t.GrossAmount().Add(t.Fee).Neg()
	case TransactionSell, TransactionDividend:
		return t.GrossAmount().Sub(t.Fee)
	case TransactionFee:
		return t.Fee.Neg()
	}
	return Amount{}
}

// CashEffect is the signed cash movement of the transfer.
func (t Transfer) CashEffect() Amount {
	if t.Type == TransferWithdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Holding is the derived position in one symbol. It is recomputed from
// the ledger on read and never treated as a source of truth.
type Holding struct {
	Symbol      string   `json:"symbol"`
	Quantity    Quantity `json:"quantity"`
	AverageCost Amount   `json:"averageCost"`
}

// Projection is the holdings + cash state derived by replaying a
// committed ledger prefix.
type Projection struct {
	PortfolioID uuid.UUID          `json:"portfolioId"`
	AsOf        time.Time          `json:"asOf"`
	Holdings    map[string]Holding `json:"holdings"`
	Cash        Amount             `json:"cash"`
}

// Policy holds portfolio-level validation knobs. The zero value is the
// conservative default: no overdraft, no concentration limit.
type Policy struct {
	AllowOverdraft bool
	// MaxConcentrationPct caps one symbol's post-trade share of total
	// market cost, in whole percent. Zero disables the check.
	MaxConcentrationPct int
}

// Portfolio is a named collection of holdings and cash owned by one
// tenant.
type Portfolio struct {
	ID           uuid.UUID `json:"id"`
	TenantID     string    `json:"tenantId"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"baseCurrency"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FieldError is a structured, user-actionable rejection tied to one
// input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationResult is the outcome of commit-time validation. The ledger
// is unchanged whenever Valid is false.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Reject appends a field error and marks the result invalid.
func (r *ValidationResult) Reject(field, reason string) {
	r.Valid = false
	r.Errors = append(r.Errors, FieldError{Field: field, Reason: reason})
}

// OK builds a passing validation result.
func OK() ValidationResult { return ValidationResult{Valid: true} }
