package quickentry

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/folioapp/folio/internal/domain"
)

// Draft is a parsed candidate ledger entry. Exactly one of Transaction
// or Transfer is set.
type Draft struct {
	Transaction *domain.Transaction `json:"transaction,omitempty"`
	Transfer    *domain.Transfer    `json:"transfer,omitempty"`
}

// RowError is a structured per-row parse rejection.
type RowError struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// RowResult is the independent outcome for one input row. A failed row
// never affects its neighbours.
type RowResult struct {
	Index  int        `json:"index"`
	Raw    string     `json:"raw"`
	Draft  *Draft     `json:"draft,omitempty"`
	Errors []RowError `json:"errors,omitempty"`
}

// Accepted reports whether the row parsed cleanly.
func (r RowResult) Accepted() bool { return len(r.Errors) == 0 }

// BulkRequest aggregates a parsed batch: the drafts that validated and
// the rows that did not, with reasons. Purely syntactic — this stage
// sees neither holdings nor cash.
type BulkRequest struct {
	Accepted []Draft     `json:"accepted"`
	Rejected []RowResult `json:"rejected"`
	Results  []RowResult `json:"results"`
}

// Parser validates free-text quick-entry rows. Accepted line forms:
//
//	BUY SYMBOL QTY @ PRICE [fee F] [on DATE]
//	SELL SYMBOL QTY @ PRICE [fee F] [on DATE]
//	DIVIDEND SYMBOL AMOUNT [on DATE]
//	FEE AMOUNT [on DATE]
//	DEPOSIT AMOUNT [on DATE]
//	WITHDRAW AMOUNT [on DATE]
//
// DATE is YYYY-MM-DD or RFC 3339 and may not lie more than the grace
// period in the future. Decimal fields accept a comma decimal
// separator, normalized before parsing.
type Parser struct {
	futureGrace time.Duration
	now         func() time.Time
}

// NewParser creates a Parser with the given future-date grace period.
func NewParser(futureGrace time.Duration) *Parser {
	return &Parser{futureGrace: futureGrace, now: time.Now}
}

// ParseBatch parses every row independently and partitions the results.
func (p *Parser) ParseBatch(rows []string) BulkRequest {
	results := make([]RowResult, len(rows))
	for i, raw := range rows {
		results[i] = p.parseRow(i, raw)
	}

	accepted, rejected := lo.FilterReject(results, func(r RowResult, _ int) bool {
		return r.Accepted()
	})
	return BulkRequest{
		Accepted: lo.Map(accepted, func(r RowResult, _ int) Draft { return *r.Draft }),
		Rejected: rejected,
		Results:  results,
	}
}

func (p *Parser) parseRow(index int, raw string) RowResult {
	res := RowResult{Index: index, Raw: raw}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		res.fail("row", "empty row")
		return res
	}

	keyword := strings.ToUpper(fields[0])
	rest := fields[1:]

	switch keyword {
	case "BUY", "SELL":
		p.parseTrade(&res, domain.TransactionType(keyword), rest)
	case "DIVIDEND":
		p.parseDividend(&res, rest)
	case "FEE":
		p.parseFee(&res, rest)
	case "DEPOSIT":
		p.parseTransfer(&res, domain.TransferDeposit, rest)
	case "WITHDRAW", "WITHDRAWAL":
		p.parseTransfer(&res, domain.TransferWithdrawal, rest)
	default:
		res.fail("type", "unknown row type "+strings.ToLower(keyword))
	}
	return res
}

func (p *Parser) parseTrade(res *RowResult, typ domain.TransactionType, fields []string) {
	if len(fields) < 4 || fields[2] != "@" {
		res.fail("row", "expected SYMBOL QTY @ PRICE")
		return
	}

	tx := &domain.Transaction{Type: typ, Status: domain.StatusDraft}
	tx.Symbol = parseSymbol(res, fields[0])

	if qty, err := domain.ParseQuantity(normalizeDecimal(fields[1])); err != nil || !qty.IsPositive() {
		res.fail("quantity", "quantity must be a positive decimal")
	} else {
		tx.Quantity = qty
	}

	if price, err := domain.ParseAmount(normalizeDecimal(fields[3])); err != nil || price.IsNegative() {
		res.fail("unitPrice", "price must be a non-negative decimal")
	} else {
		tx.UnitPrice = price
	}

	rest := fields[4:]
	if len(rest) >= 2 && strings.EqualFold(rest[0], "fee") {
		if fee, err := domain.ParseAmount(normalizeDecimal(rest[1])); err != nil || fee.IsNegative() {
			res.fail("fee", "fee must be a non-negative decimal")
		} else {
			tx.Fee = fee
		}
		rest = rest[2:]
	}

	tx.OccurredAt = p.parseTrailingDate(res, rest)
	res.accept(Draft{Transaction: tx})
}

func (p *Parser) parseDividend(res *RowResult, fields []string) {
	if len(fields) < 2 {
		res.fail("row", "expected SYMBOL AMOUNT")
		return
	}

	tx := &domain.Transaction{
		Type:     domain.TransactionDividend,
		Status:   domain.StatusDraft,
		Quantity: domain.QuantityFromInt(1),
	}
	tx.Symbol = parseSymbol(res, fields[0])

	if amt, err := domain.ParseAmount(normalizeDecimal(fields[1])); err != nil || !amt.IsPositive() {
		res.fail("amount", "dividend amount must be a positive decimal")
	} else {
		tx.UnitPrice = amt
	}

	tx.OccurredAt = p.parseTrailingDate(res, fields[2:])
	res.accept(Draft{Transaction: tx})
}

func (p *Parser) parseFee(res *RowResult, fields []string) {
	if len(fields) < 1 {
		res.fail("row", "expected AMOUNT")
		return
	}

	tx := &domain.Transaction{Type: domain.TransactionFee, Status: domain.StatusDraft}
	if amt, err := domain.ParseAmount(normalizeDecimal(fields[0])); err != nil || !amt.IsPositive() {
		res.fail("fee", "fee amount must be a positive decimal")
	} else {
		tx.Fee = amt
	}

	tx.OccurredAt = p.parseTrailingDate(res, fields[1:])
	res.accept(Draft{Transaction: tx})
}

func (p *Parser) parseTransfer(res *RowResult, typ domain.TransferType, fields []string) {
	if len(fields) < 1 {
		res.fail("row", "expected AMOUNT")
		return
	}

	tr := &domain.Transfer{Type: typ, Status: domain.StatusDraft}
	if amt, err := domain.ParseAmount(normalizeDecimal(fields[0])); err != nil || !amt.IsPositive() {
		res.fail("amount", "amount must be a positive decimal")
	} else {
		tr.Amount = amt
	}

	tr.OccurredAt = p.parseTrailingDate(res, fields[1:])
	res.accept(Draft{Transfer: tr})
}

// parseTrailingDate handles the optional "on DATE" suffix. Rows without
// a date stamp use the parse time.
func (p *Parser) parseTrailingDate(res *RowResult, fields []string) time.Time {
	now := p.now().UTC()
	if len(fields) == 0 {
		return now
	}
	if len(fields) != 2 || !strings.EqualFold(fields[0], "on") {
		res.fail("date", "expected trailing 'on DATE'")
		return now
	}

	ts, err := parseDate(fields[1])
	if err != nil {
		res.fail("date", "invalid date "+fields[1])
		return now
	}
	if ts.After(now.Add(p.futureGrace)) {
		res.fail("date", "date too far in the future")
		return now
	}
	return ts
}

func parseDate(s string) (time.Time, error) {
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func (r *RowResult) fail(field, reason string) {
	r.Errors = append(r.Errors, RowError{Row: r.Index, Field: field, Reason: reason})
}

// accept records the draft unless a field check already failed.
func (r *RowResult) accept(d Draft) {
	if len(r.Errors) == 0 {
		r.Draft = &d
	}
}
