package quickentry

import (
	"testing"
	"time"
)

var parserNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestParser() *Parser {
	p := NewParser(24 * time.Hour)
	p.now = func() time.Time { return parserNow }
	return p
}

func TestParseBatchPartialFailure(t *testing.T) {
	p := newTestParser()
	rows := []string{
		"BUY ABC 10 @ 100.00 fee 1.00",
		"SELL ABC 4 @ 120 on 2026-13-45",
		"DEPOSIT 500",
	}

	req := p.ParseBatch(rows)

	if len(req.Accepted) != 2 {
		t.Fatalf("accepted = %d, want 2", len(req.Accepted))
	}
	if len(req.Rejected) != 1 {
		t.Fatalf("rejected = %d, want 1", len(req.Rejected))
	}
	if got := req.Rejected[0].Index; got != 1 {
		t.Errorf("rejected row index = %d, want 1", got)
	}
	if got := req.Rejected[0].Errors[0].Field; got != "date" {
		t.Errorf("rejected field = %s, want date", got)
	}
	// Row order is preserved in Results regardless of outcome
	for i, r := range req.Results {
		if r.Index != i {
			t.Errorf("results[%d].Index = %d", i, r.Index)
		}
	}
}

func TestParseTradeRow(t *testing.T) {
	p := newTestParser()
	res := p.parseRow(0, "buy abc 10.5 @ 100,25 fee 0,50 on 2026-02-01")

	if !res.Accepted() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	tx := res.Draft.Transaction
	if tx == nil {
		t.Fatal("expected transaction draft")
	}
	if tx.Symbol != "ABC" {
		t.Errorf("symbol = %s, want ABC", tx.Symbol)
	}
	if got := tx.Quantity.String(); got != "10.5" {
		t.Errorf("quantity = %s, want 10.5", got)
	}
	if got := tx.UnitPrice.String(); got != "100.25" {
		t.Errorf("price = %s, want 100.25", got)
	}
	if got := tx.Fee.String(); got != "0.5" {
		t.Errorf("fee = %s, want 0.5", got)
	}
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if !tx.OccurredAt.Equal(want) {
		t.Errorf("occurredAt = %v, want %v", tx.OccurredAt, want)
	}
}

func TestParseRowForms(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name string
		row  string
		ok   bool
	}{
		{"sell with fee", "SELL XYZ 3 @ 45.10 fee 0.25", true},
		{"dividend", "DIVIDEND ABC 25.40", true},
		{"fee", "FEE 9.99", true},
		{"deposit", "DEPOSIT 10000", true},
		{"withdraw", "WITHDRAW 250.00", true},
		{"withdrawal alias", "WITHDRAWAL 250.00", true},
		{"rfc3339 date", "DEPOSIT 100 on 2026-02-01T09:30:00Z", true},
		{"empty row", "   ", false},
		{"unknown keyword", "SHORT ABC 10 @ 100", false},
		{"missing at separator", "BUY ABC 10 100", false},
		{"negative quantity", "BUY ABC -1 @ 100", false},
		{"zero deposit", "DEPOSIT 0", false},
		{"bad symbol", "BUY 1ABC 10 @ 100", false},
		{"symbol too long", "BUY ABCDEFGHIJK 10 @ 100", false},
		{"quantity too precise", "BUY ABC 1.1234567 @ 100", false},
		{"trailing junk", "DEPOSIT 100 tomorrow", false},
		{"future beyond grace", "DEPOSIT 100 on 2026-03-10", false},
		{"future within grace", "DEPOSIT 100 on 2026-03-02", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := p.parseRow(0, tc.row)
			if res.Accepted() != tc.ok {
				t.Errorf("parseRow(%q) accepted = %v, errors = %v", tc.row, res.Accepted(), res.Errors)
			}
		})
	}
}

func TestParseDividendMapsToPerShareAmount(t *testing.T) {
	p := newTestParser()
	res := p.parseRow(0, "DIVIDEND ABC 25.40")
	if !res.Accepted() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	tx := res.Draft.Transaction
	if got := tx.Quantity.String(); got != "1" {
		t.Errorf("quantity = %s, want 1", got)
	}
	if got := tx.UnitPrice.String(); got != "25.4" {
		t.Errorf("unit price = %s, want 25.4", got)
	}
	if got := tx.CashEffect().String(); got != "25.4" {
		t.Errorf("cash effect = %s, want 25.4", got)
	}
}

func TestParseRowCollectsAllFieldErrors(t *testing.T) {
	p := newTestParser()
	res := p.parseRow(3, "BUY 9bad -2 @ -5")

	if res.Accepted() {
		t.Fatal("expected rejection")
	}
	if len(res.Errors) < 3 {
		t.Fatalf("errors = %v, want symbol, quantity and price failures", res.Errors)
	}
	for _, e := range res.Errors {
		if e.Row != 3 {
			t.Errorf("error row = %d, want 3", e.Row)
		}
	}
	if res.Draft != nil {
		t.Error("rejected row must not carry a draft")
	}
}

func TestParseRowDefaultsDateToNow(t *testing.T) {
	p := newTestParser()
	res := p.parseRow(0, "DEPOSIT 100")
	if !res.Accepted() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if !res.Draft.Transfer.OccurredAt.Equal(parserNow) {
		t.Errorf("occurredAt = %v, want parse time", res.Draft.Transfer.OccurredAt)
	}
}

func TestNormalizeDecimal(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0,8", "0.8"},
		{"1.234,56", "1234.56"},
		{"100.25", "100.25"},
		{"42", "42"},
	}
	for _, tc := range tests {
		if got := normalizeDecimal(tc.in); got != tc.want {
			t.Errorf("normalizeDecimal(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
