package domain

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

const (
	// MoneyScale is the number of fraction digits carried by monetary amounts.
	MoneyScale = 4
	// QuantityScale is the number of fraction digits carried by share quantities.
	QuantityScale = 6
)

// ErrNumericOverflow indicates a value outside the representable range.
var ErrNumericOverflow = errors.New("numeric value out of range")

// maxMagnitude bounds the integer part of any Amount or Quantity.
var maxMagnitude = decimal.New(1, 15)

var (
	moneyPattern    = regexp.MustCompile(`^[+-]?\d+(\.\d{1,4})?$`)
	quantityPattern = regexp.MustCompile(`^[+-]?\d+(\.\d{1,6})?$`)
)

// Amount is an exact base-10 monetary value with at most MoneyScale
// fraction digits. The zero value is zero money.
type Amount struct {
	dec decimal.Decimal
}

// Quantity is an exact base-10 share count with at most QuantityScale
// fraction digits. The zero value is zero shares.
type Quantity struct {
	dec decimal.Decimal
}

// ParseAmount parses canonical decimal text into an Amount. The accepted
// grammar is an optional sign, digits, and up to four fraction digits.
// Formatting the result yields the same canonical text back.
func ParseAmount(s string) (Amount, error) {
	if !moneyPattern.MatchString(s) {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Abs().GreaterThanOrEqual(maxMagnitude) {
		return Amount{}, fmt.Errorf("amount %q: %w", s, ErrNumericOverflow)
	}
	return Amount{dec: d}, nil
}

// ParseQuantity parses canonical decimal text into a Quantity, accepting
// up to six fraction digits.
func ParseQuantity(s string) (Quantity, error) {
	if !quantityPattern.MatchString(s) {
		return Quantity{}, fmt.Errorf("invalid quantity %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	if d.Abs().GreaterThanOrEqual(maxMagnitude) {
		return Quantity{}, fmt.Errorf("quantity %q: %w", s, ErrNumericOverflow)
	}
	return Quantity{dec: d}, nil
}

// AmountFromInt builds an Amount from whole currency units.
func AmountFromInt(n int64) Amount {
	return Amount{dec: decimal.NewFromInt(n)}
}

// QuantityFromInt builds a Quantity from whole shares.
func QuantityFromInt(n int64) Quantity {
	return Quantity{dec: decimal.NewFromInt(n)}
}

// AmountFromDecimal clamps an arbitrary decimal to MoneyScale using
// banker's rounding. It is the boundary for values scanned from storage.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	if d.Abs().GreaterThanOrEqual(maxMagnitude) {
		return Amount{}, ErrNumericOverflow
	}
	return Amount{dec: d.RoundBank(MoneyScale)}, nil
}

// QuantityFromDecimal clamps an arbitrary decimal to QuantityScale using
// banker's rounding.
func QuantityFromDecimal(d decimal.Decimal) (Quantity, error) {
	if d.Abs().GreaterThanOrEqual(maxMagnitude) {
		return Quantity{}, ErrNumericOverflow
	}
	return Quantity{dec: d.RoundBank(QuantityScale)}, nil
}

func (a Amount) Add(b Amount) Amount { return Amount{dec: a.dec.Add(b.dec)} }
func (a Amount) Sub(b Amount) Amount { return Amount{dec: a.dec.Sub(b.dec)} }
func (a Amount) Neg() Amount         { return Amount{dec: a.dec.Neg()} }

// Div divides by a nonzero divisor, rounding the result to MoneyScale
// with banker's rounding.
func (a Amount) Div(b Amount) Amount {
	return Amount{dec: a.dec.DivRound(b.dec, MoneyScale+2).RoundBank(MoneyScale)}
}

// Truncate drops excess precision without rounding.
func (a Amount) Truncate() Amount {
	return Amount{dec: a.dec.Truncate(MoneyScale)}
}

// InRange reports whether the magnitude is still inside the
// representable bound. Arithmetic never truncates or fails on its own;
// callers assert range where a result becomes durable.
func (a Amount) InRange() bool { return a.dec.Abs().LessThan(maxMagnitude) }

func (a Amount) Cmp(b Amount) int          { return a.dec.Cmp(b.dec) }
func (a Amount) LessThan(b Amount) bool    { return a.dec.LessThan(b.dec) }
func (a Amount) GreaterThan(b Amount) bool { return a.dec.GreaterThan(b.dec) }
func (a Amount) IsZero() bool              { return a.dec.IsZero() }
func (a Amount) IsNegative() bool          { return a.dec.IsNegative() }
func (a Amount) IsPositive() bool          { return a.dec.IsPositive() }

// String renders the canonical text form: minimal digits, no trailing
// fraction zeros. ParseAmount(a.String()) round-trips exactly.
func (a Amount) String() string { return a.dec.String() }

// StringFixed renders with exactly MoneyScale fraction digits, the form
// used for display and for NUMERIC column round trips.
func (a Amount) StringFixed() string { return a.dec.StringFixed(MoneyScale) }

// Decimal exposes the underlying decimal for storage codecs.
func (a Amount) Decimal() decimal.Decimal { return a.dec }

func (q Quantity) Add(p Quantity) Quantity { return Quantity{dec: q.dec.Add(p.dec)} }
func (q Quantity) Sub(p Quantity) Quantity { return Quantity{dec: q.dec.Sub(p.dec)} }

// InRange reports whether the magnitude is still inside the
// representable bound.
func (q Quantity) InRange() bool { return q.dec.Abs().LessThan(maxMagnitude) }

func (q Quantity) Cmp(p Quantity) int       { return q.dec.Cmp(p.dec) }
func (q Quantity) LessThan(p Quantity) bool { return q.dec.LessThan(p.dec) }
func (q Quantity) IsZero() bool             { return q.dec.IsZero() }
func (q Quantity) IsNegative() bool         { return q.dec.IsNegative() }
func (q Quantity) IsPositive() bool         { return q.dec.IsPositive() }

// String renders the canonical text form, round-trip exact.
func (q Quantity) String() string { return q.dec.String() }

// StringFixed renders with exactly QuantityScale fraction digits.
func (q Quantity) StringFixed() string { return q.dec.StringFixed(QuantityScale) }

// Decimal exposes the underlying decimal for storage codecs.
func (q Quantity) Decimal() decimal.Decimal { return q.dec }

// MulPrice computes quantity × unit price as money, rounded to
// MoneyScale with banker's rounding.
func (q Quantity) MulPrice(price Amount) Amount {
	return Amount{dec: q.dec.Mul(price.dec).RoundBank(MoneyScale)}
}

// WeightedAverageCost recomputes the average cost after a buy of addQty
// at addPrice on top of oldQty held at oldAvg. The divisor oldQty+addQty
// must be positive.
func WeightedAverageCost(oldQty Quantity, oldAvg Amount, addQty Quantity, addPrice Amount) Amount {
	totalCost := oldQty.dec.Mul(oldAvg.dec).Add(addQty.dec.Mul(addPrice.dec))
	totalQty := oldQty.dec.Add(addQty.dec)
	return Amount{dec: totalCost.DivRound(totalQty, MoneyScale+2).RoundBank(MoneyScale)}
}

// MarshalJSON renders amounts as canonical decimal strings.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.dec.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted canonical decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s, err := unquote(data)
	if err != nil {
		return err
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON renders quantities as canonical decimal strings.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + q.dec.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted canonical decimal string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	s, err := unquote(data)
	if err != nil {
		return err
	}
	parsed, err := ParseQuantity(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func unquote(data []byte) (string, error) {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return "", fmt.Errorf("expected quoted decimal, got %s", data)
	}
	return string(data[1 : len(data)-1]), nil
}
