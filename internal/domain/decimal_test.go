package domain

import (
	"errors"
	"testing"
)

func TestParseAmountRoundTrip(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"0", "0"},
		{"100", "100"},
		{"100.00", "100"},
		{"100.5", "100.5"},
		{"1.1000", "1.1"},
		{"-12.345", "-12.345"},
		{"+5", "5"},
		{"0.0001", "0.0001"},
		{"999999999999999", "999999999999999"},
	}
	for _, tc := range cases {
		a, err := ParseAmount(tc.input)
		if err != nil {
			t.Errorf("ParseAmount(%q) unexpected error: %v", tc.input, err)
			continue
		}
		if got := a.String(); got != tc.want {
			t.Errorf("ParseAmount(%q).String() = %q, want %q", tc.input, got, tc.want)
		}
		// Canonical text parses back to the same value
		back, err := ParseAmount(a.String())
		if err != nil {
			t.Errorf("reparsing %q failed: %v", a.String(), err)
			continue
		}
		if back.Cmp(a) != 0 {
			t.Errorf("round trip of %q changed value: %s != %s", tc.input, back, a)
		}
	}
}

func TestParseAmountRejectsInvalid(t *testing.T) {
	cases := []string{
		"",
		"abc",
		"1.2.3",
		"1,5",
		"1.23456", // five fraction digits, money carries four
		"1e5",
		".5",
		"5.",
		"NaN",
	}
	for _, input := range cases {
		if _, err := ParseAmount(input); err == nil {
			t.Errorf("ParseAmount(%q) succeeded, want error", input)
		}
	}
}

func TestParseAmountOverflow(t *testing.T) {
	_, err := ParseAmount("1000000000000000")
	if !errors.Is(err, ErrNumericOverflow) {
		t.Errorf("error = %v, want ErrNumericOverflow", err)
	}

	// One below the bound is fine
	if _, err := ParseAmount("999999999999999.9999"); err != nil {
		t.Errorf("unexpected error at bound: %v", err)
	}
}

func TestParseQuantityScale(t *testing.T) {
	if _, err := ParseQuantity("1.123456"); err != nil {
		t.Errorf("six fraction digits should parse: %v", err)
	}
	if _, err := ParseQuantity("1.1234567"); err == nil {
		t.Error("seven fraction digits should be rejected")
	}
}

func TestMulPriceBankersRounding(t *testing.T) {
	cases := []struct {
		qty   string
		price string
		want  string
	}{
		{"10", "100", "1000"},
		{"0.5", "0.0001", "0"},       // 0.00005 rounds half to even → 0.0000
		{"1.5", "0.0001", "0.0002"},  // 0.00015 rounds half to even → 0.0002
		{"3", "33.3333", "99.9999"},
	}
	for _, tc := range cases {
		qty := mustQuantity(t, tc.qty)
		price := mustAmount(t, tc.price)
		if got := qty.MulPrice(price).String(); got != tc.want {
			t.Errorf("%s × %s = %s, want %s", tc.qty, tc.price, got, tc.want)
		}
	}
}

func TestWeightedAverageCost(t *testing.T) {
	cases := []struct {
		name                       string
		oldQty, oldAvg, qty, price string
		want                       string
	}{
		{"equal lots", "10", "100", "10", "200", "150"},
		{"uneven lots", "10", "100", "5", "130", "110"},
		{"fractional", "1.5", "10", "0.5", "20", "12.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := WeightedAverageCost(
				mustQuantity(t, tc.oldQty), mustAmount(t, tc.oldAvg),
				mustQuantity(t, tc.qty), mustAmount(t, tc.price))
			if got.String() != tc.want {
				t.Errorf("average cost = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	a := mustAmount(t, "10.50")
	b := mustAmount(t, "0.25")

	if got := a.Add(b).String(); got != "10.75" {
		t.Errorf("Add = %s, want 10.75", got)
	}
	if got := a.Sub(b).String(); got != "10.25" {
		t.Errorf("Sub = %s, want 10.25", got)
	}
	if got := a.Neg().String(); got != "-10.5" {
		t.Errorf("Neg = %s, want -10.5", got)
	}
	if !a.GreaterThan(b) || b.GreaterThan(a) {
		t.Error("comparison is not total")
	}
}

func TestAmountJSONRoundTrip(t *testing.T) {
	a := mustAmount(t, "1234.5678")

	data, err := a.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"1234.5678"` {
		t.Errorf("marshaled = %s, want \"1234.5678\"", data)
	}

	var back Amount
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Cmp(a) != 0 {
		t.Errorf("round trip changed value: %s != %s", back, a)
	}
}

func TestInRange(t *testing.T) {
	big := mustAmount(t, "900000000000000")
	if !big.InRange() {
		t.Error("parseable amount should be in range")
	}
	// Parsing bounds each operand; sums can still leave the range.
	if big.Add(big).InRange() {
		t.Error("sum past 10^15 must report out of range")
	}
	if big.Neg().Add(big.Neg()).InRange() {
		t.Error("range check is on magnitude, negative sums count too")
	}

	bigQty := mustQuantity(t, "900000000000000")
	if bigQty.Add(bigQty).InRange() {
		t.Error("quantity sum past 10^15 must report out of range")
	}
}

func mustAmount(t *testing.T, s string) Amount {
	t.Helper()
	a, err := ParseAmount(s)
	if err != nil {
		t.Fatalf("ParseAmount(%q): %v", s, err)
	}
	return a
}

func mustQuantity(t *testing.T, s string) Quantity {
	t.Helper()
	q, err := ParseQuantity(s)
	if err != nil {
		t.Fatalf("ParseQuantity(%q): %v", s, err)
	}
	return q
}
