package recon

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountSide is one side of an amount comparison: an integer magnitude in
// minor units at a declared precision, plus the currency symbol it is
// quoted in.
type AmountSide struct {
	Units    decimal.Decimal
	Decimals int64
	Currency string
}

// Comparison is the outcome of comparing two amount sides.
type Comparison int

const (
	// AmountsEqual means both sides represent the same magnitude of the
	// same currency after scaling to a common precision.
	AmountsEqual Comparison = iota

	// AmountsUnequal means the currencies agree but the magnitudes differ.
	AmountsUnequal

	// CurrencyMismatch means the currency symbols differ. Reported even
	// when the magnitudes happen to coincide.
	CurrencyMismatch
)

// MaxDecimals bounds a declared precision. 18 covers native EVM assets;
// 76 is the full span a 256-bit magnitude can occupy in decimal digits.
// Anything past that is nonsense input, rejected before the int32 shifts
// below could truncate it.
const MaxDecimals = 76

func checkDecimals(decimals int64) error {
	if decimals < 0 || decimals > MaxDecimals {
		return fmt.Errorf("decimals %d out of range [0, %d]", decimals, MaxDecimals)
	}
	return nil
}

// SideFromMoney builds an AmountSide from a declared amount. The decimal
// string is shifted into minor units at the declared precision; more
// fractional digits than the precision allows is an error, never a
// silent truncation.
func SideFromMoney(m Money) (AmountSide, error) {
	if err := checkDecimals(m.Decimals); err != nil {
		return AmountSide{}, err
	}
	d, err := decimal.NewFromString(m.Value)
	if err != nil {
		return AmountSide{}, fmt.Errorf("unparseable amount %q: %w", m.Value, err)
	}
	units := d.Shift(int32(m.Decimals))
	if !units.IsInteger() {
		return AmountSide{}, fmt.Errorf("amount %q has more precision than %d decimals", m.Value, m.Decimals)
	}
	return AmountSide{Units: units, Decimals: m.Decimals, Currency: m.Currency}, nil
}

// SideFromRaw builds an AmountSide from a raw integer magnitude, as chain
// events carry them.
func SideFromRaw(raw string, decimals int64, symbol string) (AmountSide, error) {
	if err := checkDecimals(decimals); err != nil {
		return AmountSide{}, err
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return AmountSide{}, fmt.Errorf("unparseable raw amount %q: %w", raw, err)
	}
	if !d.IsInteger() {
		return AmountSide{}, fmt.Errorf("raw amount %q is not an integer", raw)
	}
	return AmountSide{Units: d, Decimals: decimals, Currency: symbol}, nil
}

// CompareAmounts compares two sides after scaling both to the higher of the
// two precisions. Scaling is integer multiplication by a power of ten only:
// no division, no floating point, so no precision can be lost on the way to
// the comparison.
//
// A currency mismatch short-circuits before any magnitude comparison.
func CompareAmounts(a, b AmountSide) Comparison {
	if a.Currency != "" && b.Currency != "" && a.Currency != b.Currency {
		return CurrencyMismatch
	}

	maxDec := a.Decimals
	if b.Decimals > maxDec {
		maxDec = b.Decimals
	}
	as := a.Units.Shift(int32(maxDec - a.Decimals))
	bs := b.Units.Shift(int32(maxDec - b.Decimals))

	if as.Equal(bs) {
		return AmountsEqual
	}
	return AmountsUnequal
}

// Human renders a side as a human-readable decimal amount at its own
// precision, for discrepancy text.
func (s AmountSide) Human() string {
	return s.Units.Shift(int32(-s.Decimals)).String()
}
