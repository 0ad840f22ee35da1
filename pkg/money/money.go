// Package money keeps amounts as integer minor units and does all arithmetic
// through shopspring/decimal so rounding is explicit.
package money

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount in minor currency units (paise for INR).
type Cents int64

var hundred = decimal.NewFromInt(100)

// FromDecimal rounds d to two places and converts it to Cents.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Round(2).Shift(2).IntPart())
}

// FromFloat converts a major-unit float such as 10.5 into Cents.
func FromFloat(f float64) Cents {
	return FromDecimal(decimal.NewFromFloat(f))
}

// Parse reads a major-unit string such as "1249.50".
func Parse(value string) (Cents, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return FromDecimal(d), nil
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float returns the amount in major units. Only for presentation.
func (c Cents) Float() float64 {
	f, _ := c.Decimal().Float64()
	return f
}

// String renders the amount with exactly two decimals.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MarshalJSON emits a JSON number with two decimals, e.g. 1000.00.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string in major units.
func (c *Cents) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(raw) == 0 || string(raw) == "null" {
		*c = 0
		return nil
	}
	parsed, err := Parse(string(raw))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Percent returns pct percent of c, rounded to the nearest minor unit.
func (c Cents) Percent(pct decimal.Decimal) Cents {
	return FromDecimal(c.Decimal().Mul(pct).Div(hundred))
}

// MulQty multiplies a unit price by a quantity.
func (c Cents) MulQty(qty int) Cents {
	return c * Cents(qty)
}

// Abs returns the absolute value.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// Amount pairs a value with its currency for API responses.
type Amount struct {
	Value    Cents  `json:"amount"`
	Currency string `json:"currency"`
}
