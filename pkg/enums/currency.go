package enums

import (
	"fmt"
	"strings"
)

// Currency is the ISO 4217 code stamped on every money figure. Amounts are
// stored in the minor unit (paise for INR).
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
)

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyINR, CurrencyUSD:
		return true
	}
	return false
}

// ParseCurrency accepts any case and surrounding space: " inr" is INR.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", value)
	}
	return c, nil
}
