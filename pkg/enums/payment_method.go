package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod identifies how money changed hands.
type PaymentMethod string

const (
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodCash       PaymentMethod = "Cash"
	PaymentMethodCard       PaymentMethod = "Card"
	PaymentMethodNetBanking PaymentMethod = "NetBanking"
	PaymentMethodWallet     PaymentMethod = "Wallet"
	PaymentMethodOther      PaymentMethod = "Other"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodUPI,
	PaymentMethodCash,
	PaymentMethodCard,
	PaymentMethodNetBanking,
	PaymentMethodWallet,
	PaymentMethodOther,
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts loosely formatted input ("net banking",
// "Net_Banking", "upi") into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	key := foldEnumKey(value)
	for _, candidate := range validPaymentMethods {
		if foldEnumKey(string(candidate)) == key {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// foldEnumKey lowercases and drops separators so that spacing and
// underscore variants of the same label compare equal.
func foldEnumKey(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch r {
		case ' ', '_', '-', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
