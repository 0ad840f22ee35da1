package enums

import "fmt"

// PaymentStatus tracks the state of a recorded payment.
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "Pending"
	PaymentStatusPartiallyPaid PaymentStatus = "PartiallyPaid"
	PaymentStatusCompleted     PaymentStatus = "Completed"
	PaymentStatusFailed        PaymentStatus = "Failed"
	PaymentStatusRefunded      PaymentStatus = "Refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPartiallyPaid,
	PaymentStatusCompleted,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// PaymentStatuses returns every known status.
func PaymentStatuses() []PaymentStatus {
	out := make([]PaymentStatus, len(validPaymentStatuses))
	copy(out, validPaymentStatuses)
	return out
}

// ParsePaymentStatus converts loosely formatted input ("partially paid",
// "Partially_Paid", "COMPLETED") into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	key := foldEnumKey(value)
	for _, candidate := range validPaymentStatuses {
		if foldEnumKey(string(candidate)) == key {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
