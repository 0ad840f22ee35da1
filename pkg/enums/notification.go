package enums

import "fmt"

// NotificationType groups inbox entries so clients can filter them.
type NotificationType string

const (
	NotificationTypeOrder   NotificationType = "order"
	NotificationTypePayment NotificationType = "payment"
	NotificationTypeStock   NotificationType = "stock"
)

func (n NotificationType) IsValid() bool {
	switch n {
	case NotificationTypeOrder, NotificationTypePayment, NotificationTypeStock:
		return true
	}
	return false
}

func ParseNotificationType(value string) (NotificationType, error) {
	if n := NotificationType(value); n.IsValid() {
		return n, nil
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
