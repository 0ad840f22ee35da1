package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.OrderCreated("retailer")
	m.OrderCreated("retailer")
	m.StatusTransition("placed", "confirmed")
	m.PaymentRecorded("UPI", "Completed")
	m.StockRejected()
	m.OverpaymentRejected()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, sample(t, mfs, "orders_created_total", map[string]string{"role": "retailer"}))
	assert.Equal(t, 1.0, sample(t, mfs, "order_status_transitions_total", map[string]string{"from": "placed", "to": "confirmed"}))
	assert.Equal(t, 1.0, sample(t, mfs, "payments_recorded_total", map[string]string{"method": "UPI", "status": "Completed"}))
	assert.Equal(t, 1.0, sample(t, mfs, "order_stock_rejections_total", nil))
	assert.Equal(t, 1.0, sample(t, mfs, "payment_overpayment_rejections_total", nil))
}

func TestDomainMetricsNilSafe(t *testing.T) {
	var m *DomainMetrics
	m.OrderCreated("admin")
	m.StatusTransition("placed", "shipped")
	m.PaymentRecorded("Cash", "Pending")
	m.StockRejected()
	m.OverpaymentRejected()

	NewDomainMetrics(nil).OrderCreated("admin")
}
