package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics counts order and payment activity for the API process.
type DomainMetrics struct {
	ordersCreated     *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	stockRejections   prometheus.Counter
	paymentsRecorded  *prometheus.CounterVec
	overpayments      prometheus.Counter
}

// NewDomainMetrics registers the domain counters on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created, by placing role.",
		}, []string{"role"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Applied order status transitions.",
		}, []string{"from", "to"}),
		stockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_stock_rejections_total",
			Help: "Order writes rejected for insufficient stock.",
		}),
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_recorded_total",
			Help: "Payments recorded, by method and status.",
		}, []string{"method", "status"}),
		overpayments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payment_overpayment_rejections_total",
			Help: "Payments rejected because they exceed the remaining balance.",
		}),
	}
	reg.MustRegister(m.ordersCreated, m.statusTransitions, m.stockRejections, m.paymentsRecorded, m.overpayments)
	return m
}

func (m *DomainMetrics) OrderCreated(role string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(role)).Inc()
}

func (m *DomainMetrics) StatusTransition(from, to string) {
	if m == nil || m.statusTransitions == nil {
		return
	}
	m.statusTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *DomainMetrics) StockRejected() {
	if m == nil || m.stockRejections == nil {
		return
	}
	m.stockRejections.Inc()
}

func (m *DomainMetrics) PaymentRecorded(method, status string) {
	if m == nil || m.paymentsRecorded == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(normalizeLabel(method), normalizeLabel(status)).Inc()
}

func (m *DomainMetrics) OverpaymentRejected() {
	if m == nil || m.overpayments == nil {
		return
	}
	m.overpayments.Inc()
}
