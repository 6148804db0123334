package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Wallet metrics
	WalletPostings *prometheus.CounterVec

	// Purchase metrics
	Purchases      *prometheus.CounterVec
	TicketsIssued  prometheus.Counter
	RecoveredSagas *prometheus.CounterVec

	// Ticket metrics
	TicketTransfers   prometheus.Counter
	TicketRedemptions *prometheus.CounterVec

	// Payment metrics
	InvoicesCreated *prometheus.CounterVec
	Webhooks        *prometheus.CounterVec

	// Reconciliation metrics
	ReconciliationDiscrepancies prometheus.Gauge

	// Outbox metrics
	OutboxPublished *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		WalletPostings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxoffice_wallet_postings_total",
				Help: "Ledger entries written by entry type and currency",
			},
			[]string{"type", "currency"},
		),

		Purchases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxoffice_purchases_total",
				Help: "Checkout attempts by outcome",
			},
			[]string{"outcome"},
		),
		TicketsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "boxoffice_tickets_issued_total",
			Help: "Tickets issued by completed purchases",
		}),
		RecoveredSagas: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxoffice_recovered_purchases_total",
				Help: "Stuck purchases resolved by the recovery worker",
			},
			[]string{"outcome"},
		),

		TicketTransfers: factory.NewCounter(prometheus.CounterOpts{
			Name: "boxoffice_ticket_transfers_total",
			Help: "Tickets handed to another user",
		}),
		TicketRedemptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxoffice_ticket_redemptions_total",
				Help: "Venue scans by result",
			},
			[]string{"result"},
		),

		InvoicesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxoffice_invoices_created_total",
				Help: "Crypto invoice requests by result",
			},
			[]string{"result"},
		),
		Webhooks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxoffice_payment_webhooks_total",
				Help: "Processor callbacks by result",
			},
			[]string{"result"},
		),

		ReconciliationDiscrepancies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "boxoffice_reconciliation_discrepancies",
			Help: "Users whose balance disagreed with their entries in the last report",
		}),

		OutboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxoffice_outbox_published_total",
				Help: "Outbox events relayed to the broker by result",
			},
			[]string{"result"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxoffice_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boxoffice_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "boxoffice_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxoffice_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),
	}
}

// The helpers below accept a nil receiver so callers need not guard optional metrics.

// ObservePurchase counts one checkout outcome and the tickets it issued.
func (m *Metrics) ObservePurchase(outcome string, tickets int) {
	if m == nil {
		return
	}
	m.Purchases.WithLabelValues(outcome).Inc()
	if tickets > 0 {
		m.TicketsIssued.Add(float64(tickets))
	}
}

// ObservePosting counts a ledger entry.
func (m *Metrics) ObservePosting(entryType, currency string) {
	if m == nil {
		return
	}
	m.WalletPostings.WithLabelValues(entryType, currency).Inc()
}

// ObserveRedemption counts a venue scan.
func (m *Metrics) ObserveRedemption(result string) {
	if m == nil {
		return
	}
	m.TicketRedemptions.WithLabelValues(result).Inc()
}

// ObserveTransfer counts a ticket transfer.
func (m *Metrics) ObserveTransfer() {
	if m == nil {
		return
	}
	m.TicketTransfers.Inc()
}

// ObserveInvoice counts an invoice request.
func (m *Metrics) ObserveInvoice(result string) {
	if m == nil {
		return
	}
	m.InvoicesCreated.WithLabelValues(result).Inc()
}

// ObserveWebhook counts a processor callback.
func (m *Metrics) ObserveWebhook(result string) {
	if m == nil {
		return
	}
	m.Webhooks.WithLabelValues(result).Inc()
}

// ObserveRecovery counts the purchases one sweep resolved.
func (m *Metrics) ObserveRecovery(completed, compensated int) {
	if m == nil {
		return
	}
	m.RecoveredSagas.WithLabelValues("completed").Add(float64(completed))
	m.RecoveredSagas.WithLabelValues("compensated").Add(float64(compensated))
}

// ObserveOutbox counts one relay attempt.
func (m *Metrics) ObserveOutbox(result string) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(result).Inc()
}

// SetDiscrepancies records the latest reconciliation result.
func (m *Metrics) SetDiscrepancies(n int) {
	if m == nil {
		return
	}
	m.ReconciliationDiscrepancies.Set(float64(n))
}

// ObserveRateLimited counts a rejected request.
func (m *Metrics) ObserveRateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(scope).Inc()
}
