package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "casa"

// Domain records order, credit and return activity. A nil *Domain is valid
// and records nothing.
type Domain struct {
	ordersPlaced      *prometheus.CounterVec
	placementFailures *prometheus.CounterVec
	orderValue        prometheus.Histogram
	creditMovements   *prometheus.CounterVec
	creditCents       *prometheus.CounterVec
	itemTransitions   *prometheus.CounterVec
	returnDecisions   *prometheus.CounterVec
	ratingsSubmitted  prometheus.Counter
}

// NewDomain registers the domain metrics on the provided registerer.
func NewDomain(reg prometheus.Registerer) *Domain {
	if reg == nil {
		return nil
	}
	d := &Domain{
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders committed, by payment method.",
		}, []string{"payment_method"}),
		placementFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_placement_failures_total",
			Help:      "Rejected or aborted order placements, by error code.",
		}, []string{"code"}),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_grand_total_cents",
			Help:      "Grand total of placed orders in minor units.",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 10),
		}),
		creditMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_movements_total",
			Help:      "Store credit ledger entries, by type.",
		}, []string{"type"}),
		creditCents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_movement_cents_total",
			Help:      "Store credit moved in minor units, by type.",
		}, []string{"type"}),
		itemTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_item_transitions_total",
			Help:      "Order item status transitions.",
		}, []string{"from", "to"}),
		returnDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "return_decisions_total",
			Help:      "Return approval decisions, by gate and outcome.",
		}, []string{"gate", "decision"}),
		ratingsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratings_submitted_total",
			Help:      "Ratings accepted by the rating gate.",
		}),
	}
	reg.MustRegister(
		d.ordersPlaced,
		d.placementFailures,
		d.orderValue,
		d.creditMovements,
		d.creditCents,
		d.itemTransitions,
		d.returnDecisions,
		d.ratingsSubmitted,
	)
	return d
}

func (d *Domain) OrderPlaced(paymentMethod string, grandTotalCents int64) {
	if d == nil {
		return
	}
	d.ordersPlaced.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
	d.orderValue.Observe(float64(grandTotalCents))
}

func (d *Domain) OrderPlacementFailed(code string) {
	if d == nil {
		return
	}
	d.placementFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

func (d *Domain) CreditMoved(kind string, cents int64) {
	if d == nil {
		return
	}
	d.creditMovements.WithLabelValues(normalizeLabel(kind)).Inc()
	d.creditCents.WithLabelValues(normalizeLabel(kind)).Add(float64(cents))
}

func (d *Domain) ItemTransitioned(from, to string) {
	if d == nil {
		return
	}
	d.itemTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (d *Domain) ReturnDecided(gate string, approved bool) {
	if d == nil {
		return
	}
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	d.returnDecisions.WithLabelValues(normalizeLabel(gate), decision).Inc()
}

func (d *Domain) RatingSubmitted() {
	if d == nil {
		return
	}
	d.ratingsSubmitted.Inc()
}

// HTTP records request counts and latency per routed pattern.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	if reg == nil {
		return nil
	}
	h := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(h.requests, h.duration)
	return h
}

func (h *HTTP) Observe(method, route string, status int, elapsed time.Duration) {
	if h == nil {
		return
	}
	route = normalizeLabel(route)
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
