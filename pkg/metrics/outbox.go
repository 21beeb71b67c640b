package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox tracks the relay that ships outbox rows to the broker.
type Outbox struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	exhausted *prometheus.CounterVec
	batch     prometheus.Histogram
}

func NewOutbox(reg prometheus.Registerer) *Outbox {
	if reg == nil {
		return nil
	}
	o := &Outbox{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events acknowledged by the broker, by event type.",
		}, []string{"event_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "publish_failures_total",
			Help:      "Failed publish attempts, by event type.",
		}, []string{"event_type"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "exhausted_total",
			Help:      "Events that used their last attempt and will not be retried.",
		}, []string{"event_type"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "batch_size",
			Help:      "Rows claimed per relay pass.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),
	}
	reg.MustRegister(o.published, o.failed, o.exhausted, o.batch)
	return o
}

func (o *Outbox) Batch(size int) {
	if o == nil {
		return
	}
	o.batch.Observe(float64(size))
}

func (o *Outbox) Published(eventType string) {
	if o == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (o *Outbox) Failed(eventType string, exhausted bool) {
	if o == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
	if exhausted {
		o.exhausted.WithLabelValues(normalizeLabel(eventType)).Inc()
	}
}
