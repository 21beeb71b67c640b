package outbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/config"
	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	"github.com/casamarket/casa-backend/pkg/logger"
	"github.com/casamarket/casa-backend/pkg/metrics"
)

// Message is one outbox row addressed to a broker topic.
type Message struct {
	ID         uuid.UUID
	Topic      string
	Data       []byte
	Attributes map[string]string
}

// Sink hands messages to a broker. Send must not block on the broker; the
// returned Ack does.
type Sink interface {
	Send(ctx context.Context, msg Message) Ack
}

type Ack interface {
	Wait(ctx context.Context) error
}

type relayStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type RelayConfig struct {
	BatchSize    int
	MaxAttempts  int
	PollInterval time.Duration
	AckTimeout   time.Duration
	MaxBackoff   time.Duration
}

// RelayConfigFrom fills unset values with the relay defaults.
func RelayConfigFrom(cfg config.OutboxConfig) RelayConfig {
	rc := RelayConfig{
		BatchSize:    cfg.BatchSize,
		MaxAttempts:  cfg.MaxAttempts,
		PollInterval: cfg.PollInterval,
		AckTimeout:   cfg.AckTimeout,
		MaxBackoff:   cfg.MaxBackoff,
	}
	if rc.BatchSize <= 0 {
		rc.BatchSize = 50
	}
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = 10
	}
	if rc.PollInterval <= 0 {
		rc.PollInterval = 500 * time.Millisecond
	}
	if rc.AckTimeout <= 0 {
		rc.AckTimeout = 15 * time.Second
	}
	if rc.MaxBackoff <= 0 {
		rc.MaxBackoff = 10 * time.Second
	}
	return rc
}

// Relay moves committed outbox rows to a Sink. Rows are claimed inside a
// transaction, sent as a batch, and then settled one by one as acks arrive.
type Relay struct {
	tx      txRunner
	store   relayStore
	sink    Sink
	topic   func(enums.OutboxEventType) string
	cfg     RelayConfig
	logg    *logger.Logger
	metrics *metrics.Outbox
	wait    func(ctx context.Context, d time.Duration) error
}

type RelayParams struct {
	Tx      txRunner
	Store   relayStore
	Sink    Sink
	Topic   func(enums.OutboxEventType) string
	Config  RelayConfig
	Logger  *logger.Logger
	Metrics *metrics.Outbox
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Tx == nil:
		return nil, errors.New("tx runner required")
	case p.Store == nil:
		return nil, errors.New("outbox store required")
	case p.Sink == nil:
		return nil, errors.New("sink required")
	case p.Topic == nil:
		return nil, errors.New("topic router required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &Relay{
		tx:      p.Tx,
		store:   p.Store,
		sink:    p.Sink,
		topic:   p.Topic,
		cfg:     p.Config,
		logg:    p.Logger,
		metrics: p.Metrics,
		wait:    sleepCtx,
	}, nil
}

// Run drains until ctx ends. An empty pass waits one poll interval; a failed
// pass backs off exponentially up to MaxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	backoff := r.cfg.PollInterval
	for {
		n, err := r.Drain(ctx)
		var pause time.Duration
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			r.logg.Error(ctx, "outbox relay pass failed", err)
			backoff = min(backoff*2, r.cfg.MaxBackoff)
			pause = backoff
		case n == 0:
			backoff = r.cfg.PollInterval
			pause = r.cfg.PollInterval
		default:
			backoff = r.cfg.PollInterval
			continue
		}
		if err := r.wait(ctx, jitter(pause)); err != nil {
			return err
		}
	}
}

type inflight struct {
	event models.OutboxEvent
	msg   Message
	ack   Ack
	err   error
}

// Drain runs one pass and returns how many rows it claimed.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	claimed := 0
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.FetchUnpublishedForPublish(tx, r.cfg.BatchSize, r.cfg.MaxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		claimed = len(events)
		r.metrics.Batch(claimed)

		batch := make([]inflight, len(events))
		for i, event := range events {
			batch[i].event = event
			batch[i].msg, batch[i].err = r.message(event)
			if batch[i].err == nil {
				batch[i].ack = r.sink.Send(ctx, batch[i].msg)
			}
		}

		for _, f := range batch {
			if f.err == nil {
				f.err = r.await(ctx, f.ack)
			}
			if err := r.settle(ctx, tx, f); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

func (r *Relay) message(event models.OutboxEvent) (Message, error) {
	env, err := DecodeEnvelope(event.Payload)
	if err != nil {
		return Message{}, err
	}
	topic := r.topic(event.EventType)
	if topic == "" {
		return Message{}, fmt.Errorf("no topic for %s", event.EventType)
	}
	return Message{
		ID:    event.ID,
		Topic: topic,
		Data:  event.Payload,
		Attributes: map[string]string{
			"event_id":       env.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"schema_version": fmt.Sprint(env.Version),
			"occurred_at":    env.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

func (r *Relay) await(ctx context.Context, ack Ack) error {
	if ack == nil {
		return errors.New("sink returned no ack")
	}
	waitCtx, cancel := context.WithTimeout(ctx, r.cfg.AckTimeout)
	defer cancel()
	return ack.Wait(waitCtx)
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, f inflight) error {
	eventType := string(f.event.EventType)
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":    f.event.ID.String(),
		"event_type":   eventType,
		"aggregate_id": f.event.AggregateID.String(),
		"topic":        f.msg.Topic,
	})

	if f.err == nil {
		if err := r.store.MarkPublishedTx(tx, f.event.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", f.event.ID, err)
		}
		r.metrics.Published(eventType)
		r.logg.Info(logCtx, "outbox event published")
		return nil
	}

	if err := r.store.MarkFailedTx(tx, f.event.ID, f.err); err != nil {
		return fmt.Errorf("mark %s failed: %w", f.event.ID, err)
	}
	f.event.AttemptCount++
	exhausted := f.event.Exhausted(r.cfg.MaxAttempts)
	r.metrics.Failed(eventType, exhausted)
	logCtx = r.logg.WithFields(logCtx, map[string]any{"attempt": f.event.AttemptCount, "error": f.err.Error()})
	if exhausted {
		r.logg.Warn(logCtx, "outbox event exhausted its attempts")
	} else {
		r.logg.Warn(logCtx, "outbox publish failed, will retry")
	}
	return nil
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(d/4+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
