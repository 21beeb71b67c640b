package pubsub

import (
	"context"
	"fmt"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/casamarket/casa-backend/pkg/outbox"
)

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
	Stop()
}

// Sink publishes outbox messages, keeping one batching publisher per topic.
type Sink struct {
	mu         sync.Mutex
	publishers map[string]publisher
	open       func(topic string) publisher
}

func NewSink(c *Client) *Sink {
	return newSink(func(topic string) publisher {
		if p := c.Publisher(topic); p != nil {
			return p
		}
		return nil
	})
}

func newSink(open func(topic string) publisher) *Sink {
	return &Sink{publishers: map[string]publisher{}, open: open}
}

func (s *Sink) Send(ctx context.Context, msg outbox.Message) outbox.Ack {
	p := s.publisher(msg.Topic)
	if p == nil {
		return failedAck{err: fmt.Errorf("no publisher for topic %q", msg.Topic)}
	}
	res := p.Publish(ctx, &pubsub.Message{Data: msg.Data, Attributes: msg.Attributes})
	return resultAck{res: res}
}

func (s *Sink) publisher(topic string) publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.publishers[topic]; ok {
		return p
	}
	p := s.open(topic)
	if p != nil {
		s.publishers[topic] = p
	}
	return p
}

// Stop flushes pending messages on every cached publisher.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topic, p := range s.publishers {
		p.Stop()
		delete(s.publishers, topic)
	}
}

type resultAck struct{ res *pubsub.PublishResult }

func (a resultAck) Wait(ctx context.Context) error {
	_, err := a.res.Get(ctx)
	return err
}

type failedAck struct{ err error }

func (a failedAck) Wait(context.Context) error { return a.err }
