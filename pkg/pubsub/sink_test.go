package pubsub

import (
	"context"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/casamarket/casa-backend/pkg/outbox"
)

type stubPublisher struct {
	published []*pubsub.Message
	stopped   bool
}

func (p *stubPublisher) Publish(_ context.Context, msg *pubsub.Message) *pubsub.PublishResult {
	p.published = append(p.published, msg)
	return nil
}

func (p *stubPublisher) Stop() { p.stopped = true }

func TestSinkCachesPublisherPerTopic(t *testing.T) {
	opened := map[string]int{}
	pubs := map[string]*stubPublisher{}
	sink := newSink(func(topic string) publisher {
		opened[topic]++
		p := &stubPublisher{}
		pubs[topic] = p
		return p
	})

	ctx := context.Background()
	sink.Send(ctx, outbox.Message{Topic: "domain", Data: []byte("a"), Attributes: map[string]string{"event_type": "order.placed"}})
	sink.Send(ctx, outbox.Message{Topic: "domain", Data: []byte("b")})
	sink.Send(ctx, outbox.Message{Topic: "email", Data: []byte("c")})

	if opened["domain"] != 1 || opened["email"] != 1 {
		t.Fatalf("expected one publisher per topic, got %v", opened)
	}
	if got := len(pubs["domain"].published); got != 2 {
		t.Fatalf("expected 2 messages on domain, got %d", got)
	}
	if got := pubs["domain"].published[0].Attributes["event_type"]; got != "order.placed" {
		t.Fatalf("attributes not forwarded: %q", got)
	}

	sink.Stop()
	if !pubs["domain"].stopped || !pubs["email"].stopped {
		t.Fatalf("expected every publisher to be stopped")
	}
	sink.Send(ctx, outbox.Message{Topic: "domain"})
	if opened["domain"] != 2 {
		t.Fatalf("expected publisher to reopen after stop")
	}
}

func TestSinkMissingPublisherFailsAck(t *testing.T) {
	sink := newSink(func(string) publisher { return nil })
	ack := sink.Send(context.Background(), outbox.Message{Topic: "ghost"})
	if err := ack.Wait(context.Background()); err == nil {
		t.Fatalf("expected error for unconfigured topic")
	}
}
