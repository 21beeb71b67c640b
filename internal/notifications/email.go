package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/internal/pricing"
	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/logger"
)

const publishTimeout = 5 * time.Second

// Template names understood by the mail worker consuming the email topic.
const (
	TemplateOrderPlaced    = "order_placed"
	TemplateReturnDecision = "return_decision"
)

// EmailMessage is the JSON body published to the email topic.
type EmailMessage struct {
	ID       string         `json:"id"`
	To       string         `json:"to"`
	Template string         `json:"template"`
	Subject  string         `json:"subject"`
	Data     map[string]any `json:"data"`
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// Publisher abstracts the Pub/Sub topic handle.
type Publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

// Mailer hands transactional emails to the mail worker over Pub/Sub.
// Every send is best effort: callers log the error and move on.
type Mailer struct {
	pub  Publisher
	logg *logger.Logger
}

func NewMailer(pub Publisher, logg *logger.Logger) (*Mailer, error) {
	if pub == nil {
		return nil, errors.New("email publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Mailer{pub: pub, logg: logg}, nil
}

// NewTopicPublisher adapts a Pub/Sub publisher handle.
func NewTopicPublisher(p *pubsub.Publisher) Publisher {
	if p == nil {
		return nil
	}
	return topicPublisher{p}
}

type topicPublisher struct{ p *pubsub.Publisher }

func (t topicPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	return t.p.Publish(ctx, msg)
}

func (m *Mailer) send(ctx context.Context, msg EmailMessage) error {
	if msg.To == "" {
		return errors.New("email recipient missing")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := m.pub.Publish(ctx, &pubsub.Message{
		Data:       body,
		Attributes: map[string]string{"template": msg.Template},
	})
	if result == nil {
		return errors.New("email publish returned no result")
	}
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish email: %w", err)
	}
	m.logg.Debug(m.logg.WithField(ctx, "template", msg.Template), "email queued")
	return nil
}

// OrderPlaced sends the order confirmation.
func (m *Mailer) OrderPlaced(ctx context.Context, order models.Order, customer models.Customer) error {
	lines := make([]map[string]any, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, map[string]any{
			"material": item.MaterialName,
			"seller":   item.SellerName,
			"quantity": item.Quantity,
			"total":    pricing.FormatCents(item.ItemTotalCents),
		})
	}
	return m.send(ctx, EmailMessage{
		ID:       "order-" + order.ID.String(),
		To:       customer.Email,
		Template: TemplateOrderPlaced,
		Subject:  "Your Casa order is confirmed",
		Data: map[string]any{
			"customerName":  customer.Name,
			"orderId":       order.ID.String(),
			"paymentMethod": order.PaymentMethod,
			"subtotal":      pricing.FormatCents(order.SubtotalCents),
			"delivery":      pricing.FormatCents(order.DeliveryChargeCents),
			"installation":  pricing.FormatCents(order.InstallationChargeCents),
			"casaCharge":    pricing.FormatCents(order.CasaChargeCents),
			"grandTotal":    pricing.FormatCents(order.GrandTotalCents),
			"lines":         lines,
		},
	})
}

// ReturnDecided tells the customer where their return stands.
func (m *Mailer) ReturnDecided(ctx context.Context, customer models.Customer, request models.ReturnRequest, status string) error {
	data := map[string]any{
		"customerName":    customer.Name,
		"returnRequestId": request.ID.String(),
		"status":          status,
		"refundMethod":    request.RefundMethod,
		"refundAmount":    pricing.FormatCents(request.RefundAmountCents),
	}
	if request.RefundedAt != nil {
		data["refundedAt"] = request.RefundedAt.Format(time.RFC3339)
	}
	return m.send(ctx, EmailMessage{
		ID:       fmt.Sprintf("return-%s-%s", request.ID, status),
		To:       customer.Email,
		Template: TemplateReturnDecision,
		Subject:  "Update on your Casa return",
		Data:     data,
	})
}
