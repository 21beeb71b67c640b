package outbox

import (
	"github.com/casamarket/casa-backend/pkg/config"
	"github.com/casamarket/casa-backend/pkg/enums"
)

// TopicFor routes an event type to its Pub/Sub topic. Every domain event
// shares the domain topic; subscribers filter on the event_type attribute.
func TopicFor(cfg config.PubSubConfig, _ enums.OutboxEventType) string {
	return cfg.DomainTopic
}
