package messaging

import "context"

// Topics carrying order lifecycle events.
const (
	TopicOrderPlaced        = "orders.placed"
	TopicOrderStatusChanged = "orders.status-changed"
	TopicOrderCancelled     = "orders.cancelled"
)

// OrderTopics lists every topic the order service publishes to.
var OrderTopics = []string{TopicOrderPlaced, TopicOrderStatusChanged, TopicOrderCancelled}

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
	Close() error
}

// Subscriber defines an interface for subscribing to a message topic.
// Consume blocks until ctx is done.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error)
}
