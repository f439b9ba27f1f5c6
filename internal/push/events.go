package push

// EventType identifies a push notification event on the wire.
type EventType string

const (
	// EventProductStatusUpdate is emitted when a moderator changes a
	// listing's status (approved, rejected, ...).
	EventProductStatusUpdate EventType = "product_status_update"
	// EventProductSoldUpdate is emitted when a buyer's order marks one of
	// the seller's listings as sold.
	EventProductSoldUpdate EventType = "product_sold_update"
)

// Event is a push notification addressed to a single user.
type Event struct {
	Type        EventType `json:"type"`
	UserID      string    `json:"user_id"`
	ProductID   string    `json:"product_id"`
	Status      string    `json:"status,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	Message     string    `json:"message"`
}

// Handler receives events for a subscription.
type Handler func(Event)

// Subscriber delivers push events for a user until the returned
// unsubscribe function is called. Implementations: the Kafka-backed
// channel in production, Bus for tests.
type Subscriber interface {
	Subscribe(userID string, h Handler) (unsubscribe func(), err error)
}
