package checkout

import (
	"context"
	"time"

	"github.com/example/refurnish/internal/payment"
)

// OrderedItem is one line of a placed order as carried on the wire.
type OrderedItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderPlaced is published to the orders topic after a successful
// submission. The notifier turns it into a confirmation email; the
// platform backend fans out seller notifications from it.
type OrderPlaced struct {
	OrderID       string        `json:"order_id"`
	UserID        string        `json:"user_id"`
	Email         string        `json:"email"`
	Items         []OrderedItem `json:"items"`
	Subtotal      int64         `json:"subtotal"`
	ShippingFee   int64         `json:"shipping_fee"`
	Total         int64         `json:"total"`
	PaymentMode   payment.Mode  `json:"payment_mode"`
	TransactionID string        `json:"transaction_id"`
	PlacedAt      time.Time     `json:"placed_at"`
}

// Publisher emits order events. The Kafka producer satisfies this.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
