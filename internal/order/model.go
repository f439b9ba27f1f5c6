package order

import "time"

// Status is the fulfillment stage shown to the buyer.
type Status string

const (
	StatusPreparing      Status = "Preparing to Ship"
	StatusShipped        Status = "Shipped out"
	StatusOutForDelivery Status = "Out for Delivery"
	StatusDelivered      Status = "Delivered"
	StatusToRate         Status = "To Rate"
	StatusCancelled      Status = "Cancelled"
)

// Item is one product line inside a placed order.
type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// LineTotal is the quantity-times-price figure shown per item.
func (i Item) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// PlacedOrder is owned by the order backend; this service reads it, never
// writes it.
type PlacedOrder struct {
	ID              string    `json:"order_id"`
	Status          Status    `json:"status"`
	Items           []Item    `json:"items"`
	TotalAmount     int64     `json:"total_amount"`
	ShippingFee     int64     `json:"shipping_fee"`
	TrackingNumber  string    `json:"tracking_number,omitempty"`
	ShippingAddress string    `json:"shipping_address,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DisplaySubtotal derives the pre-shipping figure for display. TotalAmount
// stays authoritative; this is presentation arithmetic only.
func (o PlacedOrder) DisplaySubtotal() int64 {
	return o.TotalAmount - o.ShippingFee
}
