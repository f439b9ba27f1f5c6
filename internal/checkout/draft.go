package checkout

import (
	"errors"
	"strings"

	"github.com/example/refurnish/internal/cart"
)

// FlatShippingFee is charged once per order, regardless of line count.
const FlatShippingFee int64 = 150

var (
	ErrNoItemsSelected = errors.New("no items selected for checkout")
	ErrEmptyAddress    = errors.New("shipping address is required")
)

// Draft is an order about to be submitted. It lives from the "Buy Now"
// click to the submission's resolution and is never retried automatically.
type Draft struct {
	SelectedItemIDs []string `json:"selected_items"`
	ShippingAddress string   `json:"shipping_address"`
	Notes           string   `json:"notes,omitempty"`
}

// Totals is the order arithmetic shown to the buyer and charged by the
// gateway.
type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	ShippingFee int64 `json:"shipping_fee"`
	Total       int64 `json:"total"`
}

// TotalsFor computes totals over the selected lines. An empty selection
// carries no shipping fee.
func TotalsFor(lines []cart.Line) Totals {
	var t Totals
	for _, l := range lines {
		t.Subtotal += l.UnitPrice * int64(l.Quantity)
	}
	if len(lines) > 0 {
		t.ShippingFee = FlatShippingFee
	}
	t.Total = t.Subtotal + t.ShippingFee
	return t
}

// NewDraft builds a draft from the selected lines, preserving cart order.
func NewDraft(lines []cart.Line, address, notes string) (Draft, Totals, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Draft{}, Totals{}, ErrEmptyAddress
	}
	if len(lines) == 0 {
		return Draft{}, Totals{}, ErrNoItemsSelected
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
	}
	return Draft{
		SelectedItemIDs: ids,
		ShippingAddress: address,
		Notes:           strings.TrimSpace(notes),
	}, TotalsFor(lines), nil
}
