package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/example/refurnish/internal/checkout"
	"github.com/example/refurnish/internal/order"
)

// OrdersClient adapts the order collaborator. It serves both sides of the
// workflow: placement for the checkout and reads for the tracker.
type OrdersClient struct {
	client *Client
}

func NewOrdersClient(baseURL string, logger *slog.Logger) *OrdersClient {
	return &OrdersClient{client: NewClient("order-backend", baseURL, logger)}
}

// Place submits the draft. The collaborator answers {orderId} on 2xx.
func (c *OrdersClient) Place(ctx context.Context, token string, draft checkout.Draft) (string, error) {
	body := struct {
		SelectedItems   []string `json:"selectedItems"`
		ShippingAddress string   `json:"shippingAddress"`
		Notes           string   `json:"notes,omitempty"`
	}{
		SelectedItems:   draft.SelectedItemIDs,
		ShippingAddress: draft.ShippingAddress,
		Notes:           draft.Notes,
	}

	var resp struct {
		OrderID string `json:"orderId"`
	}
	if err := c.client.doJSON(ctx, http.MethodPost, "/orders", token, body, &resp); err != nil {
		return "", fmt.Errorf("failed to place order: %w", err)
	}
	if resp.OrderID == "" {
		return "", fmt.Errorf("order backend returned no order id")
	}
	return resp.OrderID, nil
}

func (c *OrdersClient) MyOrders(ctx context.Context, token string) ([]order.PlacedOrder, error) {
	var orders []order.PlacedOrder
	if err := c.client.doJSON(ctx, http.MethodGet, "/orders/mine", token, nil, &orders); err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

func (c *OrdersClient) Order(ctx context.Context, token, orderID string) (order.PlacedOrder, error) {
	var o order.PlacedOrder
	path := "/orders/" + url.PathEscape(orderID)
	if err := c.client.doJSON(ctx, http.MethodGet, path, token, nil, &o); err != nil {
		return order.PlacedOrder{}, fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}
	return o, nil
}
