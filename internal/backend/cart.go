package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/example/refurnish/internal/cart"
)

// cartLine is the cart collaborator's wire shape.
type cartLine struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PriceNum int64  `json:"priceNum"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image,omitempty"`
}

// CartClient adapts the platform cart API to the cart.Backend interface.
type CartClient struct {
	client *Client
}

func NewCartClient(baseURL string, logger *slog.Logger) *CartClient {
	return &CartClient{client: NewClient("cart-backend", baseURL, logger)}
}

func (c *CartClient) Lines(ctx context.Context, token string) ([]cart.Line, error) {
	var wire []cartLine
	if err := c.client.doJSON(ctx, http.MethodGet, "/cart", token, nil, &wire); err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}

	lines := make([]cart.Line, len(wire))
	for i, w := range wire {
		lines[i] = cart.Line{
			ID:           w.ID,
			Name:         w.Name,
			UnitPrice:    w.PriceNum,
			Quantity:     w.Quantity,
			ThumbnailURL: w.Image,
		}
	}
	return lines, nil
}

func (c *CartClient) UpdateQuantity(ctx context.Context, token, lineID string, quantity int) error {
	body := struct {
		Quantity int `json:"quantity"`
	}{Quantity: quantity}
	path := "/cart/items/" + url.PathEscape(lineID)
	if err := c.client.doJSON(ctx, http.MethodPut, path, token, body, nil); err != nil {
		return fmt.Errorf("failed to update cart line %s: %w", lineID, err)
	}
	return nil
}

func (c *CartClient) Remove(ctx context.Context, token, lineID string) error {
	path := "/cart/items/" + url.PathEscape(lineID)
	if err := c.client.doJSON(ctx, http.MethodDelete, path, token, nil, nil); err != nil {
		return fmt.Errorf("failed to remove cart line %s: %w", lineID, err)
	}
	return nil
}
